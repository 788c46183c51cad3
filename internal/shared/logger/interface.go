package logger

import (
	"io"
	"log/slog"
)

// Interface is the structured logger handed to every component. Keys and
// values alternate; components add their own scope with Named and With.
type Interface interface {
	With(keysAndValues ...any) Interface
	Named(name string) Interface

	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)
}

type slogLogger struct {
	// unnamed carries every With attribute but not the logger name, so that
	// Named can replace the name instead of repeating the key.
	unnamed *slog.Logger
	logger  *slog.Logger
	name    string
}

func newSlogLogger(l *slog.Logger) *slogLogger {
	return &slogLogger{unnamed: l, logger: l}
}

// NewLogger wraps the process logger configured by Init.
func NewLogger() Interface {
	return newSlogLogger(Get())
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() Interface {
	return newSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (l *slogLogger) With(keysAndValues ...any) Interface {
	return &slogLogger{
		unnamed: l.unnamed.With(keysAndValues...),
		logger:  l.logger.With(keysAndValues...),
		name:    l.name,
	}
}

// Named scopes the logger. Nested names are dotted: "panel" then "repository"
// logs as logger=panel.repository.
func (l *slogLogger) Named(name string) Interface {
	if l.name != "" {
		name = l.name + "." + name
	}
	return &slogLogger{
		unnamed: l.unnamed,
		logger:  l.unnamed.With("logger", name),
		name:    name,
	}
}

func (l *slogLogger) Debugw(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *slogLogger) Infow(msg string, keysAndValues ...any) {
	l.logger.Info(msg, keysAndValues...)
}

func (l *slogLogger) Warnw(msg string, keysAndValues ...any) {
	l.logger.Warn(msg, keysAndValues...)
}

func (l *slogLogger) Errorw(msg string, keysAndValues ...any) {
	l.logger.Error(msg, keysAndValues...)
}
