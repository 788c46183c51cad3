package template

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sportello-bot/sportello/internal/shared/logger"
)

// Template names an operator may override.
const (
	NameTranscript = "transcript"
)

// Loader reads operator-provided templates from a directory. Files are named
// custom.<name>.html or custom.<name>.tmpl; names without a file fall back to
// the built-in template of their consumer.
type Loader struct {
	templates map[string]string
	path      string
	logger    logger.Interface
}

// NewLoader creates a new template loader
func NewLoader(path string, logger logger.Interface) *Loader {
	return &Loader{
		templates: make(map[string]string),
		path:      path,
		logger:    logger,
	}
}

// Load reads every known template from the configured directory. A missing
// directory is not an error.
func (l *Loader) Load() error {
	if l.path == "" {
		return nil
	}
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		l.logger.Debugw("templates directory not found, using built-in templates", "path", l.path)
		return nil
	}

	names := []string{NameTranscript}
	extensions := []string{".html", ".tmpl"}

	for _, name := range names {
		for _, ext := range extensions {
			filename := fmt.Sprintf("custom.%s%s", name, ext)
			filePath := filepath.Join(l.path, filename)

			content, err := os.ReadFile(filePath)
			if err != nil {
				if !os.IsNotExist(err) {
					l.logger.Warnw("failed to read template file",
						"file", filePath,
						"error", err,
					)
				}
				continue
			}

			l.templates[name] = string(content)
			l.logger.Infow("loaded custom template",
				"name", name,
				"file", filename,
				"size", len(content),
			)
			break
		}
	}

	return nil
}

// Get returns the template content for name.
func (l *Loader) Get(name string) (string, bool) {
	if l == nil {
		return "", false
	}
	content, ok := l.templates[strings.ToLower(strings.TrimSpace(name))]
	return content, ok
}
