// Package http exposes stored transcripts over HTTP for the download links
// written to the log channel.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sportello-bot/sportello/internal/domain/transcript"
	"github.com/sportello-bot/sportello/internal/interfaces/http/handlers"
	"github.com/sportello-bot/sportello/internal/interfaces/http/middleware"
	"github.com/sportello-bot/sportello/internal/shared/logger"
)

const shutdownTimeout = 10 * time.Second

type TranscriptStore interface {
	Get(ctx context.Context, token string) (*transcript.Transcript, error)
}

// Router represents the HTTP router configuration
type Router struct {
	engine            *gin.Engine
	transcriptHandler *handlers.TranscriptHandler
	logger            logger.Interface
}

func NewRouter(store TranscriptStore, log logger.Interface) *Router {
	engine := gin.New()
	return &Router{
		engine:            engine,
		transcriptHandler: handlers.NewTranscriptHandler(store, log.Named("http")),
		logger:            log,
	}
}

func (r *Router) SetupRoutes() {
	r.engine.Use(middleware.Logger(r.logger))
	r.engine.Use(middleware.Recovery(r.logger))

	r.engine.GET("/healthz", r.transcriptHandler.HealthCheck)
	r.engine.GET("/transcripts/:token", r.transcriptHandler.GetTranscript)
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// Server runs the router until its context is cancelled.
type Server struct {
	srv    *http.Server
	logger logger.Interface
}

func NewServer(addr string, router *Router, log logger.Interface) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           router.GetEngine(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: log,
	}
}

// Run blocks until ctx is done, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("http server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnw("http server shutdown incomplete", "error", err)
		return err
	}
	s.logger.Infow("http server stopped")
	return nil
}
