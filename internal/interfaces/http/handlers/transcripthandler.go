package handlers

import (
	"context"
	"errors"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sportello-bot/sportello/internal/domain/transcript"
	"github.com/sportello-bot/sportello/internal/shared/id"
	"github.com/sportello-bot/sportello/internal/shared/logger"
	"github.com/sportello-bot/sportello/internal/shared/utils"
	"github.com/sportello-bot/sportello/internal/shared/version"
)

type transcriptReader interface {
	Get(ctx context.Context, token string) (*transcript.Transcript, error)
}

// TranscriptHandler serves stored transcripts by their download token.
type TranscriptHandler struct {
	store  transcriptReader
	logger logger.Interface
}

func NewTranscriptHandler(store transcriptReader, logger logger.Interface) *TranscriptHandler {
	return &TranscriptHandler{
		store:  store,
		logger: logger,
	}
}

// GetTranscript handles GET /transcripts/:token.
// Unknown, malformed and expired tokens all answer 404.
func (h *TranscriptHandler) GetTranscript(c *gin.Context) {
	token := c.Param("token")
	if !id.IsToken(token) {
		utils.ErrorResponse(c, http.StatusNotFound, "transcript not found")
		return
	}

	tr, err := h.store.Get(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, transcript.ErrNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "transcript not found")
			return
		}
		h.logger.Errorw("failed to read transcript", "token", token, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": tr.Name + ".html"}))
	c.Header("Cache-Control", "private, no-store")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, "text/html; charset=utf-8", tr.HTML)
}

// HealthCheck handles GET /healthz
func (h *TranscriptHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "sportello",
		"version": version.String(),
	})
}
