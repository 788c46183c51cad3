package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportello-bot/sportello/internal/domain/transcript"
	"github.com/sportello-bot/sportello/internal/shared/id"
	"github.com/sportello-bot/sportello/internal/shared/logger"
)

type memoryStore map[string]*transcript.Transcript

func (m memoryStore) Get(_ context.Context, token string) (*transcript.Transcript, error) {
	tr, ok := m[token]
	if !ok {
		return nil, transcript.ErrNotFound
	}
	return tr, nil
}

func TestRouter_Routes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	token, err := id.NewToken()
	require.NoError(t, err)
	missing, err := id.NewToken()
	require.NoError(t, err)

	router := NewRouter(memoryStore{token: {Token: token, Name: "ticket-luca", HTML: []byte("<html></html>")}}, logger.NewNop())
	router.SetupRoutes()

	tests := []struct {
		name string
		path string
		want int
	}{
		{"health", "/healthz", http.StatusOK},
		{"stored transcript", "/transcripts/" + token, http.StatusOK},
		{"unknown transcript", "/transcripts/" + missing, http.StatusNotFound},
		{"malformed token", "/transcripts/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.GetEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
