package transcript

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportello-bot/sportello/internal/domain/platform"
	transcriptdomain "github.com/sportello-bot/sportello/internal/domain/transcript"
	tmplloader "github.com/sportello-bot/sportello/internal/infrastructure/template"
	"github.com/sportello-bot/sportello/internal/shared/logger"
	"github.com/sportello-bot/sportello/internal/shared/services/markdown"
)

func TestHTMLRenderer_Render(t *testing.T) {
	r, err := NewHTMLRenderer(markdown.NewMarkdownService(), nil)
	require.NoError(t, err)

	at := time.Date(2026, 10, 17, 14, 30, 0, 0, time.UTC)
	out, err := r.Render(context.Background(), transcriptdomain.Source{
		GuildName:   "Famiglia",
		ChannelName: "ticket-mario",
		ClosedAt:    at,
		Messages: []platform.Message{
			{ID: "1", AuthorName: "mario", Content: "**ciao** <script>alert(1)</script>", Timestamp: at},
			{ID: "2", AuthorName: "sportello", AuthorBot: true, PinNotice: true, Timestamp: at},
			{
				ID:          "3",
				AuthorName:  "sportello",
				AuthorBot:   true,
				Timestamp:   at,
				Embeds:      []platform.Embed{{Title: "Benvenuto", Description: "Esponi il problema"}},
				Attachments: []platform.Attachment{{Name: "foto.png", URL: "https://cdn.example/foto.png"}},
			},
		},
	})
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, "#ticket-mario")
	assert.Contains(t, html, "<strong>ciao</strong>")
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "Benvenuto")
	assert.Contains(t, html, "foto.png")
	assert.Contains(t, html, "2 messaggi")
}

func TestHTMLRenderer_CustomTemplate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.transcript.html"),
		[]byte(`<title>{{.ChannelName}}</title>{{range .Messages}}<p>{{.Author}}</p>{{end}}`), 0o644))
	loader := tmplloader.NewLoader(dir, logger.NewNop())
	require.NoError(t, loader.Load())

	r, err := NewHTMLRenderer(markdown.NewMarkdownService(), loader)
	require.NoError(t, err)

	out, err := r.Render(context.Background(), transcriptdomain.Source{
		ChannelName: "ticket-x",
		Messages:    []platform.Message{{AuthorName: "anna"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "<title>ticket-x</title><p>anna</p>", string(out))
}

func TestNewHTMLRenderer_BadTemplate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.transcript.html"), []byte(`{{.Broken`), 0o644))
	loader := tmplloader.NewLoader(dir, logger.NewNop())
	require.NoError(t, loader.Load())

	_, err := NewHTMLRenderer(markdown.NewMarkdownService(), loader)
	assert.Error(t, err)
}
