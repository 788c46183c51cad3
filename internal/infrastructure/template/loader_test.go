package template

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportello-bot/sportello/internal/shared/logger"
)

func TestLoader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.transcript.tmpl"), []byte("<p>{{.ChannelName}}</p>"), 0o644))

	l := NewLoader(dir, logger.NewNop())
	require.NoError(t, l.Load())

	content, ok := l.Get("Transcript")
	assert.True(t, ok)
	assert.Equal(t, "<p>{{.ChannelName}}</p>", content)

	_, ok = l.Get("other")
	assert.False(t, ok)
}

func TestLoader_MissingDir(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "nope"), logger.NewNop())
	require.NoError(t, l.Load())

	_, ok := l.Get(NameTranscript)
	assert.False(t, ok)

	var nilLoader *Loader
	_, ok = nilLoader.Get(NameTranscript)
	assert.False(t, ok)
}
