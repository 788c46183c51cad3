// Package transcript describes the HTML record of a closed ticket and the
// ports that render and store it.
package transcript

import (
	"context"
	"errors"
	"time"

	"github.com/sportello-bot/sportello/internal/domain/platform"
)

// ErrNotFound is returned for unknown or expired tokens.
var ErrNotFound = errors.New("transcript not found")

// Source is everything a renderer sees of a ticket.
type Source struct {
	GuildName   string
	ChannelName string
	Messages    []platform.Message
	ClosedAt    time.Time
}

// Transcript is a stored artifact read back for download.
type Transcript struct {
	Token     string
	Name      string
	CreatedAt time.Time
	HTML      []byte
}

// Renderer turns a channel history into a standalone HTML document.
type Renderer interface {
	Render(ctx context.Context, src Source) ([]byte, error)
}

// Store persists rendered transcripts and reads them back by token. Get
// returns ErrNotFound once a transcript has expired.
type Store interface {
	Put(ctx context.Context, name string, html []byte) (string, error)
	Get(ctx context.Context, token string) (*Transcript, error)
}
