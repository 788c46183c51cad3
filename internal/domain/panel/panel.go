// Package panel tracks the live ticket control panel of each channel.
package panel

import (
	"context"
	"strings"
)

// Record maps a (guild, channel) pair to the message id of its live panel.
type Record struct {
	GuildID   string
	ChannelID string
	MessageID string
}

// Key is the persisted form "panel:<guild>:<channel>".
func (r Record) Key() string {
	return Key(r.GuildID, r.ChannelID)
}

func Key(guildID, channelID string) string {
	return "panel:" + guildID + ":" + channelID
}

// ParseKey splits a persisted key back into guild and channel.
func ParseKey(key string) (guildID, channelID string, ok bool) {
	rest, found := strings.CutPrefix(key, "panel:")
	if !found {
		return "", "", false
	}
	guildID, channelID, ok = strings.Cut(rest, ":")
	if !ok || guildID == "" || channelID == "" {
		return "", "", false
	}
	return guildID, channelID, true
}

// Repository persists panel records. Implementations serialize writers.
type Repository interface {
	Find(ctx context.Context, guildID, channelID string) (*Record, error)
	Save(ctx context.Context, record Record) error
	Delete(ctx context.Context, guildID, channelID string) error
	List(ctx context.Context) ([]Record, error)
}
