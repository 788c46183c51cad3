package usecases

import (
	"context"
	"fmt"

	"github.com/sportello-bot/sportello/internal/application/idempotency"
	"github.com/sportello-bot/sportello/internal/domain/platform"
	"github.com/sportello-bot/sportello/internal/domain/transcript"
	"github.com/sportello-bot/sportello/internal/shared/logger"
)

// ArtifactPipeline produces the transcript and the audit record of a closing
// ticket.
type ArtifactPipeline struct {
	platform platform.Platform
	renderer transcript.Renderer
	store    transcript.Store
	guard    *idempotency.Guard
	settings Settings
	logger   logger.Interface
}

func NewArtifactPipeline(
	p platform.Platform,
	renderer transcript.Renderer,
	store transcript.Store,
	guard *idempotency.Guard,
	settings Settings,
	logger logger.Interface,
) *ArtifactPipeline {
	return &ArtifactPipeline{
		platform: p,
		renderer: renderer,
		store:    store,
		guard:    guard,
		settings: settings,
		logger:   logger,
	}
}

// Produce renders and stores the transcript and sends the audit record. It
// reports whether this call sent the record. A false result with a nil error
// means another trigger already sent it for the same close.
func (a *ArtifactPipeline) Produce(ctx context.Context, s AuditSnapshot) (bool, error) {
	t := s.Ticket
	key := idempotency.LogKey(t.GuildID(), t.ChannelID(), s.ClosedAt, a.settings.AuditBucket)
	claimed, err := a.guard.ClaimFor(ctx, key, a.settings.AuditBucket+a.settings.CloseLockTTL)
	if err != nil {
		return false, fmt.Errorf("claim audit record: %w", err)
	}
	if !claimed {
		a.logger.Infow("audit record already produced", "channel_id", t.ChannelID())
		return false, nil
	}

	token := a.storeTranscript(ctx, s)

	if a.settings.LogChannelID == "" {
		a.logger.Warnw("log channel not configured, audit record dropped", "channel_id", t.ChannelID())
		return false, nil
	}
	if _, err := a.platform.SendMessage(ctx, a.settings.LogChannelID, auditRecord(s, token, a.settings.PublicBaseURL)); err != nil {
		// The record is not retried; the ticket is still deleted.
		a.logger.Errorw("failed to send audit record",
			"channel_id", t.ChannelID(),
			"log_channel_id", a.settings.LogChannelID,
			"error", err,
		)
		return false, fmt.Errorf("send audit record: %w", err)
	}

	a.logger.Infow("audit record sent", "channel_id", t.ChannelID(), "has_transcript", token != "")
	return true, nil
}

// storeTranscript returns the stored token, or "" when the transcript could
// not be produced.
func (a *ArtifactPipeline) storeTranscript(ctx context.Context, s AuditSnapshot) string {
	if a.renderer == nil || a.store == nil {
		a.logger.Warnw("transcript pipeline not configured", "channel_id", s.Ticket.ChannelID())
		return ""
	}

	history, err := a.platform.ChannelHistory(ctx, s.Ticket.ChannelID())
	if err != nil {
		a.logger.Errorw("failed to fetch channel history", "channel_id", s.Ticket.ChannelID(), "error", err)
		return ""
	}
	guildName, err := a.platform.GuildName(ctx, s.Ticket.GuildID())
	if err != nil {
		a.logger.Warnw("failed to resolve guild name", "guild_id", s.Ticket.GuildID(), "error", err)
	}

	html, err := a.renderer.Render(ctx, transcript.Source{
		GuildName:   guildName,
		ChannelName: s.Ticket.Name(),
		Messages:    history,
		ClosedAt:    s.ClosedAt,
	})
	if err != nil {
		a.logger.Errorw("failed to render transcript", "channel_id", s.Ticket.ChannelID(), "error", err)
		return ""
	}

	token, err := a.store.Put(ctx, s.Ticket.Name(), html)
	if err != nil {
		a.logger.Errorw("failed to store transcript", "channel_id", s.Ticket.ChannelID(), "error", err)
		return ""
	}
	return token
}

