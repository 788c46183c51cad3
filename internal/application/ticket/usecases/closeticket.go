package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/sportello-bot/sportello/internal/application/idempotency"
	"github.com/sportello-bot/sportello/internal/domain/permission"
	"github.com/sportello-bot/sportello/internal/domain/platform"
	"github.com/sportello-bot/sportello/internal/domain/ticket"
	apperrors "github.com/sportello-bot/sportello/internal/shared/errors"
	"github.com/sportello-bot/sportello/internal/shared/logger"
)

const deleteTimeout = 30 * time.Second

type CloseStatus string

const (
	CloseAccepted       CloseStatus = "accepted"
	CloseWrongChannel   CloseStatus = "wrong_channel"
	CloseNotTicket      CloseStatus = "not_ticket"
	CloseForbidden      CloseStatus = "forbidden"
	CloseAlreadyClosing CloseStatus = "already_closing"
)

type CloseTicketCommand struct {
	GuildID string
	// ChannelID is where the reason form was submitted.
	ChannelID string
	// TargetChannelID is the channel the form was opened for.
	TargetChannelID string
	Actor           permission.Actor
	Reason          string
}

type CloseTicketResult struct {
	Status CloseStatus
	// Message is the private reply for the actor; empty when the
	// acknowledgement should just be dismissed.
	Message   string
	AuditSent bool
}

type CloseTicketExecutor interface {
	Execute(ctx context.Context, cmd CloseTicketCommand) (*CloseTicketResult, error)
}

type CloseTicketUseCase struct {
	platform platform.Platform
	checker  permission.Checker
	guard    *idempotency.Guard
	coord    *Coordinator
	artifact *ArtifactPipeline
	settings Settings
	logger   logger.Interface
	now      func() time.Time
	sleep    func(time.Duration)
}

func NewCloseTicketUseCase(
	p platform.Platform,
	checker permission.Checker,
	guard *idempotency.Guard,
	coord *Coordinator,
	artifact *ArtifactPipeline,
	settings Settings,
	logger logger.Interface,
) *CloseTicketUseCase {
	return &CloseTicketUseCase{
		platform: p,
		checker:  checker,
		guard:    guard,
		coord:    coord,
		artifact: artifact,
		settings: settings,
		logger:   logger,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

func (uc *CloseTicketUseCase) Execute(ctx context.Context, cmd CloseTicketCommand) (*CloseTicketResult, error) {
	uc.logger.Infow("executing close ticket use case",
		"channel_id", cmd.ChannelID,
		"user_id", cmd.Actor.UserID,
	)

	if cmd.TargetChannelID != cmd.ChannelID {
		return &CloseTicketResult{Status: CloseWrongChannel, Message: MsgWrongTarget}, nil
	}

	ch, err := ticketChannel(ctx, uc.platform, cmd.ChannelID)
	if err != nil {
		uc.logger.Errorw("failed to get channel", "channel_id", cmd.ChannelID, "error", err)
		return nil, apperrors.NewUpstreamError("failed to get channel", err)
	}
	if ch == nil {
		return &CloseTicketResult{Status: CloseNotTicket, Message: MsgNotTicketChannel}, nil
	}

	allowed, err := uc.checker.Can(cmd.Actor, permission.ResourceTicket, permission.ActionClose)
	if err != nil {
		uc.logger.Errorw("failed to check close permission", "user_id", cmd.Actor.UserID, "error", err)
		return nil, apperrors.NewInternalError("failed to check permissions")
	}
	if !allowed {
		return &CloseTicketResult{Status: CloseForbidden, Message: MsgCloseForbidden(uc.settings.CloseRoleID)}, nil
	}

	if !uc.coord.BeginClosing(ch.ID) {
		return &CloseTicketResult{Status: CloseAlreadyClosing, Message: MsgAlreadyClosing}, nil
	}
	release, err := uc.guard.Hold(ctx, idempotency.CloseKey(ch.ID), uc.settings.CloseLockTTL)
	if err != nil {
		uc.coord.EndClosing(ch.ID)
		uc.logger.Errorw("failed to acquire close lock", "channel_id", ch.ID, "error", err)
		return nil, apperrors.NewInternalError("failed to acquire close lock")
	}
	if release == nil {
		uc.coord.EndClosing(ch.ID)
		return &CloseTicketResult{Status: CloseAlreadyClosing, Message: MsgAlreadyClosing}, nil
	}

	cleanup := func() {
		release()
		uc.coord.EndClosing(ch.ID)
	}
	scheduled := false
	defer func() {
		if !scheduled {
			cleanup()
		}
	}()

	guildID := ch.GuildID
	if guildID == "" {
		guildID = cmd.GuildID
	}
	t, err := ticket.ReconstructTicket(ch.ID, guildID, ch.Name, ch.Topic, ch.ParentID)
	if err != nil {
		return nil, apperrors.NewInternalError(err.Error())
	}
	closedAt := uc.now().UTC()
	if err := t.BeginClose(closedAt); err != nil {
		return nil, apperrors.NewInternalError(err.Error())
	}

	reason := normalizeReason(cmd.Reason)
	if _, err := uc.platform.SendMessage(ctx, ch.ID, closeAnnouncement(cmd.Actor.Username, reason)); err != nil {
		uc.logger.Warnw("failed to post close announcement", "channel_id", ch.ID, "error", err)
	}

	auditSent, err := uc.artifact.Produce(ctx, AuditSnapshot{
		Ticket:   t,
		ClosedBy: cmd.Actor.UserID,
		Reason:   reason,
		ClosedAt: closedAt,
	})
	if err != nil {
		uc.logger.Errorw("artifact pipeline failed", "channel_id", ch.ID, "error", err)
	}

	scheduled = true
	uc.coord.Go("ticket-delete", func() {
		defer cleanup()
		uc.deleteAfterGrace(t)
	})

	uc.logger.Infow("ticket closing",
		"channel_id", ch.ID,
		"closed_by", cmd.Actor.UserID,
		"category", t.Category(),
		"audit_sent", auditSent,
	)

	return &CloseTicketResult{Status: CloseAccepted, AuditSent: auditSent}, nil
}

func (uc *CloseTicketUseCase) deleteAfterGrace(t *ticket.Ticket) {
	uc.sleep(uc.settings.CloseGrace)

	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
	defer cancel()
	if err := uc.platform.DeleteChannel(ctx, t.ChannelID(), deleteReason); err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			uc.logger.Infow("ticket channel already gone", "channel_id", t.ChannelID())
		} else {
			uc.logger.Errorw("failed to delete ticket channel", "channel_id", t.ChannelID(), "error", err)
		}
		return
	}
	if err := t.MarkDeleted(); err != nil {
		uc.logger.Warnw("unexpected ticket state after deletion", "channel_id", t.ChannelID(), "error", err)
	}
	uc.logger.Infow("ticket deleted", "channel_id", t.ChannelID())
}

// ticketChannel fetches channelID and returns nil when it is missing or not
// a ticket channel.
func ticketChannel(ctx context.Context, p platform.Platform, channelID string) (*platform.Channel, error) {
	ch, err := p.Channel(ctx, channelID)
	if errors.Is(err, platform.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !ticket.IsTicketChannelName(ch.Name) {
		return nil, nil
	}
	return ch, nil
}
