package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sportello-bot/sportello/internal/application/idempotency"
	"github.com/sportello-bot/sportello/internal/domain/panel"
	"github.com/sportello-bot/sportello/internal/domain/permission"
	"github.com/sportello-bot/sportello/internal/domain/platform"
	apperrors "github.com/sportello-bot/sportello/internal/shared/errors"
	"github.com/sportello-bot/sportello/internal/shared/logger"
)

type ShowStatus string

const (
	PanelPosted     ShowStatus = "posted"
	PanelUpdated    ShowStatus = "updated"
	PanelInProgress ShowStatus = "in_progress"
	PanelForbidden  ShowStatus = "forbidden"
)

type ShowPanelCommand struct {
	GuildID   string
	ChannelID string
	Actor     permission.Actor
}

type ShowPanelResult struct {
	Status    ShowStatus
	MessageID string
	Message   string
}

type ShowPanelExecutor interface {
	Execute(ctx context.Context, cmd ShowPanelCommand) (*ShowPanelResult, error)
}

// ShowPanelUseCase posts the control panel, or edits the live one in place so
// a channel never shows two.
type ShowPanelUseCase struct {
	platform platform.Platform
	repo     panel.Repository
	checker  permission.Checker
	guard    *idempotency.Guard
	lockTTL  time.Duration
	settings Settings
	logger   logger.Interface
}

func NewShowPanelUseCase(
	p platform.Platform,
	repo panel.Repository,
	checker permission.Checker,
	guard *idempotency.Guard,
	lockTTL time.Duration,
	settings Settings,
	logger logger.Interface,
) *ShowPanelUseCase {
	return &ShowPanelUseCase{
		platform: p,
		repo:     repo,
		checker:  checker,
		guard:    guard,
		lockTTL:  lockTTL,
		settings: settings,
		logger:   logger,
	}
}

func (uc *ShowPanelUseCase) Execute(ctx context.Context, cmd ShowPanelCommand) (*ShowPanelResult, error) {
	uc.logger.Infow("executing show panel use case",
		"guild_id", cmd.GuildID,
		"channel_id", cmd.ChannelID,
		"user_id", cmd.Actor.UserID,
	)

	if cmd.GuildID == "" || cmd.ChannelID == "" {
		return nil, apperrors.NewValidationError("guild and channel are required")
	}

	allowed, err := uc.checker.Can(cmd.Actor, permission.ResourcePanel, permission.ActionSend)
	if err != nil {
		uc.logger.Errorw("failed to check panel permission", "user_id", cmd.Actor.UserID, "error", err)
		return nil, apperrors.NewInternalError("failed to check permissions")
	}
	if !allowed {
		return &ShowPanelResult{Status: PanelForbidden, Message: MsgPanelForbidden}, nil
	}

	var result *ShowPanelResult
	ran, err := uc.guard.Run(ctx, idempotency.PanelKey(cmd.GuildID, cmd.ChannelID), uc.lockTTL, func(ctx context.Context) error {
		var runErr error
		result, runErr = uc.upsert(ctx, cmd.GuildID, cmd.ChannelID)
		return runErr
	})
	if err != nil {
		uc.logger.Errorw("failed to show panel", "channel_id", cmd.ChannelID, "error", err)
		return nil, apperrors.NewUpstreamError("failed to show panel", err)
	}
	if !ran {
		return &ShowPanelResult{Status: PanelInProgress, Message: MsgPanelInProgress}, nil
	}

	uc.logger.Infow("panel shown", "channel_id", cmd.ChannelID, "message_id", result.MessageID, "status", result.Status)
	return result, nil
}

func (uc *ShowPanelUseCase) upsert(ctx context.Context, guildID, channelID string) (*ShowPanelResult, error) {
	msg := panelMessage(uc.settings)

	rec, err := uc.repo.Find(ctx, guildID, channelID)
	if err != nil {
		return nil, fmt.Errorf("find panel record: %w", err)
	}
	if rec != nil {
		live, err := uc.liveMessage(ctx, rec)
		if err != nil {
			return nil, err
		}
		if live {
			if _, err := uc.platform.EditMessage(ctx, channelID, rec.MessageID, msg); err != nil {
				return nil, fmt.Errorf("edit panel: %w", err)
			}
			return &ShowPanelResult{Status: PanelUpdated, MessageID: rec.MessageID, Message: MsgPanelSent}, nil
		}
	}

	sent, err := uc.platform.SendMessage(ctx, channelID, msg)
	if err != nil {
		return nil, fmt.Errorf("send panel: %w", err)
	}
	if err := uc.repo.Save(ctx, panel.Record{GuildID: guildID, ChannelID: channelID, MessageID: sent.ID}); err != nil {
		return nil, fmt.Errorf("save panel record: %w", err)
	}
	return &ShowPanelResult{Status: PanelPosted, MessageID: sent.ID, Message: MsgPanelSent}, nil
}

// liveMessage reports whether the recorded message still exists and was
// posted by the bot. Anything else is treated as absent.
func (uc *ShowPanelUseCase) liveMessage(ctx context.Context, rec *panel.Record) (bool, error) {
	msg, err := uc.platform.GetMessage(ctx, rec.ChannelID, rec.MessageID)
	if errors.Is(err, platform.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get panel message: %w", err)
	}
	return msg.AuthorID == uc.platform.BotUserID(), nil
}
