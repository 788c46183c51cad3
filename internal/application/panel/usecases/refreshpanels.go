package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sportello-bot/sportello/internal/application/idempotency"
	"github.com/sportello-bot/sportello/internal/domain/panel"
	"github.com/sportello-bot/sportello/internal/domain/platform"
	"github.com/sportello-bot/sportello/internal/shared/logger"
)

type RefreshPanelsResult struct {
	Refreshed int
	Removed   int
	Skipped   int
}

// RefreshPanelsUseCase reposts every recorded panel so it stays the last
// message of its channel. Records whose channel is gone are dropped.
type RefreshPanelsUseCase struct {
	platform platform.Platform
	repo     panel.Repository
	guard    *idempotency.Guard
	lockTTL  time.Duration
	settings Settings
	logger   logger.Interface
}

func NewRefreshPanelsUseCase(
	p platform.Platform,
	repo panel.Repository,
	guard *idempotency.Guard,
	lockTTL time.Duration,
	settings Settings,
	logger logger.Interface,
) *RefreshPanelsUseCase {
	return &RefreshPanelsUseCase{
		platform: p,
		repo:     repo,
		guard:    guard,
		lockTTL:  lockTTL,
		settings: settings,
		logger:   logger,
	}
}

func (uc *RefreshPanelsUseCase) Execute(ctx context.Context) (*RefreshPanelsResult, error) {
	records, err := uc.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list panels: %w", err)
	}

	result := &RefreshPanelsResult{}
	for _, rec := range records {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		var removed bool
		ran, err := uc.guard.Run(ctx, idempotency.PanelKey(rec.GuildID, rec.ChannelID), uc.lockTTL, func(ctx context.Context) error {
			var runErr error
			removed, runErr = uc.repost(ctx, rec)
			return runErr
		})
		switch {
		case err != nil:
			uc.logger.Warnw("failed to refresh panel", "channel_id", rec.ChannelID, "error", err)
			result.Skipped++
		case !ran:
			result.Skipped++
		case removed:
			result.Removed++
		default:
			result.Refreshed++
		}
	}

	uc.logger.Infow("panels refreshed",
		"refreshed", result.Refreshed,
		"removed", result.Removed,
		"skipped", result.Skipped,
	)
	return result, nil
}

func (uc *RefreshPanelsUseCase) repost(ctx context.Context, rec panel.Record) (removed bool, err error) {
	if err := uc.platform.DeleteMessage(ctx, rec.ChannelID, rec.MessageID); err != nil && !errors.Is(err, platform.ErrNotFound) {
		uc.logger.Warnw("failed to delete old panel", "channel_id", rec.ChannelID, "message_id", rec.MessageID, "error", err)
	}

	sent, err := uc.platform.SendMessage(ctx, rec.ChannelID, panelMessage(uc.settings))
	if errors.Is(err, platform.ErrNotFound) {
		if err := uc.repo.Delete(ctx, rec.GuildID, rec.ChannelID); err != nil {
			return false, fmt.Errorf("delete panel record: %w", err)
		}
		uc.logger.Infow("panel channel gone, record removed", "channel_id", rec.ChannelID)
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("send panel: %w", err)
	}

	rec.MessageID = sent.ID
	if err := uc.repo.Save(ctx, rec); err != nil {
		return false, fmt.Errorf("save panel record: %w", err)
	}
	return false, nil
}
