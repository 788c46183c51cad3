package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sportello-bot/sportello/internal/application/idempotency"
	"github.com/sportello-bot/sportello/internal/domain/permission"
	"github.com/sportello-bot/sportello/internal/domain/platform"
	"github.com/sportello-bot/sportello/internal/domain/ticket"
	vo "github.com/sportello-bot/sportello/internal/domain/ticket/valueobjects"
	apperrors "github.com/sportello-bot/sportello/internal/shared/errors"
	"github.com/sportello-bot/sportello/internal/shared/logger"
)

const welcomeTimeout = 30 * time.Second

type OpenStatus string

const (
	OpenCreated       OpenStatus = "created"
	OpenAlreadyExists OpenStatus = "already_exists"
	OpenInProgress    OpenStatus = "in_progress"
	OpenComingSoon    OpenStatus = "coming_soon"
	OpenOutsideHours  OpenStatus = "outside_hours"
)

type OpenTicketCommand struct {
	GuildID  string
	Actor    permission.Actor
	Category vo.Category
}

type OpenTicketResult struct {
	Status    OpenStatus
	ChannelID string
	// Message is the private reply for the actor.
	Message string
}

type OpenTicketExecutor interface {
	Execute(ctx context.Context, cmd OpenTicketCommand) (*OpenTicketResult, error)
}

type OpenTicketUseCase struct {
	platform platform.Platform
	checker  permission.Checker
	guard    *idempotency.Guard
	coord    *Coordinator
	settings Settings
	logger   logger.Interface
	now      func() time.Time
}

func NewOpenTicketUseCase(
	p platform.Platform,
	checker permission.Checker,
	guard *idempotency.Guard,
	coord *Coordinator,
	settings Settings,
	logger logger.Interface,
) *OpenTicketUseCase {
	return &OpenTicketUseCase{
		platform: p,
		checker:  checker,
		guard:    guard,
		coord:    coord,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

func (uc *OpenTicketUseCase) Execute(ctx context.Context, cmd OpenTicketCommand) (*OpenTicketResult, error) {
	uc.logger.Infow("executing open ticket use case",
		"guild_id", cmd.GuildID,
		"user_id", cmd.Actor.UserID,
		"category", cmd.Category,
	)

	if err := uc.validateCommand(cmd); err != nil {
		uc.logger.Errorw("invalid open ticket command", "error", err)
		return nil, err
	}

	if cmd.Category == vo.CategoryFactional {
		return &OpenTicketResult{Status: OpenComingSoon, Message: MsgComingSoon}, nil
	}

	if !uc.settings.SupportHours.IsOpen(uc.now()) {
		bypass, err := uc.checker.Can(cmd.Actor, permission.ResourceTicket, permission.ActionBypassHours)
		if err != nil {
			uc.logger.Errorw("failed to check bypass permission", "user_id", cmd.Actor.UserID, "error", err)
			return nil, apperrors.NewInternalError("failed to check permissions")
		}
		if !bypass {
			return &OpenTicketResult{
				Status:  OpenOutsideHours,
				Message: MsgOutsideHours(uc.settings.SupportHours, uc.settings.BypassRoleID),
			}, nil
		}
	}

	release, err := uc.guard.Hold(ctx, idempotency.OpenKey(cmd.GuildID, cmd.Actor.UserID), uc.settings.OpenLockTTL)
	if err != nil {
		uc.logger.Errorw("failed to acquire open lock", "user_id", cmd.Actor.UserID, "error", err)
		return nil, apperrors.NewInternalError("failed to acquire open lock")
	}
	if release == nil {
		return &OpenTicketResult{Status: OpenInProgress, Message: MsgOpenInProgress}, nil
	}
	defer release()

	existing, err := uc.findOpenTicket(ctx, cmd.GuildID, cmd.Actor.UserID)
	if err != nil {
		uc.logger.Errorw("failed to scan guild channels", "guild_id", cmd.GuildID, "error", err)
		return nil, apperrors.NewUpstreamError("failed to scan guild channels", err)
	}
	if existing != "" {
		uc.logger.Infow("user already has an open ticket", "user_id", cmd.Actor.UserID, "channel_id", existing)
		return &OpenTicketResult{Status: OpenAlreadyExists, ChannelID: existing, Message: MsgAlreadyOpen(existing)}, nil
	}

	t, err := ticket.NewTicket(cmd.GuildID, cmd.Category, cmd.Actor.UserID, cmd.Actor.Username, uc.now())
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	ch, err := uc.createChannel(ctx, t)
	if err != nil {
		uc.logger.Errorw("failed to create ticket channel", "user_id", cmd.Actor.UserID, "error", err)
		return nil, apperrors.NewUpstreamError("failed to create ticket channel", err)
	}
	if err := t.MarkCreated(ch.ID, ch.ParentID); err != nil {
		return nil, apperrors.NewInternalError(err.Error())
	}

	uc.coord.Go("ticket-welcome", func() {
		wctx, cancel := context.WithTimeout(context.Background(), welcomeTimeout)
		defer cancel()
		uc.sendWelcome(wctx, t)
	})

	uc.logger.Infow("ticket opened",
		"channel_id", ch.ID,
		"channel_name", t.Name(),
		"user_id", cmd.Actor.UserID,
		"category", cmd.Category,
	)

	return &OpenTicketResult{Status: OpenCreated, ChannelID: ch.ID, Message: MsgOpened(ch.ID)}, nil
}

func (uc *OpenTicketUseCase) validateCommand(cmd OpenTicketCommand) error {
	if cmd.GuildID == "" {
		return apperrors.NewValidationError("guild ID is required")
	}
	if cmd.Actor.UserID == "" {
		return apperrors.NewValidationError("user ID is required")
	}
	if !cmd.Category.IsValid() {
		return apperrors.NewValidationError("invalid category", cmd.Category.String())
	}
	return nil
}

// findOpenTicket scans the guild's channels fresh from the platform and
// returns the ticket channel owned by userID, if any.
func (uc *OpenTicketUseCase) findOpenTicket(ctx context.Context, guildID, userID string) (string, error) {
	channels, err := uc.platform.GuildChannels(ctx, guildID)
	if err != nil {
		return "", err
	}
	for _, ch := range channels {
		if !ch.Text || !ticket.IsTicketChannelName(ch.Name) {
			continue
		}
		if ticket.ParseOwner(ch.Topic) == userID {
			return ch.ID, nil
		}
	}
	return "", nil
}

func (uc *OpenTicketUseCase) createChannel(ctx context.Context, t *ticket.Ticket) (*platform.Channel, error) {
	req := platform.CreateChannelRequest{
		GuildID:    t.GuildID(),
		Name:       t.Name(),
		ParentID:   uc.settings.ParentFor(t.Category()),
		Topic:      t.Topic(),
		Overwrites: uc.overwrites(t),
		Reason:     createReason,
	}

	ch, err := uc.platform.CreateTextChannel(ctx, req)
	if err == nil {
		return ch, nil
	}

	uc.logger.Warnw("preferred ticket name rejected, retrying with fallback name",
		"channel_name", req.Name,
		"error", err,
	)
	t.UseFallbackName()
	req.Name = t.Name()
	ch, retryErr := uc.platform.CreateTextChannel(ctx, req)
	if retryErr != nil {
		return nil, fmt.Errorf("create channel: %w", errors.Join(err, retryErr))
	}
	return ch, nil
}

func (uc *OpenTicketUseCase) overwrites(t *ticket.Ticket) []platform.Overwrite {
	ows := []platform.Overwrite{
		// The @everyone role shares the guild's id.
		{ID: t.GuildID(), Kind: platform.OverwriteRole, Deny: platform.PermViewChannel},
		{ID: t.OwnerID(), Kind: platform.OverwriteMember, Allow: platform.PermTicketMember},
	}
	if uc.settings.StaffRoleID != "" {
		ows = append(ows, platform.Overwrite{ID: uc.settings.StaffRoleID, Kind: platform.OverwriteRole, Allow: platform.PermTicketMember})
	}
	return ows
}

// sendWelcome posts and pins the welcome message, then removes the pin notice
// the platform leaves behind. Redeliveries are collapsed by the welcome key.
func (uc *OpenTicketUseCase) sendWelcome(ctx context.Context, t *ticket.Ticket) {
	claimed, err := uc.guard.Claim(ctx, idempotency.WelcomeKey("ticket", t.ChannelID()))
	if err != nil {
		uc.logger.Warnw("failed to claim welcome key", "channel_id", t.ChannelID(), "error", err)
		return
	}
	if !claimed {
		return
	}

	guildName, err := uc.platform.GuildName(ctx, t.GuildID())
	if err != nil {
		uc.logger.Warnw("failed to resolve guild name", "guild_id", t.GuildID(), "error", err)
	}

	msg, err := uc.platform.SendMessage(ctx, t.ChannelID(), welcomeMessage(t, guildName, uc.settings.ThumbnailURL))
	if err != nil {
		uc.logger.Warnw("failed to send welcome message", "channel_id", t.ChannelID(), "error", err)
		return
	}
	if err := uc.platform.PinMessage(ctx, t.ChannelID(), msg.ID); err != nil {
		uc.logger.Warnw("failed to pin welcome message", "channel_id", t.ChannelID(), "error", err)
		return
	}

	recent, err := uc.platform.RecentMessages(ctx, t.ChannelID(), 5)
	if err != nil {
		uc.logger.Warnw("failed to fetch recent messages", "channel_id", t.ChannelID(), "error", err)
		return
	}
	for _, m := range recent {
		if !m.PinNotice {
			continue
		}
		if err := uc.platform.DeleteMessage(ctx, t.ChannelID(), m.ID); err != nil {
			uc.logger.Warnw("failed to delete pin notice", "channel_id", t.ChannelID(), "error", err)
		}
	}
}
