package usecases

import (
	"context"
	"fmt"

	"github.com/sportello-bot/sportello/internal/application/idempotency"
	"github.com/sportello-bot/sportello/internal/domain/platform"
	apperrors "github.com/sportello-bot/sportello/internal/shared/errors"
	"github.com/sportello-bot/sportello/internal/shared/logger"
)

// Settings are the deployment values member events read.
type Settings struct {
	JoinRoleID       string
	WelcomeChannelID string
}

type MemberEvent string

const (
	MemberJoined MemberEvent = "joined"
	MemberLeft   MemberEvent = "left"
)

type GreetMemberCommand struct {
	Event    MemberEvent
	GuildID  string
	UserID   string
	Username string
}

type GreetMemberResult struct {
	RoleAssigned bool
	NoticeSent   bool
}

type GreetMemberExecutor interface {
	Execute(ctx context.Context, cmd GreetMemberCommand) (*GreetMemberResult, error)
}

// GreetMemberUseCase assigns the join role and posts a welcome or goodbye
// notice. Every step is best-effort; failures are logged and skipped.
type GreetMemberUseCase struct {
	platform platform.Platform
	guard    *idempotency.Guard
	settings Settings
	logger   logger.Interface
}

func NewGreetMemberUseCase(p platform.Platform, guard *idempotency.Guard, settings Settings, logger logger.Interface) *GreetMemberUseCase {
	return &GreetMemberUseCase{
		platform: p,
		guard:    guard,
		settings: settings,
		logger:   logger,
	}
}

func (uc *GreetMemberUseCase) Execute(ctx context.Context, cmd GreetMemberCommand) (*GreetMemberResult, error) {
	if cmd.GuildID == "" || cmd.UserID == "" {
		return nil, apperrors.NewValidationError("guild and user are required")
	}

	claimed, err := uc.guard.Claim(ctx, idempotency.WelcomeKey(string(cmd.Event), cmd.GuildID+":"+cmd.UserID))
	if err != nil {
		uc.logger.Warnw("failed to claim member notice", "user_id", cmd.UserID, "event", cmd.Event, "error", err)
		return &GreetMemberResult{}, nil
	}
	if !claimed {
		return &GreetMemberResult{}, nil
	}

	result := &GreetMemberResult{}
	if cmd.Event == MemberJoined && uc.settings.JoinRoleID != "" {
		if err := uc.platform.AssignRole(ctx, cmd.GuildID, cmd.UserID, uc.settings.JoinRoleID); err != nil {
			uc.logger.Warnw("failed to assign join role", "user_id", cmd.UserID, "role_id", uc.settings.JoinRoleID, "error", err)
		} else {
			result.RoleAssigned = true
		}
	}

	if uc.settings.WelcomeChannelID == "" {
		return result, nil
	}
	msg, err := uc.notice(ctx, cmd)
	if err != nil {
		uc.logger.Warnw("failed to build member notice", "user_id", cmd.UserID, "error", err)
		return result, nil
	}
	if _, err := uc.platform.SendMessage(ctx, uc.settings.WelcomeChannelID, msg); err != nil {
		uc.logger.Warnw("failed to send member notice", "user_id", cmd.UserID, "event", cmd.Event, "error", err)
		return result, nil
	}
	result.NoticeSent = true

	uc.logger.Infow("member notice sent", "user_id", cmd.UserID, "event", cmd.Event)
	return result, nil
}

func (uc *GreetMemberUseCase) notice(ctx context.Context, cmd GreetMemberCommand) (platform.MessageSend, error) {
	switch cmd.Event {
	case MemberJoined:
		guildName, err := uc.platform.GuildName(ctx, cmd.GuildID)
		if err != nil {
			uc.logger.Warnw("failed to resolve guild name", "guild_id", cmd.GuildID, "error", err)
		}
		return platform.MessageSend{
			Content:      fmt.Sprintf("👋 Benvenuto <@%s> nella **%s**!", cmd.UserID, guildName),
			MentionUsers: []string{cmd.UserID},
		}, nil
	case MemberLeft:
		name := cmd.Username
		if name == "" {
			name = "<@" + cmd.UserID + ">"
		}
		return platform.MessageSend{
			Content: fmt.Sprintf("👋 **%s** ha lasciato il server.", name),
		}, nil
	}
	return platform.MessageSend{}, fmt.Errorf("unknown member event %q", cmd.Event)
}
