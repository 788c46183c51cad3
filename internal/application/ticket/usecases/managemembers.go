package usecases

import (
	"context"
	"fmt"

	"github.com/sportello-bot/sportello/internal/domain/permission"
	"github.com/sportello-bot/sportello/internal/domain/platform"
	apperrors "github.com/sportello-bot/sportello/internal/shared/errors"
	"github.com/sportello-bot/sportello/internal/shared/logger"
)

type MemberOp int

const (
	MemberAdd MemberOp = iota
	MemberRemove
)

func (op MemberOp) String() string {
	if op == MemberRemove {
		return "remove"
	}
	return "add"
}

type ManageMemberCommand struct {
	Op           MemberOp
	ChannelID    string
	Actor        permission.Actor
	TargetUserID string
}

type ManageMemberResult struct {
	Applied bool
	Message string
}

type ManageMemberExecutor interface {
	Execute(ctx context.Context, cmd ManageMemberCommand) (*ManageMemberResult, error)
}

// ManageMemberUseCase lets staff grant or revoke a member's access to a
// ticket channel.
type ManageMemberUseCase struct {
	platform platform.Platform
	checker  permission.Checker
	logger   logger.Interface
}

func NewManageMemberUseCase(p platform.Platform, checker permission.Checker, logger logger.Interface) *ManageMemberUseCase {
	return &ManageMemberUseCase{
		platform: p,
		checker:  checker,
		logger:   logger,
	}
}

func (uc *ManageMemberUseCase) Execute(ctx context.Context, cmd ManageMemberCommand) (*ManageMemberResult, error) {
	uc.logger.Infow("executing manage member use case",
		"op", cmd.Op,
		"channel_id", cmd.ChannelID,
		"user_id", cmd.Actor.UserID,
		"target_user_id", cmd.TargetUserID,
	)

	if cmd.TargetUserID == "" {
		return nil, apperrors.NewValidationError("target user ID is required")
	}

	allowed, err := uc.checker.Can(cmd.Actor, permission.ResourceTicket, permission.ActionManage)
	if err != nil {
		uc.logger.Errorw("failed to check manage permission", "user_id", cmd.Actor.UserID, "error", err)
		return nil, apperrors.NewInternalError("failed to check permissions")
	}
	if !allowed {
		return &ManageMemberResult{Message: MsgNotStaff}, nil
	}

	ch, err := ticketChannel(ctx, uc.platform, cmd.ChannelID)
	if err != nil {
		uc.logger.Errorw("failed to get channel", "channel_id", cmd.ChannelID, "error", err)
		return nil, apperrors.NewUpstreamError("failed to get channel", err)
	}
	if ch == nil {
		return &ManageMemberResult{Message: MsgUseInTicket}, nil
	}

	reason := fmt.Sprintf("ticket%s by %s", cmd.Op, cmd.Actor.UserID)
	var notice, reply string
	switch cmd.Op {
	case MemberRemove:
		err = uc.platform.RemoveMemberOverwrite(ctx, ch.ID, cmd.TargetUserID, reason)
		notice = fmt.Sprintf("❌ Rimosso dal Ticket: <@%s>", cmd.TargetUserID)
		reply = MsgMemberRemoved(cmd.TargetUserID)
	default:
		err = uc.platform.SetMemberOverwrite(ctx, ch.ID, cmd.TargetUserID, platform.PermTicketMember, reason)
		notice = fmt.Sprintf("✅ Aggiunto al Ticket: <@%s>", cmd.TargetUserID)
		reply = MsgMemberAdded(cmd.TargetUserID)
	}
	if err != nil {
		uc.logger.Errorw("failed to update member overwrite",
			"op", cmd.Op,
			"channel_id", ch.ID,
			"target_user_id", cmd.TargetUserID,
			"error", err,
		)
		return nil, apperrors.NewUpstreamError("failed to update channel permissions", err)
	}

	if _, err := uc.platform.SendMessage(ctx, ch.ID, platform.MessageSend{Content: notice}); err != nil {
		uc.logger.Warnw("failed to post member notice", "channel_id", ch.ID, "error", err)
	}

	return &ManageMemberResult{Applied: true, Message: reply}, nil
}
