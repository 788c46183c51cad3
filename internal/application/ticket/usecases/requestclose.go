package usecases

import (
	"context"

	"github.com/sportello-bot/sportello/internal/domain/permission"
	"github.com/sportello-bot/sportello/internal/domain/platform"
	apperrors "github.com/sportello-bot/sportello/internal/shared/errors"
	"github.com/sportello-bot/sportello/internal/shared/logger"
)

type RequestCloseCommand struct {
	ChannelID string
	Actor     permission.Actor
}

// RequestCloseResult tells the caller whether to show the reason form. When
// Allowed is false, Message is the private reply.
type RequestCloseResult struct {
	Allowed bool
	Status  CloseStatus
	Message string
}

type RequestCloseExecutor interface {
	Execute(ctx context.Context, cmd RequestCloseCommand) (*RequestCloseResult, error)
}

// RequestCloseUseCase handles the close button. It only validates; the close
// itself happens when the reason form comes back.
type RequestCloseUseCase struct {
	platform platform.Platform
	checker  permission.Checker
	coord    *Coordinator
	settings Settings
	logger   logger.Interface
}

func NewRequestCloseUseCase(
	p platform.Platform,
	checker permission.Checker,
	coord *Coordinator,
	settings Settings,
	logger logger.Interface,
) *RequestCloseUseCase {
	return &RequestCloseUseCase{
		platform: p,
		checker:  checker,
		coord:    coord,
		settings: settings,
		logger:   logger,
	}
}

func (uc *RequestCloseUseCase) Execute(ctx context.Context, cmd RequestCloseCommand) (*RequestCloseResult, error) {
	ch, err := ticketChannel(ctx, uc.platform, cmd.ChannelID)
	if err != nil {
		uc.logger.Errorw("failed to get channel", "channel_id", cmd.ChannelID, "error", err)
		return nil, apperrors.NewUpstreamError("failed to get channel", err)
	}
	if ch == nil {
		return &RequestCloseResult{Status: CloseNotTicket, Message: MsgNotTicketChannel}, nil
	}

	allowed, err := uc.checker.Can(cmd.Actor, permission.ResourceTicket, permission.ActionClose)
	if err != nil {
		uc.logger.Errorw("failed to check close permission", "user_id", cmd.Actor.UserID, "error", err)
		return nil, apperrors.NewInternalError("failed to check permissions")
	}
	if !allowed {
		return &RequestCloseResult{Status: CloseForbidden, Message: MsgCloseForbidden(uc.settings.CloseRoleID)}, nil
	}

	if uc.coord.IsClosing(ch.ID) {
		return &RequestCloseResult{Status: CloseAlreadyClosing, Message: MsgAlreadyClosing}, nil
	}

	return &RequestCloseResult{Allowed: true, Status: CloseAccepted}, nil
}
