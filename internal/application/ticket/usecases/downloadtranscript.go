package usecases

import (
	"context"
	"errors"

	"github.com/sportello-bot/sportello/internal/domain/permission"
	"github.com/sportello-bot/sportello/internal/domain/platform"
	"github.com/sportello-bot/sportello/internal/domain/transcript"
	apperrors "github.com/sportello-bot/sportello/internal/shared/errors"
	"github.com/sportello-bot/sportello/internal/shared/logger"
)

type DownloadTranscriptCommand struct {
	Actor permission.Actor
	Token string
}

// DownloadTranscriptResult carries the file when Found; otherwise Message is
// the private reply.
type DownloadTranscriptResult struct {
	Found   bool
	File    platform.File
	Message string
}

type DownloadTranscriptExecutor interface {
	Execute(ctx context.Context, cmd DownloadTranscriptCommand) (*DownloadTranscriptResult, error)
}

type DownloadTranscriptUseCase struct {
	store   transcript.Store
	checker permission.Checker
	logger  logger.Interface
}

func NewDownloadTranscriptUseCase(store transcript.Store, checker permission.Checker, logger logger.Interface) *DownloadTranscriptUseCase {
	return &DownloadTranscriptUseCase{
		store:   store,
		checker: checker,
		logger:  logger,
	}
}

func (uc *DownloadTranscriptUseCase) Execute(ctx context.Context, cmd DownloadTranscriptCommand) (*DownloadTranscriptResult, error) {
	allowed, err := uc.canDownload(cmd.Actor)
	if err != nil {
		uc.logger.Errorw("failed to check download permission", "user_id", cmd.Actor.UserID, "error", err)
		return nil, apperrors.NewInternalError("failed to check permissions")
	}
	if !allowed {
		return &DownloadTranscriptResult{Message: MsgNotStaff}, nil
	}

	tr, err := uc.store.Get(ctx, cmd.Token)
	if errors.Is(err, transcript.ErrNotFound) {
		return &DownloadTranscriptResult{Message: MsgTranscriptMissing}, nil
	}
	if err != nil {
		uc.logger.Errorw("failed to read transcript", "token", cmd.Token, "error", err)
		return nil, apperrors.NewInternalError("failed to read transcript")
	}

	return &DownloadTranscriptResult{
		Found: true,
		File: platform.File{
			Name:        tr.Name + ".html",
			ContentType: "text/html; charset=utf-8",
			Data:        tr.HTML,
		},
		Message: "📄 Transcript di `" + tr.Name + "`",
	}, nil
}

func (uc *DownloadTranscriptUseCase) canDownload(actor permission.Actor) (bool, error) {
	for _, act := range []permission.Action{permission.ActionManage, permission.ActionClose} {
		ok, err := uc.checker.Can(actor, permission.ResourceTicket, act)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}
