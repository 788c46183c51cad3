package ticket

import (
	"context"

	"github.com/sportello-bot/sportello/internal/application/idempotency"
	"github.com/sportello-bot/sportello/internal/application/ticket/usecases"
	"github.com/sportello-bot/sportello/internal/domain/permission"
	"github.com/sportello-bot/sportello/internal/domain/platform"
	"github.com/sportello-bot/sportello/internal/domain/transcript"
	"github.com/sportello-bot/sportello/internal/shared/goroutine"
	"github.com/sportello-bot/sportello/internal/shared/logger"
)

// ServiceDDD is the ticket lifecycle as seen by the bot dispatcher.
type ServiceDDD struct {
	logger logger.Interface
	coord  *usecases.Coordinator

	openTicket         *usecases.OpenTicketUseCase
	requestClose       *usecases.RequestCloseUseCase
	closeTicket        *usecases.CloseTicketUseCase
	manageMember       *usecases.ManageMemberUseCase
	downloadTranscript *usecases.DownloadTranscriptUseCase
}

func NewServiceDDD(
	p platform.Platform,
	checker permission.Checker,
	guard *idempotency.Guard,
	renderer transcript.Renderer,
	store transcript.Store,
	settings usecases.Settings,
	logger logger.Interface,
) *ServiceDDD {
	coord := usecases.NewCoordinator(logger)
	artifact := usecases.NewArtifactPipeline(p, renderer, store, guard, settings, logger)
	return &ServiceDDD{
		logger: logger,
		coord:  coord,

		openTicket:         usecases.NewOpenTicketUseCase(p, checker, guard, coord, settings, logger),
		requestClose:       usecases.NewRequestCloseUseCase(p, checker, coord, settings, logger),
		closeTicket:        usecases.NewCloseTicketUseCase(p, checker, guard, coord, artifact, settings, logger),
		manageMember:       usecases.NewManageMemberUseCase(p, checker, logger),
		downloadTranscript: usecases.NewDownloadTranscriptUseCase(store, checker, logger),
	}
}

func (s *ServiceDDD) OpenTicket(ctx context.Context, cmd usecases.OpenTicketCommand) (*usecases.OpenTicketResult, error) {
	return s.openTicket.Execute(ctx, cmd)
}

func (s *ServiceDDD) RequestClose(ctx context.Context, cmd usecases.RequestCloseCommand) (*usecases.RequestCloseResult, error) {
	return s.requestClose.Execute(ctx, cmd)
}

func (s *ServiceDDD) CloseTicket(ctx context.Context, cmd usecases.CloseTicketCommand) (*usecases.CloseTicketResult, error) {
	return s.closeTicket.Execute(ctx, cmd)
}

func (s *ServiceDDD) ManageMember(ctx context.Context, cmd usecases.ManageMemberCommand) (*usecases.ManageMemberResult, error) {
	return s.manageMember.Execute(ctx, cmd)
}

func (s *ServiceDDD) DownloadTranscript(ctx context.Context, cmd usecases.DownloadTranscriptCommand) (*usecases.DownloadTranscriptResult, error) {
	return s.downloadTranscript.Execute(ctx, cmd)
}

// OnPanic routes panics in scheduled deletions and welcome messages to fn.
func (s *ServiceDDD) OnPanic(fn goroutine.PanicHandler) {
	s.coord.OnPanic(fn)
}

// Wait blocks until scheduled deletions and welcome messages have finished.
func (s *ServiceDDD) Wait() {
	s.coord.Wait()
}
