package panel

import (
	"context"
	"time"

	"github.com/sportello-bot/sportello/internal/application/idempotency"
	"github.com/sportello-bot/sportello/internal/application/panel/usecases"
	"github.com/sportello-bot/sportello/internal/domain/panel"
	"github.com/sportello-bot/sportello/internal/domain/permission"
	"github.com/sportello-bot/sportello/internal/domain/platform"
	"github.com/sportello-bot/sportello/internal/shared/logger"
)

type ServiceDDD struct {
	showPanel     *usecases.ShowPanelUseCase
	refreshPanels *usecases.RefreshPanelsUseCase
}

func NewServiceDDD(
	p platform.Platform,
	repo panel.Repository,
	checker permission.Checker,
	guard *idempotency.Guard,
	lockTTL time.Duration,
	settings usecases.Settings,
	logger logger.Interface,
) *ServiceDDD {
	return &ServiceDDD{
		showPanel:     usecases.NewShowPanelUseCase(p, repo, checker, guard, lockTTL, settings, logger),
		refreshPanels: usecases.NewRefreshPanelsUseCase(p, repo, guard, lockTTL, settings, logger),
	}
}

func (s *ServiceDDD) ShowPanel(ctx context.Context, cmd usecases.ShowPanelCommand) (*usecases.ShowPanelResult, error) {
	return s.showPanel.Execute(ctx, cmd)
}

func (s *ServiceDDD) RefreshPanels(ctx context.Context) (*usecases.RefreshPanelsResult, error) {
	return s.refreshPanels.Execute(ctx)
}
