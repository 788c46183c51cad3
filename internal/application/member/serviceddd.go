package member

import (
	"context"

	"github.com/sportello-bot/sportello/internal/application/idempotency"
	"github.com/sportello-bot/sportello/internal/application/member/usecases"
	"github.com/sportello-bot/sportello/internal/domain/platform"
	"github.com/sportello-bot/sportello/internal/shared/logger"
)

type ServiceDDD struct {
	greetMember *usecases.GreetMemberUseCase
}

func NewServiceDDD(p platform.Platform, guard *idempotency.Guard, settings usecases.Settings, logger logger.Interface) *ServiceDDD {
	return &ServiceDDD{
		greetMember: usecases.NewGreetMemberUseCase(p, guard, settings, logger),
	}
}

func (s *ServiceDDD) GreetMember(ctx context.Context, cmd usecases.GreetMemberCommand) (*usecases.GreetMemberResult, error) {
	return s.greetMember.Execute(ctx, cmd)
}
