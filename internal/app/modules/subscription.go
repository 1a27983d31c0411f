package modules

import (
	"context"

	"odoodeploy.io/console/internal/api/handlers"
	"odoodeploy.io/console/internal/usecase"
)

// SubscriptionModule wires manual subscription activation.
type SubscriptionModule struct {
	activateUC *usecase.ActivateSubscriptionUseCase
}

// NewSubscriptionModule creates a subscription module with explicit constructor wiring.
func NewSubscriptionModule(infra *Infrastructure) *SubscriptionModule {
	return &SubscriptionModule{
		activateUC: usecase.NewActivateSubscriptionUseCase(infra.Backend).WithEvents(infra.Events),
	}
}

func (m *SubscriptionModule) Name() string { return "subscription" }

func (m *SubscriptionModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	if deps == nil {
		return
	}
	deps.ActivateUC = m.activateUC
}

func (m *SubscriptionModule) Start(context.Context) error { return nil }

func (m *SubscriptionModule) Shutdown(context.Context) error { return nil }
