package modules

import (
	"context"

	"odoodeploy.io/console/internal/api/handlers"
	"odoodeploy.io/console/internal/progress"
	"odoodeploy.io/console/internal/service"
	"odoodeploy.io/console/internal/usecase"
)

// WizardModule wires the deployment wizard and its deploy use case.
type WizardModule struct {
	infra    *Infrastructure
	deployUC *usecase.DeployInstanceUseCase
	wizard   *service.WizardService
}

// NewWizardModule creates a wizard module with explicit constructor wiring.
func NewWizardModule(ctx context.Context, infra *Infrastructure) *WizardModule {
	cfg := infra.Config.Wizard
	deployUC := usecase.NewDeployInstanceUseCase(infra.Backend, progress.Policy{
		Duration: cfg.ProgressDuration,
		Tick:     cfg.ProgressTick,
	}).WithEvents(infra.Events)

	wizardSvc := service.NewWizardService(ctx, infra.Backend, deployUC, infra.Pools, service.WizardOptions{
		Debounce:    cfg.Debounce,
		IdleTimeout: cfg.SessionIdleTimeout,
	})

	return &WizardModule{
		infra:    infra,
		deployUC: deployUC,
		wizard:   wizardSvc,
	}
}

func (m *WizardModule) Name() string { return "wizard" }

func (m *WizardModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	if deps == nil {
		return
	}
	deps.Wizard = m.wizard
}

// Start launches the idle session janitor.
func (m *WizardModule) Start(context.Context) error {
	return m.wizard.StartJanitor()
}

func (m *WizardModule) Shutdown(context.Context) error {
	m.wizard.Shutdown()
	return nil
}
