// Package service hosts the console's stateful services.
//
// Services return *AppError values from internal/pkg/errors so handlers can
// pass them straight to c.Error.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"odoodeploy.io/console/internal/availability"
	apperrors "odoodeploy.io/console/internal/pkg/errors"
	"odoodeploy.io/console/internal/pkg/logger"
	"odoodeploy.io/console/internal/pkg/metrics"
	"odoodeploy.io/console/internal/pkg/worker"
	"odoodeploy.io/console/internal/usecase"
	"odoodeploy.io/console/internal/validation"
	"odoodeploy.io/console/internal/wizard"
)

// WizardBackend is what a wizard view needs from the platform backend
// besides creating instances.
type WizardBackend interface {
	availability.Prober
	GetSubdomainSuffix(ctx context.Context) (string, error)
}

// WizardOptions tunes the service.
type WizardOptions struct {
	Debounce    time.Duration
	IdleTimeout time.Duration
	Clock       clock.WithTickerAndDelayedExecution
}

// WizardService owns the open wizard views. Each view bundles a session, its
// availability checker and any running deployment, all bound to a context
// that teardown cancels.
type WizardService struct {
	ctx     context.Context
	backend WizardBackend
	deploy  *usecase.DeployInstanceUseCase
	pools   *worker.Pools
	opts    WizardOptions

	mu    sync.Mutex
	views map[string]*wizardView
}

type wizardView struct {
	ctx     context.Context
	cancel  context.CancelFunc
	session *wizard.Session
	checker *availability.Checker

	// editMu keeps a field edit and the availability check it schedules
	// in the same order across concurrent PATCHes.
	editMu sync.Mutex

	mu           sync.Mutex
	deployGen    uint64
	deployCancel context.CancelFunc
}

// NewWizardService creates a WizardService. Views are bound to ctx.
func NewWizardService(
	ctx context.Context,
	b WizardBackend,
	deploy *usecase.DeployInstanceUseCase,
	pools *worker.Pools,
	opts WizardOptions,
) *WizardService {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Debounce <= 0 {
		opts.Debounce = availability.DefaultDebounce
	}
	return &WizardService{
		ctx:     ctx,
		backend: b,
		deploy:  deploy,
		pools:   pools,
		opts:    opts,
		views:   make(map[string]*wizardView),
	}
}

// Create opens a new wizard view and starts loading the subdomain suffix.
func (s *WizardService) Create(_ context.Context) (wizard.View, error) {
	id := generateSessionID()
	viewCtx, cancel := context.WithCancel(s.ctx)

	session := wizard.NewSession(id, s.opts.Clock)
	v := &wizardView{ctx: viewCtx, cancel: cancel, session: session}
	v.checker = availability.NewChecker(viewCtx, s.backend, session.SetAvailability,
		availability.WithClock(s.opts.Clock),
		availability.WithDebounce(s.opts.Debounce),
	)

	s.mu.Lock()
	s.views[id] = v
	n := len(s.views)
	s.mu.Unlock()
	metrics.SetWizardSessions(n)

	if err := s.pools.General.Submit(viewCtx, func(ctx context.Context) {
		s.loadSuffix(ctx, v)
	}); err != nil {
		logger.Warn("Could not schedule subdomain lookup", logger.SessionID(id), zap.Error(err))
	}

	logger.Debug("Wizard session opened", logger.SessionID(id))
	return session.View(), nil
}

// loadSuffix fetches the subdomain suffix once per view. Until it arrives
// resolved domains are empty.
func (s *WizardService) loadSuffix(ctx context.Context, v *wizardView) {
	suffix, err := s.backend.GetSubdomainSuffix(ctx)
	if err != nil {
		logger.Warn("Failed to load subdomain suffix",
			logger.SessionID(v.session.ID()),
			zap.Error(err),
		)
		return
	}
	v.checker.SetSuffix(suffix)
}

// Get returns the current view of a session.
func (s *WizardService) Get(id string) (wizard.View, error) {
	v, err := s.lookup(id)
	if err != nil {
		return wizard.View{}, err
	}
	return v.session.View(), nil
}

// Delete tears a view down: pending checks stop and a running deployment is
// cancelled.
func (s *WizardService) Delete(id string) error {
	s.mu.Lock()
	v, ok := s.views[id]
	delete(s.views, id)
	n := len(s.views)
	s.mu.Unlock()

	if !ok {
		return apperrors.WizardSessionNotFound(id)
	}
	v.teardown()
	metrics.SetWizardSessions(n)
	logger.Debug("Wizard session closed", logger.SessionID(id))
	return nil
}

// SelectTemplate picks a template on the Template step.
func (s *WizardService) SelectTemplate(id, templateID string) (wizard.View, error) {
	return s.apply(id, func(v *wizardView) error {
		return v.session.SelectTemplate(templateID)
	})
}

// Next advances Template → Configure.
func (s *WizardService) Next(id string) (wizard.View, error) {
	return s.apply(id, func(v *wizardView) error {
		return v.session.Next()
	})
}

// Back returns Configure → Template.
func (s *WizardService) Back(id string) (wizard.View, error) {
	return s.apply(id, func(v *wizardView) error {
		return v.session.Back()
	})
}

// UpdateFields applies a form edit. A changed instance name schedules a
// debounced availability check.
func (s *WizardService) UpdateFields(id string, patch wizard.FieldPatch) (wizard.View, error) {
	return s.apply(id, func(v *wizardView) error {
		v.editMu.Lock()
		defer v.editMu.Unlock()

		changed, err := v.session.UpdateFields(patch)
		if err != nil {
			return err
		}
		if changed {
			v.checker.Schedule(*patch.InstanceName)
		}
		return nil
	})
}

// CheckAvailability probes the current instance name immediately.
func (s *WizardService) CheckAvailability(ctx context.Context, id string) (wizard.View, error) {
	v, err := s.lookup(id)
	if err != nil {
		return wizard.View{}, err
	}
	v.checker.CheckNow(ctx, v.session.View().Fields.InstanceName)
	return v.session.View(), nil
}

// Deploy moves Configure → Deploying and starts the deployment on the deploy
// pool. The returned view is on the Deploying step; poll Get for progress.
func (s *WizardService) Deploy(id string) (wizard.View, error) {
	v, err := s.lookup(id)
	if err != nil {
		return wizard.View{}, err
	}

	req, err := v.session.BeginDeploy()
	if err != nil {
		return v.session.View(), translateWizardErr(id, err)
	}

	runCtx, gen := v.startDeploy()

	input := usecase.DeployInstanceInput{
		SessionID:     id,
		TemplateID:    req.TemplateID,
		InstanceName:  req.Fields.InstanceName,
		Email:         req.Fields.Email,
		Password:      req.Fields.Password,
		IncludeAddons: req.Fields.IncludeAddons,
	}
	err = s.pools.Deploy.Submit(runCtx, func(ctx context.Context) {
		defer v.endDeploy(gen)
		s.runDeploy(ctx, v, input)
	})
	if err != nil {
		v.endDeploy(gen)
		msg := "The deployment could not be started, please try again"
		_ = v.session.FailDeploy(msg)
		logger.Warn("Deployment not scheduled", logger.SessionID(id), zap.Error(err))
		return v.session.View(), apperrors.Unavailable(apperrors.CodeDeploymentFailed, msg).WithCause(err)
	}
	return v.session.View(), nil
}

func (s *WizardService) runDeploy(ctx context.Context, v *wizardView, in usecase.DeployInstanceInput) {
	out := s.deploy.Execute(ctx, in, v.session.SetProgress)
	switch out.Kind {
	case usecase.DeploySucceeded:
		_ = v.session.CompleteDeploy(out.InstanceURL)
	case usecase.DeployFailed:
		_ = v.session.FailDeploy(out.Message)
	case usecase.DeployCancelled:
		// The view was reset or torn down; it already reflects that.
	}
}

// Reset returns the wizard to Template with empty fields, cancelling any
// running deployment and pending check.
func (s *WizardService) Reset(id string) (wizard.View, error) {
	return s.apply(id, func(v *wizardView) error {
		v.cancelDeploy()
		v.checker.Cancel()
		v.session.Reset()
		return nil
	})
}

// Len returns the number of open views.
func (s *WizardService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

// StartJanitor sweeps idle views on the general pool until the pools shut
// down. It is a no-op when IdleTimeout is zero.
func (s *WizardService) StartJanitor() error {
	if s.opts.IdleTimeout <= 0 {
		return nil
	}
	return s.pools.SubmitDetached("general", func(ctx context.Context) {
		interval := s.opts.IdleTimeout / 2
		ticker := s.opts.Clock.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				if n := s.Sweep(); n > 0 {
					logger.Info("Swept idle wizard sessions", zap.Int("count", n))
				}
			}
		}
	})
}

// Sweep closes views idle for longer than IdleTimeout. Views that are
// deploying are kept. It returns the number closed.
func (s *WizardService) Sweep() int {
	if s.opts.IdleTimeout <= 0 {
		return 0
	}
	now := s.opts.Clock.Now()

	s.mu.Lock()
	var idle []*wizardView
	for id, v := range s.views {
		if v.session.Step() == wizard.StepDeploying {
			continue
		}
		if now.Sub(v.session.UpdatedAt()) >= s.opts.IdleTimeout {
			idle = append(idle, v)
			delete(s.views, id)
		}
	}
	n := len(s.views)
	s.mu.Unlock()

	for _, v := range idle {
		v.teardown()
	}
	if len(idle) > 0 {
		metrics.SetWizardSessions(n)
	}
	return len(idle)
}

// Shutdown tears down every view.
func (s *WizardService) Shutdown() {
	s.mu.Lock()
	views := s.views
	s.views = make(map[string]*wizardView)
	s.mu.Unlock()

	for _, v := range views {
		v.teardown()
	}
	metrics.SetWizardSessions(0)
}

func (s *WizardService) lookup(id string) (*wizardView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[id]
	if !ok {
		return nil, apperrors.WizardSessionNotFound(id)
	}
	return v, nil
}

func (s *WizardService) apply(id string, fn func(v *wizardView) error) (wizard.View, error) {
	v, err := s.lookup(id)
	if err != nil {
		return wizard.View{}, err
	}
	if err := fn(v); err != nil {
		return v.session.View(), translateWizardErr(id, err)
	}
	return v.session.View(), nil
}

// startDeploy derives a run context from the view and returns its
// generation, so a finished run never clears a newer run's cancel func.
func (v *wizardView) startDeploy() (context.Context, uint64) {
	ctx, cancel := context.WithCancel(v.ctx)
	v.mu.Lock()
	defer v.mu.Unlock()
	v.deployGen++
	v.deployCancel = cancel
	return ctx, v.deployGen
}

func (v *wizardView) endDeploy(gen uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.deployGen == gen && v.deployCancel != nil {
		v.deployCancel()
		v.deployCancel = nil
	}
}

func (v *wizardView) cancelDeploy() {
	v.mu.Lock()
	cancel := v.deployCancel
	v.deployCancel = nil
	v.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (v *wizardView) teardown() {
	v.cancelDeploy()
	v.checker.Stop()
	v.cancel()
}

// translateWizardErr maps state machine errors to API errors.
func translateWizardErr(id string, err error) error {
	var verr *wizard.ValidationError
	switch {
	case errors.As(err, &verr):
		return apperrors.ValidationFailed(fieldErrors(verr.Validation)...).WithCause(err)
	case errors.Is(err, wizard.ErrNoTemplateSelected):
		return apperrors.Unprocessable(apperrors.CodeWizardTemplateMissing, wizard.MessageSelectTemplate).WithCause(err)
	case errors.Is(err, wizard.ErrNameUnavailable):
		return apperrors.Conflict(apperrors.CodeNameUnavailable, "the instance name has not been confirmed available").WithCause(err)
	case errors.Is(err, wizard.ErrInvalidTransition):
		return apperrors.Conflict(apperrors.CodeWizardInvalidStep, "this action is not allowed on the current step").
			WithCause(err).
			WithParam("session_id", id)
	default:
		return err
	}
}

func fieldErrors(v wizard.Validation) []apperrors.FieldError {
	var out []apperrors.FieldError
	for _, f := range []struct {
		name string
		res  validation.Result
	}{
		{"instance_name", v.InstanceName},
		{"email", v.Email},
		{"password", v.Password},
	} {
		if !f.res.Valid {
			out = append(out, apperrors.FieldError{Field: f.name, Code: string(f.res.Code), Message: f.res.Message})
		}
	}
	return out
}

func generateSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
