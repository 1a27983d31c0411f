// Package usecase provides the console's application use cases.
//
// Use cases are reusable across the HTTP API and consolectl. They own the
// conversion of backend failures into user-facing outcomes.
package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"odoodeploy.io/console/internal/backend"
	"odoodeploy.io/console/internal/domain"
	"odoodeploy.io/console/internal/pkg/logger"
	"odoodeploy.io/console/internal/pkg/metrics"
	"odoodeploy.io/console/internal/progress"
)

// MessageDeployFailed is shown when the backend gives no reason.
const MessageDeployFailed = "Failed to create instance. Please try again."

// InstanceCreator starts provisioning an instance.
type InstanceCreator interface {
	CreateInstance(ctx context.Context, req backend.CreateInstanceRequest) (*backend.CreateInstanceResult, error)
}

// DeployInstanceInput is a validated Configure step.
type DeployInstanceInput struct {
	SessionID     string
	TemplateID    string
	InstanceName  string
	Email         string
	Password      string
	IncludeAddons bool
}

// DeployOutcomeKind is the terminal state of a deployment run.
type DeployOutcomeKind string

const (
	DeploySucceeded DeployOutcomeKind = "succeeded"
	DeployFailed    DeployOutcomeKind = "failed"
	DeployCancelled DeployOutcomeKind = "cancelled"
)

// DeployOutcome is the result of one run.
type DeployOutcome struct {
	Kind        DeployOutcomeKind `json:"kind"`
	InstanceURL string            `json:"instance_url,omitempty"`
	Message     string            `json:"message,omitempty"`
}

// ProgressFunc receives perceived-progress snapshots while a run is active.
type ProgressFunc func(progress.Snapshot)

// DeployInstanceUseCase runs one create-instance call alongside the
// perceived-progress animation.
type DeployInstanceUseCase struct {
	creator InstanceCreator
	policy  progress.Policy
	clock   clock.WithTicker
	events  *domain.EventDispatcher
}

// NewDeployInstanceUseCase creates a DeployInstanceUseCase.
func NewDeployInstanceUseCase(creator InstanceCreator, policy progress.Policy) *DeployInstanceUseCase {
	return &DeployInstanceUseCase{
		creator: creator,
		policy:  policy,
		clock:   clock.RealClock{},
	}
}

// WithEvents sets the domain event dispatcher (optional dependency).
func (uc *DeployInstanceUseCase) WithEvents(d *domain.EventDispatcher) *DeployInstanceUseCase {
	uc.events = d
	return uc
}

// WithClock overrides the animation clock.
func (uc *DeployInstanceUseCase) WithClock(clk clock.WithTicker) *DeployInstanceUseCase {
	uc.clock = clk
	return uc
}

// Execute issues a single create call and runs the progress animation
// concurrently. Success is reported only after the animation has shown the
// full duration. A create failure stops the animation at once. Cancelling
// ctx aborts both and yields DeployCancelled. There is no retry.
func (uc *DeployInstanceUseCase) Execute(ctx context.Context, in DeployInstanceInput, onProgress ProgressFunc) DeployOutcome {
	if onProgress == nil {
		onProgress = func(progress.Snapshot) {}
	}
	log := logger.With(
		logger.SessionID(in.SessionID),
		zap.String("instance", in.InstanceName),
	)
	payload := domain.DeploymentPayload{
		SessionID:    in.SessionID,
		InstanceName: in.InstanceName,
		TemplateID:   in.TemplateID,
	}
	uc.events.Publish(ctx, domain.EventDeploymentRequested, domain.AggregateWizardSession, in.SessionID, payload)

	req := backend.CreateInstanceRequest{
		Instance:         in.InstanceName,
		LoginEmail:       in.Email,
		LoginPassword:    in.Password,
		HelmChartID:      backend.ID(in.TemplateID),
		NeedCustomAddons: in.IncludeAddons,
	}

	var (
		result        *backend.CreateInstanceResult
		createErr     error
		createLatency time.Duration
	)
	anim := progress.NewAnimation(uc.policy, uc.clock)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return anim.Run(gctx, onProgress)
	})
	g.Go(func() error {
		start := uc.clock.Now()
		res, err := uc.creator.CreateInstance(gctx, req)
		createLatency = uc.clock.Since(start)
		if err != nil {
			createErr = err
			return err
		}
		result = res
		return nil
	})
	err := g.Wait()

	var outcome DeployOutcome
	switch {
	case ctx.Err() != nil:
		outcome = DeployOutcome{Kind: DeployCancelled}
		log.Info("Deployment cancelled")
		uc.events.Publish(context.WithoutCancel(ctx), domain.EventDeploymentCancelled, domain.AggregateWizardSession, in.SessionID, payload)
	case createErr != nil:
		outcome = DeployOutcome{Kind: DeployFailed, Message: backend.MessageOr(createErr, MessageDeployFailed)}
		log.Warn("Deployment failed", zap.Error(createErr))
		payload.Message = outcome.Message
		uc.events.Publish(ctx, domain.EventDeploymentFailed, domain.AggregateWizardSession, in.SessionID, payload)
	case err != nil:
		// Animation ended early without a create failure or cancellation.
		outcome = DeployOutcome{Kind: DeployFailed, Message: MessageDeployFailed}
		log.Error("Deployment run aborted", zap.Error(err))
	default:
		outcome = DeployOutcome{Kind: DeploySucceeded, InstanceURL: result.InstanceURL}
		log.Info("Deployment succeeded", zap.String("instance_url", result.InstanceURL))
		payload.InstanceURL = result.InstanceURL
		payload.DurationMS = createLatency.Milliseconds()
		uc.events.Publish(ctx, domain.EventDeploymentSucceeded, domain.AggregateWizardSession, in.SessionID, payload)
	}

	metrics.RecordDeployment(string(outcome.Kind), createLatency)
	return outcome
}
