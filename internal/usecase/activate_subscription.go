package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"odoodeploy.io/console/internal/backend"
	"odoodeploy.io/console/internal/domain"
	"odoodeploy.io/console/internal/pkg/logger"
	"odoodeploy.io/console/internal/pkg/metrics"
)

// SubscriptionBackend is the part of the backend the activation flow calls.
type SubscriptionBackend interface {
	CreateSubscription(ctx context.Context, instanceID string, req backend.CreateSubscriptionRequest) (*backend.Subscription, error)
	UpdatePayment(ctx context.Context, instanceID string, subscriptionID backend.ID, req backend.PaymentUpdate) error
	ActivateSubscription(ctx context.Context, instanceID string, subscriptionID backend.ID) error
}

// SagaStage names a step of the activation flow.
type SagaStage string

const (
	StageCreateSubscription SagaStage = "create subscription"
	StagePaymentUpdate      SagaStage = "payment update"
	StageActivation         SagaStage = "activation"
)

// Compensation is what happens to earlier, already-applied stages when a
// later stage fails.
type Compensation int

const (
	// CompensationNone: nothing was applied before this stage.
	CompensationNone Compensation = iota
	// CompensationLogAndAlert: earlier stages are left in place and the
	// failure is flagged for manual reconciliation.
	CompensationLogAndAlert
)

type sagaStep struct {
	stage        SagaStage
	fallback     string
	compensation Compensation
}

var (
	stepCreate   = sagaStep{StageCreateSubscription, "Failed to create subscription", CompensationNone}
	stepPayment  = sagaStep{StagePaymentUpdate, "Failed to update payment status", CompensationLogAndAlert}
	stepActivate = sagaStep{StageActivation, "Failed to activate subscription", CompensationLogAndAlert}
)

// ErrMissingSubscriptionID is returned when the backend created a
// subscription but did not return its id.
var ErrMissingSubscriptionID = errors.New("backend did not return a subscription id")

// SubscriptionOutcome classifies a finished activation attempt.
type SubscriptionOutcome string

const (
	SubscriptionActivated              SubscriptionOutcome = "activated"
	SubscriptionFailed                 SubscriptionOutcome = "failed"
	SubscriptionReconciliationRequired SubscriptionOutcome = "reconciliation_required"
)

// StageError is a stage-tagged activation failure.
type StageError struct {
	Stage          SagaStage
	Message        string
	Compensation   Compensation
	SubscriptionID backend.ID
	Err            error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("subscription %s failed: %s", e.Stage, e.Message)
}

func (e *StageError) Unwrap() error { return e.Err }

// Outcome reports whether the failure left state needing reconciliation.
func (e *StageError) Outcome() SubscriptionOutcome {
	if e.Compensation == CompensationLogAndAlert {
		return SubscriptionReconciliationRequired
	}
	return SubscriptionFailed
}

// Plan is a purchasable subscription plan.
type Plan struct {
	ID    backend.ID `json:"id"`
	Name  string     `json:"name,omitempty"`
	Price float64    `json:"price"`
}

// PaymentMethod is how the operator recorded the payment.
type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodCash         PaymentMethod = "cash"

	DefaultPaymentMethod = PaymentMethodBankTransfer
)

// PaymentForm is the state of the activation modal.
type PaymentForm struct {
	Method    PaymentMethod `json:"payment_method"`
	Reference string        `json:"payment_reference"`
	Error     string        `json:"error,omitempty"`
}

// NewPaymentForm returns a form in its default state.
func NewPaymentForm() *PaymentForm {
	return &PaymentForm{Method: DefaultPaymentMethod}
}

// Reset restores the default method and clears the reference and error.
func (f *PaymentForm) Reset() {
	*f = PaymentForm{Method: DefaultPaymentMethod}
}

// ActivateSubscriptionInput is one submission of the activation modal.
type ActivateSubscriptionInput struct {
	InstanceID string
	Plan       Plan
	Form       *PaymentForm
	// OnComplete runs after a successful activation, before the form resets.
	OnComplete func(*ActivationResult)
}

// ActivationResult describes a successful activation.
type ActivationResult struct {
	SubscriptionID   backend.ID          `json:"subscription_id"`
	PaymentReference string              `json:"payment_reference"`
	AmountPaid       float64             `json:"amount_paid"`
	Outcome          SubscriptionOutcome `json:"outcome"`
}

// ActivateSubscriptionUseCase runs create → mark paid → activate strictly in
// sequence. A failure halts the flow; nothing is rolled back.
type ActivateSubscriptionUseCase struct {
	backend SubscriptionBackend
	clock   clock.PassiveClock
	events  *domain.EventDispatcher

	// inFlight guards against double submission per instance.
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// ErrActivationInProgress is returned while an activation for the same
// instance is still running.
var ErrActivationInProgress = errors.New("subscription activation already in progress")

// NewActivateSubscriptionUseCase creates an ActivateSubscriptionUseCase.
func NewActivateSubscriptionUseCase(b SubscriptionBackend) *ActivateSubscriptionUseCase {
	return &ActivateSubscriptionUseCase{
		backend:  b,
		clock:    clock.RealClock{},
		inFlight: make(map[string]struct{}),
	}
}

// WithEvents sets the domain event dispatcher (optional dependency).
func (uc *ActivateSubscriptionUseCase) WithEvents(d *domain.EventDispatcher) *ActivateSubscriptionUseCase {
	uc.events = d
	return uc
}

// WithClock overrides the clock used for default payment references.
func (uc *ActivateSubscriptionUseCase) WithClock(clk clock.PassiveClock) *ActivateSubscriptionUseCase {
	uc.clock = clk
	return uc
}

// PaymentReference returns the user's reference verbatim, or
// MANUAL-<unix millis> when it is blank.
func (uc *ActivateSubscriptionUseCase) PaymentReference(userValue string) string {
	if strings.TrimSpace(userValue) == "" {
		return "MANUAL-" + strconv.FormatInt(uc.clock.Now().UnixMilli(), 10)
	}
	return userValue
}

// Execute runs the activation flow. On failure the returned error is a
// *StageError and in.Form.Error carries its message. On success OnComplete
// runs and the form resets.
func (uc *ActivateSubscriptionUseCase) Execute(ctx context.Context, in ActivateSubscriptionInput) (*ActivationResult, error) {
	if in.Form == nil {
		in.Form = NewPaymentForm()
	}

	uc.mu.Lock()
	if _, busy := uc.inFlight[in.InstanceID]; busy {
		uc.mu.Unlock()
		return nil, ErrActivationInProgress
	}
	uc.inFlight[in.InstanceID] = struct{}{}
	uc.mu.Unlock()
	defer func() {
		uc.mu.Lock()
		delete(uc.inFlight, in.InstanceID)
		uc.mu.Unlock()
	}()

	in.Form.Error = ""
	log := logger.With(
		logger.InstanceID(in.InstanceID),
		zap.String("plan_id", in.Plan.ID.String()),
	)
	payload := domain.SubscriptionPayload{InstanceID: in.InstanceID, PlanID: in.Plan.ID.String()}

	sub, err := uc.backend.CreateSubscription(ctx, in.InstanceID, backend.CreateSubscriptionRequest{
		PlanID: in.Plan.ID,
		State:  backend.SubscriptionStatePendingPayment,
	})
	if err == nil && (sub == nil || sub.ID == "") {
		return nil, uc.fail(ctx, log, in, payload, &StageError{
			Stage:        stepCreate.stage,
			Message:      stepCreate.fallback,
			Compensation: stepCreate.compensation,
			Err:          ErrMissingSubscriptionID,
		})
	}
	if err != nil {
		return nil, uc.fail(ctx, log, in, payload, stageError(stepCreate, "", err))
	}
	payload.SubscriptionID = sub.ID.String()

	reference := uc.PaymentReference(in.Form.Reference)
	payload.PaymentReference = reference
	payload.AmountPaid = in.Plan.Price
	if err := uc.backend.UpdatePayment(ctx, in.InstanceID, sub.ID, backend.PaymentUpdate{
		PaymentStatus:    backend.PaymentStatusPaid,
		AmountPaid:       in.Plan.Price,
		PaymentReference: reference,
	}); err != nil {
		return nil, uc.fail(ctx, log, in, payload, stageError(stepPayment, sub.ID, err))
	}

	if err := uc.backend.ActivateSubscription(ctx, in.InstanceID, sub.ID); err != nil {
		return nil, uc.fail(ctx, log, in, payload, stageError(stepActivate, sub.ID, err))
	}

	result := &ActivationResult{
		SubscriptionID:   sub.ID,
		PaymentReference: reference,
		AmountPaid:       in.Plan.Price,
		Outcome:          SubscriptionActivated,
	}
	log.Info("Subscription activated", zap.String("subscription_id", sub.ID.String()))
	metrics.RecordSubscriptionSaga(string(SubscriptionActivated), "")
	uc.events.Publish(ctx, domain.EventSubscriptionActivated, domain.AggregateInstance, in.InstanceID, payload)

	if in.OnComplete != nil {
		in.OnComplete(result)
	}
	in.Form.Reset()
	return result, nil
}

func stageError(step sagaStep, subID backend.ID, err error) *StageError {
	return &StageError{
		Stage:          step.stage,
		Message:        backend.MessageOr(err, step.fallback),
		Compensation:   step.compensation,
		SubscriptionID: subID,
		Err:            err,
	}
}

func (uc *ActivateSubscriptionUseCase) fail(
	ctx context.Context, log *zap.Logger,
	in ActivateSubscriptionInput, payload domain.SubscriptionPayload, serr *StageError,
) error {
	in.Form.Error = serr.Message
	payload.Stage = string(serr.Stage)
	payload.Message = serr.Message

	outcome := serr.Outcome()
	metrics.RecordSubscriptionSaga(string(outcome), string(serr.Stage))
	evctx := context.WithoutCancel(ctx)

	if serr.Compensation == CompensationLogAndAlert {
		log.Warn("Subscription left partially applied, manual reconciliation required",
			zap.String("stage", string(serr.Stage)),
			zap.String("subscription_id", serr.SubscriptionID.String()),
			zap.Error(serr.Err),
		)
		uc.events.Publish(evctx, domain.EventSubscriptionReconciliationRequired, domain.AggregateInstance, in.InstanceID, payload)
	} else {
		log.Warn("Subscription activation failed",
			zap.String("stage", string(serr.Stage)),
			zap.Error(serr.Err),
		)
	}
	uc.events.Publish(evctx, domain.EventSubscriptionStageFailed, domain.AggregateInstance, in.InstanceID, payload)
	return serr
}
