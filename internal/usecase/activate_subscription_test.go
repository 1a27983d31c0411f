package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"odoodeploy.io/console/internal/backend"
	"odoodeploy.io/console/internal/domain"
)

type fakeSubscriptions struct {
	createErr   error
	createID    backend.ID
	paymentErr  error
	activateErr error

	calls   []string
	payment backend.PaymentUpdate
	block   chan struct{}
}

func (f *fakeSubscriptions) CreateSubscription(_ context.Context, instanceID string, req backend.CreateSubscriptionRequest) (*backend.Subscription, error) {
	f.calls = append(f.calls, "create")
	if f.block != nil {
		<-f.block
	}
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &backend.Subscription{ID: f.createID, State: req.State}, nil
}

func (f *fakeSubscriptions) UpdatePayment(_ context.Context, _ string, _ backend.ID, req backend.PaymentUpdate) error {
	f.calls = append(f.calls, "payment")
	f.payment = req
	return f.paymentErr
}

func (f *fakeSubscriptions) ActivateSubscription(context.Context, string, backend.ID) error {
	f.calls = append(f.calls, "activate")
	return f.activateErr
}

var plan = Plan{ID: "3", Name: "Standard", Price: 29.9}

func TestActivate_Success(t *testing.T) {
	fb := &fakeSubscriptions{createID: "77"}
	uc := NewActivateSubscriptionUseCase(fb)

	form := &PaymentForm{Method: PaymentMethodCard, Reference: "INV-9"}
	var completed *ActivationResult
	res, err := uc.Execute(context.Background(), ActivateSubscriptionInput{
		InstanceID: "12",
		Plan:       plan,
		Form:       form,
		OnComplete: func(r *ActivationResult) { completed = r },
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"create", "payment", "activate"}, fb.calls)
	assert.Equal(t, backend.ID("77"), res.SubscriptionID)
	assert.Equal(t, SubscriptionActivated, res.Outcome)
	assert.Same(t, res, completed)

	assert.Equal(t, backend.PaymentStatusPaid, fb.payment.PaymentStatus)
	assert.Equal(t, 29.9, fb.payment.AmountPaid)
	assert.Equal(t, "INV-9", fb.payment.PaymentReference)

	assert.Equal(t, PaymentForm{Method: DefaultPaymentMethod}, *form, "form resets after success")
}

func TestActivate_StageFailures(t *testing.T) {
	tests := []struct {
		name         string
		fb           *fakeSubscriptions
		wantCalls    []string
		wantStage    SagaStage
		wantMessage  string
		wantOutcome  SubscriptionOutcome
		wantSentinel error
	}{
		{
			name:        "create fails with server message",
			fb:          &fakeSubscriptions{createErr: &backend.APIError{Status: 400, Message: "Plan not found"}},
			wantCalls:   []string{"create"},
			wantStage:   StageCreateSubscription,
			wantMessage: "Plan not found",
			wantOutcome: SubscriptionFailed,
		},
		{
			name:         "create returns no id",
			fb:           &fakeSubscriptions{},
			wantCalls:    []string{"create"},
			wantStage:    StageCreateSubscription,
			wantMessage:  "Failed to create subscription",
			wantOutcome:  SubscriptionFailed,
			wantSentinel: ErrMissingSubscriptionID,
		},
		{
			name:        "mark paid fails",
			fb:          &fakeSubscriptions{createID: "5", paymentErr: errors.New("timeout")},
			wantCalls:   []string{"create", "payment"},
			wantStage:   StagePaymentUpdate,
			wantMessage: "Failed to update payment status",
			wantOutcome: SubscriptionReconciliationRequired,
		},
		{
			name:        "activate fails",
			fb:          &fakeSubscriptions{createID: "5", activateErr: &backend.APIError{Status: 500, Message: "Activation locked"}},
			wantCalls:   []string{"create", "payment", "activate"},
			wantStage:   StageActivation,
			wantMessage: "Activation locked",
			wantOutcome: SubscriptionReconciliationRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := NewActivateSubscriptionUseCase(tt.fb)
			form := &PaymentForm{Method: PaymentMethodCash, Reference: "R-1"}
			completed := false

			res, err := uc.Execute(context.Background(), ActivateSubscriptionInput{
				InstanceID: "12",
				Plan:       plan,
				Form:       form,
				OnComplete: func(*ActivationResult) { completed = true },
			})

			assert.Nil(t, res)
			var serr *StageError
			require.True(t, errors.As(err, &serr))
			assert.Equal(t, tt.wantStage, serr.Stage)
			assert.Equal(t, tt.wantMessage, serr.Message)
			assert.Equal(t, tt.wantOutcome, serr.Outcome())
			if tt.wantSentinel != nil {
				assert.ErrorIs(t, err, tt.wantSentinel)
			}

			assert.Equal(t, tt.wantCalls, tt.fb.calls)
			assert.False(t, completed)
			assert.Equal(t, tt.wantMessage, form.Error)
			assert.Equal(t, PaymentMethodCash, form.Method, "form keeps user input on failure")
			assert.Equal(t, "R-1", form.Reference)
		})
	}
}

func TestPaymentReference(t *testing.T) {
	now := time.UnixMilli(1718000000123)
	uc := NewActivateSubscriptionUseCase(&fakeSubscriptions{}).WithClock(clocktesting.NewFakePassiveClock(now))

	tests := []struct {
		in   string
		want string
	}{
		{"", "MANUAL-1718000000123"},
		{"   ", "MANUAL-1718000000123"},
		{"\t\n", "MANUAL-1718000000123"},
		{"TX-42", "TX-42"},
		{"  TX-42 ", "  TX-42 "},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, uc.PaymentReference(tt.in), "input %q", tt.in)
	}
}

func TestActivate_DefaultReferenceSent(t *testing.T) {
	now := time.UnixMilli(1718000000999)
	fb := &fakeSubscriptions{createID: "1"}
	uc := NewActivateSubscriptionUseCase(fb).WithClock(clocktesting.NewFakePassiveClock(now))

	res, err := uc.Execute(context.Background(), ActivateSubscriptionInput{InstanceID: "1", Plan: plan})
	require.NoError(t, err)
	assert.Equal(t, "MANUAL-1718000000999", fb.payment.PaymentReference)
	assert.Equal(t, "MANUAL-1718000000999", res.PaymentReference)
}

func TestActivate_RejectsConcurrentSubmit(t *testing.T) {
	fb := &fakeSubscriptions{createID: "1", block: make(chan struct{})}
	uc := NewActivateSubscriptionUseCase(fb)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = uc.Execute(context.Background(), ActivateSubscriptionInput{InstanceID: "1", Plan: plan})
	}()

	require.Eventually(t, func() bool {
		uc.mu.Lock()
		defer uc.mu.Unlock()
		_, busy := uc.inFlight["1"]
		return busy
	}, time.Second, 5*time.Millisecond)

	_, err := uc.Execute(context.Background(), ActivateSubscriptionInput{InstanceID: "1", Plan: plan})
	assert.ErrorIs(t, err, ErrActivationInProgress)

	close(fb.block)
	wg.Wait()
}

func TestActivate_ReconciliationEvent(t *testing.T) {
	d := domain.NewEventDispatcher()
	var got []domain.EventType
	d.RegisterAll(func(_ context.Context, e *domain.DomainEvent) error {
		got = append(got, e.EventType)
		return nil
	}, domain.AllEventTypes()...)

	fb := &fakeSubscriptions{createID: "5", activateErr: errors.New("boom")}
	uc := NewActivateSubscriptionUseCase(fb).WithEvents(d)
	_, err := uc.Execute(context.Background(), ActivateSubscriptionInput{InstanceID: "12", Plan: plan})
	require.Error(t, err)

	assert.Equal(t, []domain.EventType{
		domain.EventSubscriptionReconciliationRequired,
		domain.EventSubscriptionStageFailed,
	}, got)
}
