package handlers

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"odoodeploy.io/console/internal/availability"
	"odoodeploy.io/console/internal/progress"
	"odoodeploy.io/console/internal/usecase"
)

func TestRenderBar(t *testing.T) {
	tests := []struct {
		name    string
		percent int
		want    string
	}{
		{"empty", 0, "  0%"},
		{"half", 50, " 50%"},
		{"full", 100, "100%"},
		{"clamped high", 150, "100%"},
		{"clamped low", -5, "  0%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, strings.HasSuffix(renderBar(tt.percent), tt.want))
		})
	}
}

func TestProgressPrinter(t *testing.T) {
	var out bytes.Buffer
	p := newProgressPrinter(&out)

	p.Update(progress.Initial())
	assert.Empty(t, out.String())

	p.Update(progress.At(0.1))
	p.Update(progress.At(0.15))
	assert.Equal(t, 1, strings.Count(out.String(), "Allocating resources"))

	p.Update(progress.At(0.5))
	p.Update(progress.At(1))
	got := out.String()
	for _, st := range progress.Stages() {
		assert.Contains(t, got, st.Label())
	}
	assert.Equal(t, len(progress.Stages()), strings.Count(got, "[OK]"))
}

func TestRenderAvailability(t *testing.T) {
	ok := renderAvailability(availability.State{
		Verdict:        availability.VerdictAvailable,
		Message:        availability.MessageAvailable,
		ResolvedDomain: "acme.odoo.example.com",
	})
	assert.Contains(t, ok, "[OK]")
	assert.Contains(t, ok, "acme.odoo.example.com")

	assert.Contains(t, renderAvailability(availability.State{Verdict: availability.VerdictTaken, Message: availability.MessageTaken}), "[FAIL]")
	assert.Contains(t, renderAvailability(availability.State{Verdict: availability.VerdictUnverified, Message: availability.MessageUnverified}), "[WARN]")
}

func TestRenderStageError(t *testing.T) {
	first := renderStageError(&usecase.StageError{
		Stage:        usecase.StageCreateSubscription,
		Message:      "Failed to create subscription",
		Compensation: usecase.CompensationNone,
	})
	assert.Contains(t, first, "create subscription: Failed to create subscription")
	assert.NotContains(t, first, "reconcile")

	later := renderStageError(&usecase.StageError{
		Stage:          usecase.StagePaymentUpdate,
		Message:        "Failed to update payment status",
		Compensation:   usecase.CompensationLogAndAlert,
		SubscriptionID: "55",
	})
	assert.Contains(t, later, "subscription 55")
}

func TestRenderTemplates_Empty(t *testing.T) {
	assert.Contains(t, renderTemplates(nil), "No templates available")
}
