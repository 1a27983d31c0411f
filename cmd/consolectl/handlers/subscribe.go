package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"

	"odoodeploy.io/console/internal/backend"
	"odoodeploy.io/console/internal/usecase"
)

// SubscribeOptions describe one manually recorded payment.
type SubscribeOptions struct {
	InstanceID string
	PlanID     string
	PlanName   string
	Price      float64
	Method     string
	Reference  string
}

var paymentMethods = []usecase.PaymentMethod{
	usecase.PaymentMethodBankTransfer,
	usecase.PaymentMethodCard,
	usecase.PaymentMethodCash,
}

func parsePaymentMethod(s string) (usecase.PaymentMethod, error) {
	for _, m := range paymentMethods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown payment method %q (want bank_transfer, card or cash)", s)
}

// Subscribe creates, pays and activates a subscription.
func Subscribe(ctx context.Context, out io.Writer, opts SubscribeOptions) error {
	c, err := newConsole(ctx)
	if err != nil {
		return err
	}
	if opts.Method == "" {
		if err := askPaymentMethod(ctx, &opts); err != nil {
			return err
		}
	}
	return subscribe(ctx, out, c, opts)
}

func subscribe(ctx context.Context, out io.Writer, c *console, opts SubscribeOptions) error {
	if opts.Price < 0 {
		return fmt.Errorf("price must not be negative, got %.2f", opts.Price)
	}
	form := usecase.NewPaymentForm()
	if opts.Method != "" {
		m, err := parsePaymentMethod(opts.Method)
		if err != nil {
			return err
		}
		form.Method = m
	}
	form.Reference = opts.Reference
	method := form.Method

	if _, err := c.requireSession(ctx); err != nil {
		return err
	}

	uc := usecase.NewActivateSubscriptionUseCase(c.backend).WithEvents(c.events)
	res, err := uc.Execute(ctx, usecase.ActivateSubscriptionInput{
		InstanceID: opts.InstanceID,
		Plan: usecase.Plan{
			ID:    backend.ID(opts.PlanID),
			Name:  opts.PlanName,
			Price: opts.Price,
		},
		Form: form,
	})
	if err != nil {
		var stageErr *usecase.StageError
		if errors.As(err, &stageErr) {
			fmt.Fprint(out, renderStageError(stageErr))
			return fmt.Errorf("%s failed: %s", stageErr.Stage, stageErr.Message)
		}
		return err
	}

	fmt.Fprint(out, renderActivation(opts.InstanceID, method, res))
	return nil
}
