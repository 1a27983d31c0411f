package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"odoodeploy.io/console/internal/backend"
	apperrors "odoodeploy.io/console/internal/pkg/errors"
	"odoodeploy.io/console/internal/usecase"
)

// ActivateSubscription handles POST /instances/{instanceId}/subscriptions/activate.
// It creates the subscription, records the payment and activates it.
func (s *Server) ActivateSubscription(c *gin.Context) {
	var req ActivateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "plan_id is required"))
		return
	}

	form := usecase.NewPaymentForm()
	if req.PaymentMethod != "" {
		form.Method = req.PaymentMethod
	}
	form.Reference = req.PaymentReference

	instanceID := c.Param("instanceId")
	result, err := s.activateUC.Execute(c.Request.Context(), usecase.ActivateSubscriptionInput{
		InstanceID: instanceID,
		Plan: usecase.Plan{
			ID:    backend.ID(req.PlanID),
			Name:  req.PlanName,
			Price: req.Price,
		},
		Form: form,
	})
	if err != nil {
		_ = c.Error(activationError(instanceID, err))
		return
	}

	c.JSON(http.StatusOK, ActivationResponse{
		SubscriptionID:   result.SubscriptionID.String(),
		PaymentReference: result.PaymentReference,
		AmountPaid:       result.AmountPaid,
		Outcome:          result.Outcome,
		Form:             *form,
	})
}

func activationError(instanceID string, err error) error {
	if errors.Is(err, usecase.ErrActivationInProgress) {
		return apperrors.Conflict(apperrors.CodeActivationInProgress, "an activation for this instance is already running").
			WithParam("instance_id", instanceID)
	}

	var serr *usecase.StageError
	if !errors.As(err, &serr) {
		return apperrors.BadGateway(apperrors.CodeSubscriptionStageFailed, "Failed to activate subscription").WithCause(err)
	}

	appErr := apperrors.SubscriptionStageFailed(string(serr.Stage), serr.Message).
		WithCause(err).
		WithParam("outcome", string(serr.Outcome()))
	if errors.Is(err, usecase.ErrMissingSubscriptionID) {
		appErr.Code = apperrors.CodeMissingSubscriptionID
	}
	if serr.SubscriptionID != "" {
		appErr.WithParam("subscription_id", serr.SubscriptionID.String())
	}
	return appErr
}
