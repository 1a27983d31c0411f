package handlers

import (
	"odoodeploy.io/console/internal/auth"
	"odoodeploy.io/console/internal/backend"
	"odoodeploy.io/console/internal/usecase"
)

// Wire types of the console contract. Wizard sessions are served as
// wizard.View directly.

// HealthStatus is the overall probe result.
type HealthStatus string

const (
	HealthStatusOk       HealthStatus = "ok"
	HealthStatusDegraded HealthStatus = "degraded"
)

// Health is the probe response.
type Health struct {
	Status HealthStatus      `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LoginRequest is the POST /auth/login body.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SessionStatus is the GET /auth/session response.
type SessionStatus struct {
	Decision auth.Decision `json:"decision"`
	Reason   string        `json:"reason,omitempty"`
	Session  auth.Session  `json:"session"`
}

// Template is a deployable template with its id rendered as a string.
type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Domain is a domain mapping with its id rendered as a string.
type Domain struct {
	ID        string `json:"id,omitempty"`
	Domain    string `json:"domain"`
	IsPrimary bool   `json:"is_primary"`
	Status    string `json:"status,omitempty"`
}

// SelectTemplateRequest is the PUT /wizard/sessions/{id}/template body.
type SelectTemplateRequest struct {
	TemplateID string `json:"template_id" binding:"required"`
}

// ActivateSubscriptionRequest is one submission of the payment form.
type ActivateSubscriptionRequest struct {
	PlanID           string                `json:"plan_id" binding:"required"`
	PlanName         string                `json:"plan_name"`
	Price            float64               `json:"price"`
	PaymentMethod    usecase.PaymentMethod `json:"payment_method,omitempty"`
	PaymentReference string                `json:"payment_reference,omitempty"`
}

// ActivationResponse reports a completed activation and the reset form.
type ActivationResponse struct {
	SubscriptionID   string                      `json:"subscription_id"`
	PaymentReference string                      `json:"payment_reference"`
	AmountPaid       float64                     `json:"amount_paid"`
	Outcome          usecase.SubscriptionOutcome `json:"outcome"`
	Form             usecase.PaymentForm         `json:"form"`
}

func toTemplates(in []backend.Template) []Template {
	out := make([]Template, 0, len(in))
	for _, t := range in {
		out = append(out, Template{ID: t.ID.String(), Name: t.Name, Description: t.Description})
	}
	return out
}

func toDomains(in []backend.Domain) []Domain {
	out := make([]Domain, 0, len(in))
	for _, d := range in {
		out = append(out, Domain{ID: d.ID.String(), Domain: d.Domain, IsPrimary: d.IsPrimary, Status: d.Status})
	}
	return out
}
