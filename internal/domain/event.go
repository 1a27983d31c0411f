// Package domain holds the console's domain events.
//
// Events are informational. They are dispatched after a deployment, a
// subscription activation or an auth session change has settled and are
// consumed by the audit log; nothing is persisted.
package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of domain event.
type EventType string

const (
	// Deployment events
	EventDeploymentRequested EventType = "DEPLOYMENT_REQUESTED"
	EventDeploymentSucceeded EventType = "DEPLOYMENT_SUCCEEDED"
	EventDeploymentFailed    EventType = "DEPLOYMENT_FAILED"
	EventDeploymentCancelled EventType = "DEPLOYMENT_CANCELLED"

	// Subscription activation events
	EventSubscriptionActivated              EventType = "SUBSCRIPTION_ACTIVATED"
	EventSubscriptionStageFailed            EventType = "SUBSCRIPTION_STAGE_FAILED"
	EventSubscriptionReconciliationRequired EventType = "SUBSCRIPTION_RECONCILIATION_REQUIRED"

	// Auth session events
	EventUserLoggedIn       EventType = "USER_LOGGED_IN"
	EventUserLoggedOut      EventType = "USER_LOGGED_OUT"
	EventSessionInvalidated EventType = "SESSION_INVALIDATED"
)

// AllEventTypes lists every event type, for sinks that want all of them.
func AllEventTypes() []EventType {
	return []EventType{
		EventDeploymentRequested,
		EventDeploymentSucceeded,
		EventDeploymentFailed,
		EventDeploymentCancelled,
		EventSubscriptionActivated,
		EventSubscriptionStageFailed,
		EventSubscriptionReconciliationRequired,
		EventUserLoggedIn,
		EventUserLoggedOut,
		EventSessionInvalidated,
	}
}

// Aggregate types.
const (
	AggregateWizardSession = "wizard_session"
	AggregateInstance      = "instance"
	AggregateAuthSession   = "auth_session"
)

// DomainEvent represents an immutable domain event.
type DomainEvent struct {
	EventID       string    `json:"event_id"`
	EventType     EventType `json:"event_type"`
	AggregateType string    `json:"aggregate_type"`
	AggregateID   string    `json:"aggregate_id"`
	Payload       []byte    `json:"payload"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewEvent builds an event with a time-ordered id and a JSON payload.
func NewEvent(eventType EventType, aggregateType, aggregateID string, payload any) (*DomainEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &DomainEvent{
		EventID:       generateEventID(),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Payload:       data,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// DeploymentPayload is the payload for deployment events.
type DeploymentPayload struct {
	SessionID    string `json:"session_id"`
	InstanceName string `json:"instance_name"`
	TemplateID   string `json:"template_id"`
	InstanceURL  string `json:"instance_url,omitempty"`
	Message      string `json:"message,omitempty"`
	DurationMS   int64  `json:"duration_ms,omitempty"`
}

// SubscriptionPayload is the payload for subscription activation events.
type SubscriptionPayload struct {
	InstanceID       string  `json:"instance_id"`
	PlanID           string  `json:"plan_id"`
	SubscriptionID   string  `json:"subscription_id,omitempty"`
	Stage            string  `json:"stage,omitempty"`
	AmountPaid       float64 `json:"amount_paid,omitempty"`
	PaymentReference string  `json:"payment_reference,omitempty"`
	Message          string  `json:"message,omitempty"`
}

// AuthPayload is the payload for auth session events.
type AuthPayload struct {
	Email  string `json:"email,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func generateEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return "evt-" + id.String()
}
