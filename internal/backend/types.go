package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is a backend identifier. The backend emits numeric ids for most
// resources but string ids are accepted too; both decode to the same text.
type ID string

// UnmarshalJSON accepts a JSON number or string.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a number or string: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits canonical integer ids as numbers. Anything that would
// not survive the round trip, such as "007" or "+7", stays a string.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(string(id)), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

// Template is a deployable Helm chart.
type Template struct {
	ID          ID     `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// Domain is a hostname mapped to an instance.
type Domain struct {
	ID        ID     `json:"id,omitempty" yaml:"id,omitempty"`
	Domain    string `json:"domain" yaml:"domain"`
	IsPrimary bool   `json:"is_primary,omitempty" yaml:"is_primary,omitempty"`
	Status    string `json:"status,omitempty" yaml:"status,omitempty"`
}

// CreateInstanceRequest is the body of POST /instances/create.
type CreateInstanceRequest struct {
	Instance         string `json:"instance"`
	LoginEmail       string `json:"login_email"`
	LoginPassword    string `json:"login_password"`
	HelmChartID      ID     `json:"helm_chart_id"`
	NeedCustomAddons bool   `json:"need_custom_addons"`
}

// CreateInstanceResult carries the URL of the new instance.
type CreateInstanceResult struct {
	InstanceURL string `json:"instance_url"`
}

// Subscription states and payment statuses used by the activation flow.
const (
	SubscriptionStatePendingPayment = "pending_payment"
	PaymentStatusPaid               = "paid"
)

// CreateSubscriptionRequest is the body of POST /instances/{id}/subscriptions.
type CreateSubscriptionRequest struct {
	PlanID ID     `json:"plan_id"`
	State  string `json:"state"`
}

// Subscription is the subset of the subscription record the console reads.
type Subscription struct {
	ID    ID     `json:"id"`
	State string `json:"state,omitempty"`
}

// PaymentUpdate is the body of PUT /instances/{id}/subscriptions/{subId}.
type PaymentUpdate struct {
	PaymentStatus    string  `json:"payment_status"`
	AmountPaid       float64 `json:"amount_paid"`
	PaymentReference string  `json:"payment_reference"`
}

// Credentials is the body of POST /auth/login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Account is the identity behind a valid token.
type Account struct {
	ID    ID     `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}
