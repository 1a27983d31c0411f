package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	tokens := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok-123"})
	c, err := New(srv.URL, 5*time.Second, tokens)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New("/api", time.Second, nil)
	assert.Error(t, err)
}

func TestListTemplates_Envelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/helm-charts", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"success":true,"data":[{"id":7,"name":"Odoo 17","description":"CE"},{"id":"abc","name":"Odoo 18"}]}`)
	})

	got, err := c.ListTemplates(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ID("7"), got[0].ID)
	assert.Equal(t, "Odoo 17", got[0].Name)
	assert.Equal(t, ID("abc"), got[1].ID)
}

func TestListDomains_BarePayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/instances/42/domains", r.URL.Path)
		writeJSON(w, http.StatusOK, `[{"domain":"shop.example.com","is_primary":true}]`)
	})

	got, err := c.ListDomains(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "shop.example.com", got[0].Domain)
	assert.True(t, got[0].IsPrimary)
}

func TestCheckAvailability(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    bool
		wantErr bool
	}{
		{"available", http.StatusOK, `{"success":true,"data":{"available":true}}`, true, false},
		{"taken", http.StatusOK, `{"available":false}`, false, false},
		{"missing field", http.StatusOK, `{"success":true,"data":{}}`, false, true},
		{"not json", http.StatusOK, `<html>`, false, true},
		{"server error", http.StatusInternalServerError, `{"message":"boom"}`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "shop-1", r.URL.Query().Get("name"))
				writeJSON(w, tt.status, tt.body)
			})
			got, err := c.CheckAvailability(context.Background(), "shop-1")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateInstance_SendsBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/instances/create", r.URL.Path)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "shop", body["instance"])
		assert.Equal(t, "a@b.co", body["login_email"])
		assert.Equal(t, float64(3), body["helm_chart_id"])
		assert.Equal(t, true, body["need_custom_addons"])

		writeJSON(w, http.StatusCreated, `{"success":true,"data":{"instance_url":"https://shop.odoo.test"}}`)
	})

	got, err := c.CreateInstance(context.Background(), CreateInstanceRequest{
		Instance:         "shop",
		LoginEmail:       "a@b.co",
		LoginPassword:    "secret",
		HelmChartID:      "3",
		NeedCustomAddons: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://shop.odoo.test", got.InstanceURL)
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"nested error", http.StatusBadRequest, `{"error":{"message":"Name already taken"}}`, "Name already taken"},
		{"flat message", http.StatusConflict, `{"message":"Quota exceeded"}`, "Quota exceeded"},
		{"string error", http.StatusBadRequest, `{"error":"bad input"}`, "bad input"},
		{"success false", http.StatusOK, `{"success":false,"message":"Chart disabled"}`, "Chart disabled"},
		{"no body", http.StatusBadGateway, ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			_, err := c.CreateInstance(context.Background(), CreateInstanceRequest{Instance: "x"})
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			assert.Equal(t, orDefault(tt.wantMsg, "fallback"), MessageOr(err, "fallback"))
		})
	}
}

func orDefault(s, d string) string {
	if s == "" {
		return d
	}
	return s
}

func TestMessageOr_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := New(srv.URL, time.Second, nil)
	require.NoError(t, err)

	_, err = c.ListTemplates(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Failed to load", MessageOr(err, "Failed to load"))
	assert.False(t, IsUnauthorized(err))
}

func TestSubscriptionCalls(t *testing.T) {
	var calls []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodPost:
			if r.URL.Path == "/api/v1/instances/9/subscriptions" {
				var body map[string]any
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, float64(2), body["plan_id"])
				assert.Equal(t, SubscriptionStatePendingPayment, body["state"])
				writeJSON(w, http.StatusCreated, `{"success":true,"data":{"id":55}}`)
				return
			}
			assert.Zero(t, r.ContentLength)
			writeJSON(w, http.StatusOK, `{"success":true}`)
		case http.MethodPut:
			var body PaymentUpdate
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, PaymentStatusPaid, body.PaymentStatus)
			assert.Equal(t, 49.5, body.AmountPaid)
			assert.Equal(t, "REF-1", body.PaymentReference)
			writeJSON(w, http.StatusOK, `{"success":true}`)
		}
	})

	ctx := context.Background()
	sub, err := c.CreateSubscription(ctx, "9", CreateSubscriptionRequest{PlanID: "2", State: SubscriptionStatePendingPayment})
	require.NoError(t, err)
	assert.Equal(t, ID("55"), sub.ID)

	require.NoError(t, c.UpdatePayment(ctx, "9", sub.ID, PaymentUpdate{
		PaymentStatus: PaymentStatusPaid, AmountPaid: 49.5, PaymentReference: "REF-1",
	}))
	require.NoError(t, c.ActivateSubscription(ctx, "9", sub.ID))

	assert.Equal(t, []string{
		"POST /api/v1/instances/9/subscriptions",
		"PUT /api/v1/instances/9/subscriptions/55",
		"POST /api/v1/instances/9/subscriptions/55/activate",
	}, calls)
}

func TestLoginAndValidate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			assert.Empty(t, r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"token":"fresh"}}`)
		case "/api/v1/auth/me":
			if r.Header.Get("Authorization") != "Bearer fresh" {
				writeJSON(w, http.StatusUnauthorized, `{"message":"invalid token"}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"id":1,"email":"ops@example.com"}`)
		}
	})

	ctx := context.Background()
	token, err := c.Login(ctx, Credentials{Email: "ops@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)

	acct, err := c.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", acct.Email)

	_, err = c.ValidateToken(ctx, "stale")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
}

func TestGetSubdomainSuffix(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/config/subdomain", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"subdomain":"odoo.example.com"}}`)
	})

	got, err := c.GetSubdomainSuffix(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "odoo.example.com", got)
}

func TestID_JSON(t *testing.T) {
	var v struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":12,"b":"x-1","c":null}`), &v))
	assert.Equal(t, ID("12"), v.A)
	assert.Equal(t, ID("x-1"), v.B)
	assert.Equal(t, ID(""), v.C)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":12,"b":"x-1","c":""}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"a":true}`), &v))
}

func TestID_MarshalKeepsNonCanonicalDigits(t *testing.T) {
	tests := []struct {
		id   ID
		want string
	}{
		{"7", `7`},
		{"-3", `-3`},
		{"007", `"007"`},
		{"+7", `"+7"`},
		{"0", `0`},
		{"99999999999999999999", `"99999999999999999999"`},
	}

	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			out, err := json.Marshal(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))

			var back ID
			require.NoError(t, json.Unmarshal(out, &back))
			assert.Equal(t, tt.id, back)
		})
	}
}
