// Package backend is the REST client for the Odoo platform backend.
//
// Every response is either a {success, data} envelope, a bare payload, or an
// error body carrying {message} or {error: {message}}. Non-2xx responses and
// envelopes with success=false surface as *APIError.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const apiPrefix = "/api/v1"

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 4 << 20

// Client talks to the platform backend.
type Client struct {
	baseURL *url.URL
	anon    *http.Client
	authed  *http.Client
}

// Option configures a Client.
type Option func(*options)

type options struct {
	transport http.RoundTripper
}

// WithTransport overrides the base transport, mainly for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// New builds a client. Authenticated calls carry the bearer token from
// tokens; a nil source sends them without Authorization.
func New(baseURL string, timeout time.Duration, tokens oauth2.TokenSource, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend base url %q is not absolute", baseURL)
	}

	o := options{transport: http.DefaultTransport}
	for _, opt := range opts {
		opt(&o)
	}

	anon := &http.Client{Transport: o.transport, Timeout: timeout}
	authed := anon
	if tokens != nil {
		authed = &http.Client{
			Transport: &oauth2.Transport{Source: tokens, Base: o.transport},
			Timeout:   timeout,
		}
	}
	return &Client{baseURL: u, anon: anon, authed: authed}, nil
}

// ListTemplates returns the deployable Helm charts.
func (c *Client) ListTemplates(ctx context.Context) ([]Template, error) {
	var out []Template
	if err := c.do(ctx, c.authed, http.MethodGet, "/helm-charts", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return out, nil
}

// ListDomains returns the domains mapped to an instance.
func (c *Client) ListDomains(ctx context.Context, instanceID string) ([]Domain, error) {
	var out []Domain
	path := "/instances/" + url.PathEscape(instanceID) + "/domains"
	if err := c.do(ctx, c.authed, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	return out, nil
}

// GetSubdomainSuffix returns the platform suffix appended to instance names.
func (c *Client) GetSubdomainSuffix(ctx context.Context) (string, error) {
	var out struct {
		Subdomain *string `json:"subdomain"`
	}
	if err := c.do(ctx, c.authed, http.MethodGet, "/config/subdomain", nil, nil, &out); err != nil {
		return "", fmt.Errorf("get subdomain: %w", err)
	}
	if out.Subdomain == nil {
		return "", fmt.Errorf("get subdomain: %w: missing subdomain", ErrMalformedResponse)
	}
	return *out.Subdomain, nil
}

// CheckAvailability asks whether an instance name is still free.
func (c *Client) CheckAvailability(ctx context.Context, name string) (bool, error) {
	var out struct {
		Available *bool `json:"available"`
	}
	q := url.Values{"name": {name}}
	if err := c.do(ctx, c.authed, http.MethodGet, "/instances/check-availability", q, nil, &out); err != nil {
		return false, fmt.Errorf("check availability: %w", err)
	}
	if out.Available == nil {
		return false, fmt.Errorf("check availability: %w: missing available", ErrMalformedResponse)
	}
	return *out.Available, nil
}

// CreateInstance starts provisioning a new instance.
func (c *Client) CreateInstance(ctx context.Context, req CreateInstanceRequest) (*CreateInstanceResult, error) {
	var out CreateInstanceResult
	if err := c.do(ctx, c.authed, http.MethodPost, "/instances/create", nil, req, &out); err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	return &out, nil
}

// CreateSubscription creates a subscription awaiting payment.
func (c *Client) CreateSubscription(ctx context.Context, instanceID string, req CreateSubscriptionRequest) (*Subscription, error) {
	var out Subscription
	path := "/instances/" + url.PathEscape(instanceID) + "/subscriptions"
	if err := c.do(ctx, c.authed, http.MethodPost, path, nil, req, &out); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	return &out, nil
}

// UpdatePayment records a payment against a subscription.
func (c *Client) UpdatePayment(ctx context.Context, instanceID string, subscriptionID ID, req PaymentUpdate) error {
	path := "/instances/" + url.PathEscape(instanceID) + "/subscriptions/" + url.PathEscape(subscriptionID.String())
	if err := c.do(ctx, c.authed, http.MethodPut, path, nil, req, nil); err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	return nil
}

// ActivateSubscription activates a paid subscription.
func (c *Client) ActivateSubscription(ctx context.Context, instanceID string, subscriptionID ID) error {
	path := "/instances/" + url.PathEscape(instanceID) + "/subscriptions/" + url.PathEscape(subscriptionID.String()) + "/activate"
	if err := c.do(ctx, c.authed, http.MethodPost, path, nil, nil, nil); err != nil {
		return fmt.Errorf("activate subscription: %w", err)
	}
	return nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, creds Credentials) (string, error) {
	var out struct {
		Token       string `json:"token"`
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, c.anon, http.MethodPost, "/auth/login", nil, creds, &out); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	token := out.Token
	if token == "" {
		token = out.AccessToken
	}
	if token == "" {
		return "", fmt.Errorf("login: %w: missing token", ErrMalformedResponse)
	}
	return token, nil
}

// ValidateToken checks token against the backend and returns its account.
// The token is passed explicitly so a stored token can be checked before it
// becomes the active one.
func (c *Client) ValidateToken(ctx context.Context, token string) (*Account, error) {
	var out Account
	hdr := func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
	if err := c.doWith(ctx, c.anon, http.MethodGet, "/auth/me", nil, nil, &out, hdr); err != nil {
		return nil, fmt.Errorf("validate token: %w", err)
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, query url.Values, body, out any) error {
	return c.doWith(ctx, hc, method, path, query, body, out, nil)
}

func (c *Client) doWith(
	ctx context.Context, hc *http.Client,
	method, path string, query url.Values, body, out any,
	decorate func(*http.Request),
) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + apiPrefix + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if decorate != nil {
		decorate(req)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	return decodeResponse(resp.StatusCode, raw, out)
}

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

// message prefers error.message, then message, then a string error field.
func (e envelope) message() string {
	if len(e.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(e.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		var flat string
		if json.Unmarshal(e.Error, &flat) == nil && flat != "" {
			return flat
		}
	}
	return e.Message
}

func decodeResponse(status int, raw []byte, out any) error {
	var env envelope
	// Bodies that are not JSON objects (arrays, empty, HTML) leave env zero.
	_ = json.Unmarshal(raw, &env)

	if status < 200 || status > 299 {
		return &APIError{Status: status, Message: env.message()}
	}
	if env.Success != nil && !*env.Success {
		return &APIError{Status: status, Message: env.message()}
	}
	if out == nil {
		return nil
	}

	payload := raw
	if len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		payload = env.Data
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
