// Package auth owns the console's auth session and the gate in front of
// protected views.
//
// A Manager is constructed explicitly and injected; there is no package
// state. Initialize loads the persisted session once and closes the Ready
// channel, which is what the Gate waits on.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"k8s.io/utils/clock"

	"odoodeploy.io/console/internal/backend"
	"odoodeploy.io/console/internal/domain"
	"odoodeploy.io/console/internal/pkg/logger"
)

// ErrNotAuthenticated is returned by Token when no session is held.
var ErrNotAuthenticated = errors.New("not authenticated")

// Session is a snapshot of the auth state.
type Session struct {
	Token           string `json:"-"`
	Email           string `json:"email,omitempty"`
	IsAuthenticated bool   `json:"is_authenticated"`
	IsInitialized   bool   `json:"is_initialized"`
}

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, creds backend.Credentials) (string, error)
}

// Manager holds the process-wide auth session.
type Manager struct {
	store  Store
	clock  clock.PassiveClock
	events *domain.EventDispatcher

	mu          sync.RWMutex
	token       string
	email       string
	initialized bool

	ready     chan struct{}
	readyOnce sync.Once
}

var _ oauth2.TokenSource = (*Manager)(nil)

// NewManager creates a Manager backed by store.
func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		clock: clock.RealClock{},
		ready: make(chan struct{}),
	}
}

// WithEvents sets the domain event dispatcher (optional dependency).
func (m *Manager) WithEvents(d *domain.EventDispatcher) *Manager {
	m.events = d
	return m
}

// WithClock overrides the clock used for token expiry checks.
func (m *Manager) WithClock(clk clock.PassiveClock) *Manager {
	m.clock = clk
	return m
}

// Initialize loads the persisted session. A corrupt or expired record is
// discarded. Ready is closed when Initialize returns, whatever the outcome.
func (m *Manager) Initialize(_ context.Context) error {
	defer m.markReady()

	rec, err := m.store.Load()
	if errors.Is(err, ErrCorruptStore) {
		logger.Warn("Discarding unreadable auth session", zap.Error(err))
		if cerr := m.store.Clear(); cerr != nil {
			return cerr
		}
		rec, err = nil, nil
	}
	if err != nil {
		return fmt.Errorf("load auth session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = true

	if rec == nil || rec.Token == "" {
		return nil
	}
	if m.Expired(rec.Token) {
		logger.Info("Stored auth token has expired")
		return m.store.Clear()
	}
	m.token = rec.Token
	m.email = rec.Email
	return nil
}

// Ready is closed once Initialize has finished.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

func (m *Manager) markReady() {
	m.readyOnce.Do(func() { close(m.ready) })
}

// Teardown drops the in-memory session. The persisted record is kept so the
// next process picks it up. Waiters on Ready are released.
func (m *Manager) Teardown() {
	m.mu.Lock()
	m.token = ""
	m.email = ""
	m.initialized = false
	m.mu.Unlock()
	m.markReady()
}

// Snapshot returns the current session.
func (m *Manager) Snapshot() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Session{
		Token:           m.token,
		Email:           m.email,
		IsAuthenticated: m.token != "",
		IsInitialized:   m.initialized,
	}
}

// Token implements oauth2.TokenSource for the backend client.
func (m *Manager) Token() (*oauth2.Token, error) {
	m.mu.RLock()
	token := m.token
	m.mu.RUnlock()

	if token == "" {
		return nil, ErrNotAuthenticated
	}
	tok := &oauth2.Token{AccessToken: token, TokenType: "Bearer"}
	if exp, ok := tokenExpiry(token); ok {
		tok.Expiry = exp
	}
	return tok, nil
}

// Login authenticates with the backend and persists the new token.
func (m *Manager) Login(ctx context.Context, authn Authenticator, creds backend.Credentials) error {
	token, err := authn.Login(ctx, creds)
	if err != nil {
		return err
	}
	if err := m.store.Save(&Record{Token: token, Email: creds.Email, SavedAt: m.clock.Now().UTC()}); err != nil {
		return fmt.Errorf("persist auth session: %w", err)
	}

	m.mu.Lock()
	m.token = token
	m.email = creds.Email
	m.initialized = true
	m.mu.Unlock()

	logger.Info("User logged in", zap.String("email", creds.Email))
	m.events.Publish(ctx, domain.EventUserLoggedIn, domain.AggregateAuthSession, creds.Email, domain.AuthPayload{Email: creds.Email})
	return nil
}

// Logout clears the session in memory and on disk.
func (m *Manager) Logout(ctx context.Context) error {
	email, err := m.clear("")
	if err != nil {
		return err
	}
	m.events.Publish(ctx, domain.EventUserLoggedOut, domain.AggregateAuthSession, email, domain.AuthPayload{Email: email})
	return nil
}

// Invalidate clears the session if it still holds token. It reports whether
// the session was cleared; a newer login is left alone.
func (m *Manager) Invalidate(ctx context.Context, token, reason string) bool {
	m.mu.RLock()
	current := m.token
	m.mu.RUnlock()
	if current == "" || current != token {
		return false
	}

	email, err := m.clear(token)
	if err != nil {
		logger.Error("Failed to clear invalidated session", zap.Error(err))
	}
	logger.Warn("Auth session invalidated", zap.String("email", email), zap.String("reason", reason))
	m.events.Publish(context.WithoutCancel(ctx), domain.EventSessionInvalidated, domain.AggregateAuthSession, email,
		domain.AuthPayload{Email: email, Reason: reason})
	return true
}

// clear empties the session. When expect is non-empty only that token is
// cleared.
func (m *Manager) clear(expect string) (string, error) {
	m.mu.Lock()
	if expect != "" && m.token != expect {
		m.mu.Unlock()
		return "", nil
	}
	email := m.email
	m.token = ""
	m.email = ""
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		return email, err
	}
	return email, nil
}

// Expired reports whether token carries an exp claim in the past.
func (m *Manager) Expired(token string) bool {
	exp, ok := tokenExpiry(token)
	return ok && !m.clock.Now().Before(exp)
}

// tokenExpiry reads the exp claim without verifying the signature; the
// backend remains the authority on validity.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
