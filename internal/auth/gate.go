package auth

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"odoodeploy.io/console/internal/backend"
	"odoodeploy.io/console/internal/pkg/logger"
	"odoodeploy.io/console/internal/pkg/metrics"
)

// Decision is what the gate tells a protected view to do.
type Decision string

const (
	// DecisionRender: the session is valid, render the view.
	DecisionRender Decision = "render"
	// DecisionBlank: the session is not settled yet, render nothing.
	DecisionBlank Decision = "blank"
	// DecisionRedirectLogin: there is no session, go to the login page.
	DecisionRedirectLogin Decision = "redirect_login"
	// DecisionForceLogout: the session was rejected and has been cleared,
	// do a full-page redirect to the login page.
	DecisionForceLogout Decision = "force_logout"
)

// Validator checks a token against the backend.
type Validator interface {
	ValidateToken(ctx context.Context, token string) (*backend.Account, error)
}

// Admission is a gate decision and, on DecisionRender, the account.
type Admission struct {
	Decision Decision
	Account  *backend.Account
	Reason   string
}

// Gate validates the held credential before a protected view renders.
type Gate struct {
	manager   *Manager
	validator Validator
	ttl       time.Duration
	clock     clock.PassiveClock

	initTimeout time.Duration

	mu          sync.Mutex
	cachedToken string
	cachedAt    time.Time
	account     *backend.Account
}

// NewGate creates a Gate. A positive ttl caches a successful remote
// validation of the same token for that long; zero validates every time.
func NewGate(m *Manager, v Validator, ttl time.Duration) *Gate {
	return &Gate{manager: m, validator: v, ttl: ttl, clock: clock.RealClock{}}
}

// WithClock overrides the clock used for the validation cache.
func (g *Gate) WithClock(clk clock.PassiveClock) *Gate {
	g.clock = clk
	return g
}

// WithInitTimeout bounds how long Admit waits for the manager to finish
// initializing. Zero waits as long as the request context allows.
func (g *Gate) WithInitTimeout(d time.Duration) *Gate {
	g.initTimeout = d
	return g
}

// Admit decides whether a protected view may render. It first waits for the
// manager to finish initializing; if ctx ends before that the decision is
// DecisionBlank. A token the backend rejects, or that cannot be validated,
// invalidates the session and yields DecisionForceLogout.
func (g *Gate) Admit(ctx context.Context) Admission {
	adm := g.admit(ctx, false)
	metrics.RecordGateDecision(string(adm.Decision))
	return adm
}

// Revalidate is Admit without the validation cache: a held token is always
// checked against the backend once more. Views call it when they mount.
func (g *Gate) Revalidate(ctx context.Context) Admission {
	adm := g.admit(ctx, true)
	metrics.RecordGateDecision(string(adm.Decision))
	return adm
}

func (g *Gate) admit(ctx context.Context, fresh bool) Admission {
	wait := ctx
	if g.initTimeout > 0 {
		var cancel context.CancelFunc
		wait, cancel = context.WithTimeout(ctx, g.initTimeout)
		defer cancel()
	}
	select {
	case <-g.manager.Ready():
	case <-wait.Done():
		return Admission{Decision: DecisionBlank, Reason: "session not initialized"}
	}

	sess := g.manager.Snapshot()
	if !sess.IsInitialized {
		return Admission{Decision: DecisionBlank, Reason: "session not initialized"}
	}
	if !sess.IsAuthenticated {
		return Admission{Decision: DecisionRedirectLogin, Reason: "not authenticated"}
	}

	if g.manager.Expired(sess.Token) {
		return g.forceLogout(ctx, sess.Token, "token expired")
	}
	if !fresh {
		if acct, ok := g.cached(sess.Token); ok {
			return Admission{Decision: DecisionRender, Account: acct}
		}
	}

	acct, err := g.validator.ValidateToken(ctx, sess.Token)
	if err != nil {
		if ctx.Err() != nil {
			return Admission{Decision: DecisionBlank, Reason: "request cancelled"}
		}
		reason := "token validation failed"
		if backend.IsUnauthorized(err) {
			reason = "token rejected"
		}
		logger.Warn("Auth gate rejected session", zap.String("reason", reason), zap.Error(err))
		return g.forceLogout(ctx, sess.Token, reason)
	}

	g.remember(sess.Token, acct)
	return Admission{Decision: DecisionRender, Account: acct}
}

func (g *Gate) forceLogout(ctx context.Context, token, reason string) Admission {
	g.forget()
	g.manager.Invalidate(ctx, token, reason)
	return Admission{Decision: DecisionForceLogout, Reason: reason}
}

func (g *Gate) cached(token string) (*backend.Account, bool) {
	if g.ttl <= 0 {
		return nil, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cachedToken != token || g.clock.Since(g.cachedAt) >= g.ttl {
		return nil, false
	}
	return g.account, true
}

func (g *Gate) remember(token string, acct *backend.Account) {
	if g.ttl <= 0 {
		return
	}
	g.mu.Lock()
	g.cachedToken = token
	g.cachedAt = g.clock.Now()
	g.account = acct
	g.mu.Unlock()
}

func (g *Gate) forget() {
	g.mu.Lock()
	g.cachedToken = ""
	g.account = nil
	g.mu.Unlock()
}
