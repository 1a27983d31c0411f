package modules

import (
	"context"

	"odoodeploy.io/console/internal/api/handlers"
	"odoodeploy.io/console/internal/auth"
)

// AuthModule wires login and the auth gate.
type AuthModule struct {
	infra *Infrastructure
	gate  *auth.Gate
}

// NewAuthModule creates an auth module with explicit constructor wiring.
func NewAuthModule(infra *Infrastructure) *AuthModule {
	gate := auth.NewGate(infra.Sessions, infra.Backend, infra.Config.Auth.ValidationTTL).
		WithInitTimeout(infra.Config.Auth.InitTimeout)
	return &AuthModule{infra: infra, gate: gate}
}

func (m *AuthModule) Name() string { return "auth" }

// Gate returns the gate protected routes are admitted through.
func (m *AuthModule) Gate() *auth.Gate { return m.gate }

func (m *AuthModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	if deps == nil {
		return
	}
	deps.Authn = m.infra.Backend
	deps.Sessions = m.infra.Sessions
	deps.Gate = m.gate
}

func (m *AuthModule) Start(context.Context) error {
	return m.infra.InitializeSession()
}

func (m *AuthModule) Shutdown(context.Context) error {
	m.infra.Sessions.Teardown()
	return nil
}
