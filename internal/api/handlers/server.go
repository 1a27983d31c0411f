// Package handlers implements the console HTTP API described by the
// embedded OpenAPI contract (internal/api/openapi).
//
// Handlers translate HTTP to service and use case calls. Errors are
// reported with c.Error and rendered by middleware.ErrorHandler.
package handlers

import (
	"context"

	"odoodeploy.io/console/internal/auth"
	"odoodeploy.io/console/internal/backend"
	"odoodeploy.io/console/internal/pkg/worker"
	"odoodeploy.io/console/internal/service"
	"odoodeploy.io/console/internal/usecase"
)

// Catalog lists what the backend can deploy and has deployed.
type Catalog interface {
	ListTemplates(ctx context.Context) ([]backend.Template, error)
	ListDomains(ctx context.Context, instanceID string) ([]backend.Domain, error)
}

// Admitter runs the auth gate. Revalidate bypasses any validation cache.
type Admitter interface {
	Admit(ctx context.Context) auth.Admission
	Revalidate(ctx context.Context) auth.Admission
}

// Server holds every API handler.
type Server struct {
	catalog    Catalog
	authn      auth.Authenticator
	sessions   *auth.Manager
	gate       Admitter
	wizard     *service.WizardService
	activateUC *usecase.ActivateSubscriptionUseCase
	pools      *worker.Pools
}

// ServerDeps holds all dependencies for creating a Server.
// Manual DI, no Wire/Dig.
type ServerDeps struct {
	Catalog    Catalog
	Authn      auth.Authenticator
	Sessions   *auth.Manager
	Gate       Admitter
	Wizard     *service.WizardService
	ActivateUC *usecase.ActivateSubscriptionUseCase
	Pools      *worker.Pools // Optional: readiness reports pool state when set
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		catalog:    deps.Catalog,
		authn:      deps.Authn,
		sessions:   deps.Sessions,
		gate:       deps.Gate,
		wizard:     deps.Wizard,
		activateUC: deps.ActivateUC,
		pools:      deps.Pools,
	}
}
