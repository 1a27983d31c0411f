// Package modules contains domain-oriented dependency modules of the
// composition root.
package modules

import (
	"context"

	"odoodeploy.io/console/internal/api/handlers"
)

// Module represents a domain-specific dependency unit in the composition root.
type Module interface {
	// Name returns a stable module identifier for logging/debugging.
	Name() string

	// ContributeServerDeps injects module-owned dependencies into the HTTP server deps.
	ContributeServerDeps(*handlers.ServerDeps)

	// Start launches module-owned background work.
	Start(context.Context) error

	// Shutdown performs module-local graceful cleanup.
	Shutdown(context.Context) error
}
