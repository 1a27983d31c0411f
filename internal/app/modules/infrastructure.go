package modules

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"odoodeploy.io/console/internal/auth"
	"odoodeploy.io/console/internal/backend"
	"odoodeploy.io/console/internal/config"
	"odoodeploy.io/console/internal/domain"
	"odoodeploy.io/console/internal/governance/audit"
	"odoodeploy.io/console/internal/pkg/logger"
	"odoodeploy.io/console/internal/pkg/worker"
)

// Infrastructure holds shared cross-cutting dependencies for all modules.
// It is a provider, not a Module.
type Infrastructure struct {
	Config      *config.Config
	Pools       *worker.Pools
	Events      *domain.EventDispatcher
	AuditLogger *audit.Logger
	Sessions    *auth.Manager
	Backend     *backend.Client
}

// NewInfrastructure initializes pools, the session store, the event bus and
// the backend client. The backend client authenticates with the session
// manager's token.
func NewInfrastructure(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize: cfg.Worker.GeneralPoolSize,
		DeployPoolSize:  cfg.Worker.DeployPoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	storeDir, err := cfg.Auth.ResolveStoreDir()
	if err != nil {
		pools.Shutdown()
		return nil, err
	}

	events := domain.NewEventDispatcher()
	auditLogger := audit.NewLogger(nil)
	auditLogger.Subscribe(events)

	sessions := auth.NewManager(auth.NewFileStore(storeDir, cfg.Security.EncryptionKeyBytes())).
		WithEvents(events)

	client, err := backend.New(cfg.Backend.BaseURL, cfg.Backend.Timeout, sessions)
	if err != nil {
		pools.Shutdown()
		return nil, fmt.Errorf("init backend client: %w", err)
	}

	return &Infrastructure{
		Config:      cfg,
		Pools:       pools,
		Events:      events,
		AuditLogger: auditLogger,
		Sessions:    sessions,
		Backend:     client,
	}, nil
}

// InitializeSession loads the persisted session in the background. Gated
// requests wait for it through the manager's Ready channel.
func (i *Infrastructure) InitializeSession() error {
	return i.Pools.SubmitDetached("general", func(ctx context.Context) {
		if err := i.Sessions.Initialize(ctx); err != nil {
			logger.Warn("Session store could not be read, starting logged out", zap.Error(err))
		}
	})
}

// Close releases shared resources.
func (i *Infrastructure) Close() {
	if i == nil {
		return
	}
	if i.Pools != nil {
		i.Pools.Shutdown()
	}
}
