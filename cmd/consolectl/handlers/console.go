// Package handlers implements the consolectl commands.
//
// Each exported function is the body of one cobra command. The platform
// backend, session store and event bus are built by newConsole, which tests
// replace with an in-memory setup.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"odoodeploy.io/console/internal/auth"
	"odoodeploy.io/console/internal/availability"
	"odoodeploy.io/console/internal/backend"
	"odoodeploy.io/console/internal/config"
	"odoodeploy.io/console/internal/domain"
	"odoodeploy.io/console/internal/governance/audit"
	"odoodeploy.io/console/internal/pkg/logger"
	"odoodeploy.io/console/internal/usecase"
)

// Backend is the part of the platform API consolectl calls.
type Backend interface {
	auth.Authenticator
	auth.Validator
	availability.Prober
	usecase.InstanceCreator
	usecase.SubscriptionBackend
	ListTemplates(ctx context.Context) ([]backend.Template, error)
	ListDomains(ctx context.Context, instanceID string) ([]backend.Domain, error)
	GetSubdomainSuffix(ctx context.Context) (string, error)
}

var _ Backend = (*backend.Client)(nil)

// Errors returned when the stored session cannot be used.
var (
	ErrNotLoggedIn        = errors.New("not logged in, run 'consolectl login' first")
	ErrSessionUnavailable = errors.New("session store is not available")
)

// console is the wiring shared by all commands.
type console struct {
	cfg      *config.Config
	events   *domain.EventDispatcher
	sessions *auth.Manager
	backend  Backend
}

var newConsole = func(ctx context.Context) (*console, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(config.LogConfig{Level: cfg.Log.Level, Format: logger.FormatConsole}); err != nil {
		return nil, err
	}

	storeDir, err := cfg.Auth.ResolveStoreDir()
	if err != nil {
		return nil, err
	}

	events := domain.NewEventDispatcher()
	audit.NewLogger(nil).Subscribe(events)

	sessions := auth.NewManager(auth.NewFileStore(storeDir, cfg.Security.EncryptionKeyBytes())).
		WithEvents(events)
	if err := sessions.Initialize(ctx); err != nil {
		logger.Warn("Session store could not be read, starting logged out", zap.Error(err))
	}

	client, err := backend.New(cfg.Backend.BaseURL, cfg.Backend.Timeout, sessions)
	if err != nil {
		return nil, fmt.Errorf("init backend client: %w", err)
	}

	return &console{
		cfg:      cfg,
		events:   events,
		sessions: sessions,
		backend:  client,
	}, nil
}

// requireSession validates the stored token against the backend before a
// command that needs it. A rejected token is cleared.
func (c *console) requireSession(ctx context.Context) (*backend.Account, error) {
	adm := auth.NewGate(c.sessions, c.backend, 0).
		WithInitTimeout(c.cfg.Auth.InitTimeout).
		Admit(ctx)
	return adm.Account, admissionError(adm)
}

func admissionError(adm auth.Admission) error {
	switch adm.Decision {
	case auth.DecisionRender:
		return nil
	case auth.DecisionRedirectLogin:
		return ErrNotLoggedIn
	case auth.DecisionForceLogout:
		return fmt.Errorf("session was signed out (%s), run 'consolectl login' again", adm.Reason)
	default:
		return ErrSessionUnavailable
	}
}
