// Package app is the composition root. Bootstrap stays orchestration-only.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"odoodeploy.io/console/internal/api/handlers"
	"odoodeploy.io/console/internal/app/modules"
	"odoodeploy.io/console/internal/config"
	"odoodeploy.io/console/internal/pkg/metrics"
	"odoodeploy.io/console/internal/pkg/worker"
)

// Application holds composed application dependencies.
type Application struct {
	Config  *config.Config
	Router  *gin.Engine
	Infra   *modules.Infrastructure
	Pools   *worker.Pools
	Modules []modules.Module
}

// Bootstrap initializes all dependencies using module-oriented manual DI.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	infra, err := modules.NewInfrastructure(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init infrastructure: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(reg); err != nil {
		infra.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	if err := reg.Register(metrics.NewPoolCollector(infra.Pools.Metrics)); err != nil {
		infra.Close()
		return nil, fmt.Errorf("register pool metrics: %w", err)
	}

	authModule := modules.NewAuthModule(infra)
	allModules := []modules.Module{
		authModule,
		modules.NewWizardModule(ctx, infra),
		modules.NewSubscriptionModule(infra),
	}

	server := handlers.NewServer(modules.NewServerDeps(infra, allModules))

	return &Application{
		Config:  cfg,
		Router:  newRouter(cfg, server, authModule.Gate(), reg),
		Infra:   infra,
		Pools:   infra.Pools,
		Modules: allModules,
	}, nil
}
