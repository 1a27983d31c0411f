package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"odoodeploy.io/console/internal/api/handlers"
	"odoodeploy.io/console/internal/api/middleware"
	"odoodeploy.io/console/internal/config"
	"odoodeploy.io/console/internal/pkg/logger"
)

const apiBasePath = "/api/v1"

// defaultDevOrigins are allowed when no origins are configured.
var defaultDevOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

func newRouter(cfg *config.Config, server *handlers.Server, gate middleware.Admitter, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), cors.New(buildCORSConfig(cfg)), middleware.ErrorHandler())

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	level := gin.WrapH(logger.LevelHandler())
	router.GET("/log/level", level)
	router.PUT("/log/level", level)

	api := router.Group(apiBasePath)
	api.Use(middleware.MustOpenAPIValidator(apiBasePath, middleware.ValidatorOptions{
		ValidateResponses: cfg.Server.ValidateResponses,
	}))
	protected := api.Group("", middleware.AuthGate(gate))
	server.RegisterRoutes(api, protected)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "message": "route not found"})
	})
	return router
}

// buildCORSConfig turns the configured allowlist into a cors.Config. A "*"
// entry is ignored unless UnsafeAllowAllOrigins is set. Allowing all origins
// never sends credentials. An empty allowlist falls back to the local
// dashboard dev servers.
func buildCORSConfig(cfg *config.Config) cors.Config {
	cc := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: cfg.Server.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}

	if cfg.Server.UnsafeAllowAllOrigins {
		cc.AllowAllOrigins = true
		cc.AllowCredentials = false
		return cc
	}

	origins := make([]string, 0, len(cfg.Server.AllowedOrigins))
	for _, origin := range cfg.Server.AllowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "" || origin == "*" {
			continue
		}
		origins = append(origins, strings.TrimRight(origin, "/"))
	}
	if len(origins) == 0 {
		origins = append(origins, defaultDevOrigins...)
	}
	cc.AllowOrigins = origins
	return cc
}
