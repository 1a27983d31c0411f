package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetLiveness handles GET /health/live.
func (s *Server) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, Health{
		Status: HealthStatusOk,
	})
}

// GetReadiness handles GET /health/ready. The console is ready once the
// persisted session has been loaded and the worker pools accept work.
func (s *Server) GetReadiness(c *gin.Context) {
	checks := make(map[string]string)
	allHealthy := true

	select {
	case <-s.sessions.Ready():
		checks["session"] = "ok"
	default:
		checks["session"] = "initializing"
		allHealthy = false
	}

	if s.pools != nil {
		if s.pools.IsClosed() {
			checks["workers"] = "closed"
			allHealthy = false
		} else {
			checks["workers"] = "ok"
		}
	}

	status := HealthStatusOk
	httpStatus := http.StatusOK
	if !allHealthy {
		status = HealthStatusDegraded
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, Health{
		Status: status,
		Checks: checks,
	})
}
