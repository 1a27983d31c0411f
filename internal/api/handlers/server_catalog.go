package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListTemplates handles GET /templates.
func (s *Server) ListTemplates(c *gin.Context) {
	templates, err := s.catalog.ListTemplates(c.Request.Context())
	if err != nil {
		_ = c.Error(backendError(err, "Failed to load templates"))
		return
	}
	c.JSON(http.StatusOK, toTemplates(templates))
}

// ListDomains handles GET /instances/{instanceId}/domains.
func (s *Server) ListDomains(c *gin.Context) {
	domains, err := s.catalog.ListDomains(c.Request.Context(), c.Param("instanceId"))
	if err != nil {
		_ = c.Error(backendError(err, "Failed to load domains"))
		return
	}
	c.JSON(http.StatusOK, toDomains(domains))
}
