package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "odoodeploy.io/console/internal/pkg/errors"
	"odoodeploy.io/console/internal/wizard"
)

// CreateWizardSession handles POST /wizard/sessions.
func (s *Server) CreateWizardSession(c *gin.Context) {
	view, err := s.wizard.Create(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// GetWizardSession handles GET /wizard/sessions/{sessionId}.
func (s *Server) GetWizardSession(c *gin.Context) {
	s.respondView(c, http.StatusOK)(s.wizard.Get(c.Param("sessionId")))
}

// DeleteWizardSession handles DELETE /wizard/sessions/{sessionId}.
func (s *Server) DeleteWizardSession(c *gin.Context) {
	if err := s.wizard.Delete(c.Param("sessionId")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SelectWizardTemplate handles PUT /wizard/sessions/{sessionId}/template.
func (s *Server) SelectWizardTemplate(c *gin.Context) {
	var req SelectTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "template_id is required"))
		return
	}
	s.respondView(c, http.StatusOK)(s.wizard.SelectTemplate(c.Param("sessionId"), req.TemplateID))
}

// NextWizardStep handles POST /wizard/sessions/{sessionId}/next.
func (s *Server) NextWizardStep(c *gin.Context) {
	s.respondView(c, http.StatusOK)(s.wizard.Next(c.Param("sessionId")))
}

// PreviousWizardStep handles POST /wizard/sessions/{sessionId}/back.
func (s *Server) PreviousWizardStep(c *gin.Context) {
	s.respondView(c, http.StatusOK)(s.wizard.Back(c.Param("sessionId")))
}

// UpdateWizardFields handles PATCH /wizard/sessions/{sessionId}/fields.
// A changed instance name re-arms the debounced availability check.
func (s *Server) UpdateWizardFields(c *gin.Context) {
	var patch wizard.FieldPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "invalid field patch"))
		return
	}
	s.respondView(c, http.StatusOK)(s.wizard.UpdateFields(c.Param("sessionId"), patch))
}

// CheckWizardAvailability handles POST /wizard/sessions/{sessionId}/availability.
// It skips the debounce and returns once the probe has settled.
func (s *Server) CheckWizardAvailability(c *gin.Context) {
	s.respondView(c, http.StatusOK)(s.wizard.CheckAvailability(c.Request.Context(), c.Param("sessionId")))
}

// DeployWizardSession handles POST /wizard/sessions/{sessionId}/deploy.
// The deployment runs in the background; clients poll the session.
func (s *Server) DeployWizardSession(c *gin.Context) {
	s.respondView(c, http.StatusAccepted)(s.wizard.Deploy(c.Param("sessionId")))
}

// ResetWizardSession handles POST /wizard/sessions/{sessionId}/reset.
func (s *Server) ResetWizardSession(c *gin.Context) {
	s.respondView(c, http.StatusOK)(s.wizard.Reset(c.Param("sessionId")))
}

func (s *Server) respondView(c *gin.Context, status int) func(wizard.View, error) {
	return func(view wizard.View, err error) {
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(status, view)
	}
}
