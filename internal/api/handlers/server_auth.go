package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"odoodeploy.io/console/internal/api/middleware"
	"odoodeploy.io/console/internal/backend"
	apperrors "odoodeploy.io/console/internal/pkg/errors"
	"odoodeploy.io/console/internal/pkg/logger"
	"odoodeploy.io/console/internal/validation"
)

const loginFailedMessage = "Login failed"

// Login handles POST /auth/login.
func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "email and password are required"))
		return
	}
	if res := validation.Email(req.Email); !res.Valid {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, res.Message).
			WithFieldErrors(apperrors.FieldError{Field: "email", Code: string(res.Code), Message: res.Message}))
		return
	}

	err := s.sessions.Login(c.Request.Context(), s.authn, backend.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			logger.Warn("login failed: backend rejected credentials",
				logger.RequestID(middleware.GetRequestID(c.Request.Context())),
				zap.Int("backend_status", apiErr.Status),
			)
			_ = c.Error(apperrors.Unauthorized(apperrors.CodeAuthFailed, backend.MessageOr(err, loginFailedMessage)).WithCause(err))
			return
		}
		_ = c.Error(backendError(err, loginFailedMessage))
		return
	}

	c.JSON(http.StatusOK, s.sessions.Snapshot())
}

// Logout handles POST /auth/logout.
func (s *Server) Logout(c *gin.Context) {
	if err := s.sessions.Logout(c.Request.Context()); err != nil {
		_ = c.Error(apperrors.Internal(apperrors.CodeLogoutFailed, "failed to clear the stored session").WithCause(err))
		return
	}
	c.JSON(http.StatusOK, s.sessions.Snapshot())
}

// GetSession handles GET /auth/session. The dashboard calls it when a view
// mounts, so the token is always checked against the backend once more.
func (s *Server) GetSession(c *gin.Context) {
	adm := s.gate.Revalidate(c.Request.Context())
	c.JSON(http.StatusOK, SessionStatus{
		Decision: adm.Decision,
		Reason:   adm.Reason,
		Session:  s.sessions.Snapshot(),
	})
}
