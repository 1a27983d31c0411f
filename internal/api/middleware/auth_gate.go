package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"odoodeploy.io/console/internal/auth"
	apperrors "odoodeploy.io/console/internal/pkg/errors"
)

// Admitter decides whether a protected request may proceed.
type Admitter interface {
	Admit(ctx context.Context) auth.Admission
}

// AuthGate admits protected routes through the auth gate. Only
// DecisionRender reaches the handler:
//
//	blank          → 503 SESSION_UNAVAILABLE (retry once initialized)
//	redirect_login → 401 AUTH_REQUIRED
//	force_logout   → 401 SESSION_INVALIDATED (session already cleared)
func AuthGate(g Admitter) gin.HandlerFunc {
	return func(c *gin.Context) {
		adm := g.Admit(c.Request.Context())

		switch adm.Decision {
		case auth.DecisionRender:
			c.Request = c.Request.WithContext(SetAccount(c.Request.Context(), adm.Account))
			c.Next()
		case auth.DecisionRedirectLogin:
			AbortWithAppError(c, apperrors.Unauthorized(apperrors.CodeAuthRequired, "login required"))
		case auth.DecisionForceLogout:
			AbortWithAppError(c,
				apperrors.Unauthorized(apperrors.CodeSessionInvalidated, "session is no longer valid, log in again").
					WithParam("reason", adm.Reason),
			)
		default:
			AbortWithAppError(c,
				apperrors.Unavailable(apperrors.CodeSessionUnavailable, "session is not ready"),
			)
		}
	}
}
