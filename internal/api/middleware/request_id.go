package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"odoodeploy.io/console/internal/backend"
)

type contextKey string

const (
	// RequestIDHeader is the HTTP header for request tracing.
	RequestIDHeader = "X-Request-ID"

	ctxKeyRequestID contextKey = "request_id"
	ctxKeyAccount   contextKey = "account"
)

// RequestID injects a unique request ID into the context and response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			id, _ := uuid.NewV7()
			rid = id.String()
		}
		c.Set(string(ctxKeyRequestID), rid)
		c.Writer.Header().Set(RequestIDHeader, rid)
		c.Request = c.Request.WithContext(
			context.WithValue(c.Request.Context(), ctxKeyRequestID, rid),
		)
		c.Next()
	}
}

// GetRequestID extracts request ID from context.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return v
	}
	return ""
}

// SetAccount stores the account the auth gate admitted.
func SetAccount(ctx context.Context, acct *backend.Account) context.Context {
	return context.WithValue(ctx, ctxKeyAccount, acct)
}

// GetAccount extracts the admitted account from context.
func GetAccount(ctx context.Context) *backend.Account {
	if v, ok := ctx.Value(ctxKeyAccount).(*backend.Account); ok {
		return v
	}
	return nil
}
