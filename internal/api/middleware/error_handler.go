// Package middleware provides the gin middleware chain of the console API.
package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "odoodeploy.io/console/internal/pkg/errors"
	"odoodeploy.io/console/internal/pkg/logger"
)

// ErrorHandler is a Gin middleware that provides centralized error handling.
// It captures errors added via c.Error() and returns a consistent JSON response.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			fields := []zap.Field{
				logger.RequestID(GetRequestID(c.Request.Context())),
				zap.String("code", appErr.Code),
				zap.String("message", appErr.Message),
				zap.Int("status", appErr.Status),
			}
			if appErr.Err != nil {
				fields = append(fields, zap.Error(appErr.Err))
			}
			if appErr.Status >= http.StatusInternalServerError {
				logger.Error("Request failed", fields...)
			} else {
				logger.Warn("Request error", fields...)
			}
			c.JSON(appErr.Status, errorBody(appErr))
			return
		}

		// Fallback: generic 500 error
		logger.Error("Unhandled request error",
			logger.RequestID(GetRequestID(c.Request.Context())),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "An internal error occurred",
		})
	}
}

// AbortWithAppError writes appErr in the ErrorHandler shape and stops the chain.
func AbortWithAppError(c *gin.Context, appErr *apperrors.AppError) {
	c.AbortWithStatusJSON(appErr.Status, errorBody(appErr))
}

func errorBody(appErr *apperrors.AppError) gin.H {
	body := gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if len(appErr.Params) > 0 {
		body["params"] = appErr.Params
	}
	if len(appErr.FieldErrors) > 0 {
		body["field_errors"] = appErr.FieldErrors
	}
	return body
}
