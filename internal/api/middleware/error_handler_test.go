package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"odoodeploy.io/console/internal/config"
	apperrors "odoodeploy.io/console/internal/pkg/errors"
	"odoodeploy.io/console/internal/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	_ = logger.Init(config.LogConfig{Level: "error", Format: "json"})
}

func TestErrorHandler_NoErrors(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestErrorHandler_AppError(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/fail", func(c *gin.Context) {
		_ = c.Error(apperrors.WizardSessionNotFound("ws-1"))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/fail", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}

	var body struct {
		Code   string         `json:"code"`
		Params map[string]any `json:"params"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Code != apperrors.CodeWizardSessionNotFound {
		t.Errorf("code = %q, want %s", body.Code, apperrors.CodeWizardSessionNotFound)
	}
	if body.Params["session_id"] != "ws-1" {
		t.Errorf("params = %+v, want session_id ws-1", body.Params)
	}
}

func TestErrorHandler_GenericError(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/err", func(c *gin.Context) {
		_ = c.Error(fmt.Errorf("something unexpected"))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/err", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["code"] != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want INTERNAL_ERROR", body["code"])
	}
}

func TestErrorHandler_FieldErrors(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler())
	router.POST("/fields", func(c *gin.Context) {
		_ = c.Error(apperrors.ValidationFailed(
			apperrors.FieldError{Field: "instance_name", Code: "TOO_SHORT", Message: "Instance name must be at least 3 characters"},
		))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/fields", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}

	var body struct {
		Code        string                 `json:"code"`
		FieldErrors []apperrors.FieldError `json:"field_errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.FieldErrors) != 1 || body.FieldErrors[0].Field != "instance_name" {
		t.Errorf("field_errors = %+v, want one instance_name entry", body.FieldErrors)
	}
}
