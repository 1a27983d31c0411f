package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"odoodeploy.io/console/internal/api/openapi"
	apperrors "odoodeploy.io/console/internal/pkg/errors"
	"odoodeploy.io/console/internal/pkg/logger"
)

// Field error codes for contract violations.
const (
	contractCodeParameter = "INVALID_PARAMETER"
	contractCodeSchema    = "SCHEMA_MISMATCH"
)

// ValidatorOptions tunes the OpenAPI validator.
type ValidatorOptions struct {
	// ValidateResponses also checks handler output against the contract and
	// replaces non-conforming responses with a 500.
	ValidateResponses bool
}

// MustOpenAPIValidator is NewOpenAPIValidator that panics on setup failure.
func MustOpenAPIValidator(basePath string, opts ValidatorOptions) gin.HandlerFunc {
	mw, err := NewOpenAPIValidator(basePath, opts)
	if err != nil {
		panic(fmt.Sprintf("init openapi validator: %v", err))
	}
	return mw
}

// NewOpenAPIValidator validates requests, and optionally responses, against
// the embedded console contract. The contract's paths are relative to
// basePath. Requests the contract does not describe pass through.
func NewOpenAPIValidator(basePath string, opts ValidatorOptions) (gin.HandlerFunc, error) {
	doc, err := openapi.GetSwagger()
	if err != nil {
		return nil, err
	}
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("create contract router: %w", err)
	}
	basePath = normalizeBasePath(basePath)

	return func(c *gin.Context) {
		input, ok := findOperation(router, c.Request, basePath)
		if !ok {
			c.Next()
			return
		}

		if err := openapi3filter.ValidateRequest(c.Request.Context(), input); err != nil {
			AbortWithAppError(c, apperrors.BadRequest(apperrors.CodeInvalidRequest,
				"request does not match the API contract").
				WithCause(err).
				WithFieldErrors(contractFieldErrors(err)...))
			return
		}

		if !opts.ValidateResponses {
			c.Next()
			return
		}

		rec := newRecordingWriter(c.Writer)
		c.Writer = rec
		c.Next()
		c.Writer = rec.ResponseWriter
		if len(c.Errors) > 0 && !rec.Written() {
			// ErrorHandler renders the error envelope.
			return
		}

		out := &openapi3filter.ResponseValidationInput{
			RequestValidationInput: input,
			Status:                 rec.Status(),
			Header:                 rec.Header().Clone(),
			Options:                input.Options,
		}
		out.SetBodyBytes(rec.body.Bytes())

		if err := openapi3filter.ValidateResponse(c.Request.Context(), out); err != nil {
			logger.Error("Response violates the API contract",
				logger.RequestID(GetRequestID(c.Request.Context())),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Int("status", rec.Status()),
				zap.Error(err),
			)
			rec.replace(http.StatusInternalServerError, errorBody(apperrors.Internal(
				apperrors.CodeResponseContract, "response does not match the API contract")))
		}

		if err := rec.flush(); err != nil {
			logger.Warn("Failed to flush validated response",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
		}
	}, nil
}

// findOperation resolves the contract operation for req. The URL is matched
// with basePath stripped and restored before returning.
func findOperation(router routers.Router, req *http.Request, basePath string) (*openapi3filter.RequestValidationInput, bool) {
	path, rawPath := req.URL.Path, req.URL.RawPath
	req.URL.Path = normalizeValidationPath(basePath, path)
	if rawPath != "" {
		req.URL.RawPath = normalizeValidationPath(basePath, rawPath)
	}
	route, params, err := router.FindRoute(req)
	req.URL.Path, req.URL.RawPath = path, rawPath

	if err != nil {
		if !isRouteMiss(err) {
			logger.Debug("Contract route lookup failed", zap.String("path", path), zap.Error(err))
		}
		return nil, false
	}
	return &openapi3filter.RequestValidationInput{
		Request:    req,
		PathParams: params,
		Route:      route,
		Options: &openapi3filter.Options{
			// AuthGate handles authentication.
			AuthenticationFunc: func(context.Context, *openapi3filter.AuthenticationInput) error { return nil },
		},
	}, true
}

func normalizeBasePath(basePath string) string {
	basePath = strings.Trim(strings.TrimSpace(basePath), "/")
	if basePath == "" {
		return ""
	}
	return "/" + basePath
}

func normalizeValidationPath(basePath, path string) string {
	switch {
	case basePath == "":
		if path == "" {
			return "/"
		}
		return path
	case path == basePath:
		return "/"
	case strings.HasPrefix(path, basePath+"/"):
		return strings.TrimPrefix(path, basePath)
	}
	return path
}

func isRouteMiss(err error) bool {
	var routeErr *routers.RouteError
	if !errors.As(err, &routeErr) {
		return false
	}
	return routeErr.Reason == routers.ErrPathNotFound.Error() ||
		routeErr.Reason == routers.ErrMethodNotAllowed.Error()
}

// contractFieldErrors points the browser at the offending parameter or
// body property.
func contractFieldErrors(err error) []apperrors.FieldError {
	var reqErr *openapi3filter.RequestError
	if !errors.As(err, &reqErr) {
		return nil
	}
	if reqErr.Parameter != nil {
		return []apperrors.FieldError{{
			Field:   reqErr.Parameter.Name,
			Code:    contractCodeParameter,
			Message: reqErr.Reason,
		}}
	}
	var schemaErr *openapi3.SchemaError
	if !errors.As(reqErr.Err, &schemaErr) {
		return nil
	}
	field := strings.Join(schemaErr.JSONPointer(), ".")
	if field == "" {
		field = "body"
	}
	return []apperrors.FieldError{{Field: field, Code: contractCodeSchema, Message: schemaErr.Reason}}
}

// recordingWriter holds the response until it has been validated.
type recordingWriter struct {
	gin.ResponseWriter
	body   bytes.Buffer
	status int
}

func newRecordingWriter(w gin.ResponseWriter) *recordingWriter {
	return &recordingWriter{ResponseWriter: w}
}

func (w *recordingWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
}

func (w *recordingWriter) WriteHeaderNow() {
	if w.status == 0 {
		w.status = http.StatusOK
	}
}

func (w *recordingWriter) Write(data []byte) (int, error) {
	w.WriteHeaderNow()
	return w.body.Write(data)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *recordingWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *recordingWriter) Size() int    { return w.body.Len() }
func (w *recordingWriter) Written() bool { return w.status != 0 }

func (w *recordingWriter) replace(status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(`{"code":"` + apperrors.CodeResponseContract + `","message":"response does not match the API contract"}`)
	}
	w.status = status
	w.body.Reset()
	w.body.Write(data)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
}

func (w *recordingWriter) flush() error {
	w.ResponseWriter.WriteHeader(w.Status())
	if w.body.Len() == 0 {
		return nil
	}
	_, err := w.ResponseWriter.Write(w.body.Bytes())
	return err
}
