// Package errors defines the error envelope the console API returns.
//
// Handlers and services build an *AppError from one of the status
// constructors, attach a cause, params or field errors, and hand it to
// c.Error(). middleware.ErrorHandler renders it as
// {code, message, params, field_errors}.
package errors

import (
	"fmt"
	"net/http"
)

// AppError carries a stable code for the browser, an English message, the
// HTTP status to answer with and the cause for logs.
type AppError struct {
	Code        string
	Message     string
	Status      int
	Params      map[string]any
	FieldErrors []FieldError
	Err         error
}

// FieldError points at one invalid form field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// New creates an AppError answered with status.
func New(code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

// WithCause records the underlying error. The cause is logged, never sent
// to the browser.
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// WithParam adds one structured param, e.g. the failing saga stage.
func (e *AppError) WithParam(key string, value any) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]any, 2)
	}
	e.Params[key] = value
	return e
}

// WithFieldErrors appends field-level failures for form binding.
func (e *AppError) WithFieldErrors(fieldErrors ...FieldError) *AppError {
	e.FieldErrors = append(e.FieldErrors, fieldErrors...)
	return e
}

// BadRequest is a malformed request (400).
func BadRequest(code, message string) *AppError {
	return New(code, message, http.StatusBadRequest)
}

// Unauthorized is a missing or rejected session (401).
func Unauthorized(code, message string) *AppError {
	return New(code, message, http.StatusUnauthorized)
}

// Conflict is a request the current state refuses (409).
func Conflict(code, message string) *AppError {
	return New(code, message, http.StatusConflict)
}

// Unprocessable is a well-formed request with invalid content (422).
func Unprocessable(code, message string) *AppError {
	return New(code, message, http.StatusUnprocessableEntity)
}

// Internal is a console fault (500).
func Internal(code, message string) *AppError {
	return New(code, message, http.StatusInternalServerError)
}

// BadGateway is a failure reported by, or reaching, the platform backend (502).
func BadGateway(code, message string) *AppError {
	return New(code, message, http.StatusBadGateway)
}

// Unavailable is a temporary refusal the browser should retry (503).
func Unavailable(code, message string) *AppError {
	return New(code, message, http.StatusServiceUnavailable)
}
