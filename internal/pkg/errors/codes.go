package errors

import "net/http"

// Error codes returned to the browser. Messages are English; the SPA may
// translate by code.

// Wizard error codes.
const (
	CodeWizardSessionNotFound = "WIZARD_SESSION_NOT_FOUND"
	CodeWizardTemplateMissing = "WIZARD_TEMPLATE_REQUIRED"
	CodeWizardInvalidStep     = "WIZARD_INVALID_TRANSITION"
	CodeNameUnavailable       = "NAME_UNAVAILABLE"
	CodeDeploymentFailed      = "DEPLOYMENT_FAILED"
)

// Subscription error codes.
const (
	CodeSubscriptionStageFailed = "SUBSCRIPTION_STAGE_FAILED"
	CodeMissingSubscriptionID   = "MISSING_SUBSCRIPTION_ID"
	CodeActivationInProgress    = "SUBSCRIPTION_ACTIVATION_IN_PROGRESS"
)

// Auth error codes.
const (
	CodeAuthRequired       = "AUTH_REQUIRED"
	CodeAuthFailed         = "AUTH_FAILED"
	CodeSessionInvalidated = "SESSION_INVALIDATED"
	CodeSessionUnavailable = "SESSION_UNAVAILABLE"
	CodeLogoutFailed       = "LOGOUT_FAILED"
)

// Validation error codes.
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeValidationFailed = "VALIDATION_FAILED"

	// CodeResponseContract means a handler produced a response outside the
	// API contract.
	CodeResponseContract = "RESPONSE_CONTRACT_VIOLATION"
)

// Backend error codes.
const (
	CodeBackendUnavailable = "BACKEND_UNAVAILABLE"
	CodeBackendRejected    = "BACKEND_REJECTED"
)

// WizardSessionNotFound is returned for unknown or swept wizard sessions.
func WizardSessionNotFound(sessionID string) *AppError {
	return New(CodeWizardSessionNotFound, "wizard session not found", http.StatusNotFound).
		WithParam("session_id", sessionID)
}

// ValidationFailed reports the invalid deployment form fields.
func ValidationFailed(fieldErrors ...FieldError) *AppError {
	return Unprocessable(CodeValidationFailed, "one or more fields are invalid").
		WithFieldErrors(fieldErrors...)
}

// SubscriptionStageFailed reports the activation stage that failed.
func SubscriptionStageFailed(stage, message string) *AppError {
	return BadGateway(CodeSubscriptionStageFailed, message).WithParam("stage", stage)
}
