// Package validation implements the deployment form's field validators.
//
// Validators are pure and total: they never panic and always return a
// Result, so they can run on every keystroke and again at submit time.
package validation

import (
	"regexp"
	"unicode/utf8"
)

// Code classifies a validation failure.
type Code string

const (
	CodeOK            Code = ""
	CodeRequired      Code = "REQUIRED"
	CodeInvalidFormat Code = "INVALID_FORMAT"
	CodeTooShort      Code = "TOO_SHORT"
)

const (
	// MinInstanceNameLength is the shortest accepted instance name.
	MinInstanceNameLength = 3
	// MinPasswordLength is the shortest accepted admin password.
	MinPasswordLength = 6
)

var (
	instanceNamePattern = regexp.MustCompile(`^[a-z0-9-]+$`)
	emailPattern        = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Result is the outcome of validating one field.
type Result struct {
	Valid   bool   `json:"valid"`
	Code    Code   `json:"code,omitempty"`
	Message string `json:"message"`
}

// OK is the valid result.
func OK() Result {
	return Result{Valid: true}
}

func fail(code Code, message string) Result {
	return Result{Code: code, Message: message}
}

// InstanceName validates the subdomain-like instance name.
func InstanceName(value string) Result {
	switch {
	case value == "":
		return fail(CodeRequired, "Instance name is required")
	case !instanceNamePattern.MatchString(value):
		return fail(CodeInvalidFormat, "Only lowercase letters, numbers and hyphens are allowed")
	case utf8.RuneCountInString(value) < MinInstanceNameLength:
		return fail(CodeTooShort, "Instance name must be at least 3 characters")
	}
	return OK()
}

// Email validates the instance admin login email.
func Email(value string) Result {
	switch {
	case value == "":
		return fail(CodeRequired, "Email is required")
	case !emailPattern.MatchString(value):
		return fail(CodeInvalidFormat, "Please enter a valid email address")
	}
	return OK()
}

// Password validates the instance admin password.
func Password(value string) Result {
	switch {
	case value == "":
		return fail(CodeRequired, "Password is required")
	case utf8.RuneCountInString(value) < MinPasswordLength:
		return fail(CodeTooShort, "Password must be at least 6 characters")
	}
	return OK()
}

// Error adapts a Result for APIs that want an error, such as huh inputs.
func (r Result) Error() error {
	if r.Valid {
		return nil
	}
	return resultError(r)
}

type resultError Result

func (e resultError) Error() string { return e.Message }
