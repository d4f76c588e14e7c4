package model

import (
	"errors"
	"fmt"
)

// Standard error codes.
const (
	ErrBadRequest          = "BAD_REQUEST"
	ErrUnauthorized        = "UNAUTHORIZED"
	ErrForbidden           = "FORBIDDEN"
	ErrNotFound            = "NOT_FOUND"
	ErrConflict            = "CONFLICT"
	ErrValidationError     = "VALIDATION_ERROR"
	ErrApplicationRejected = "APPLICATION_REJECTED"
	ErrInternalError       = "INTERNAL_ERROR"
	ErrBackendUnavailable  = "BACKEND_UNAVAILABLE"
	ErrBackendTimeout      = "BACKEND_TIMEOUT"
)

// Wizard-specific error codes.
const (
	ErrWizardNotFound  = "WIZARD_NOT_FOUND"
	ErrWizardNotActive = "WIZARD_NOT_ACTIVE"
	ErrWizardExpired   = "WIZARD_EXPIRED"
)

// ErrorEnvelope is the standard error response envelope returned by the
// console API. It implements the error interface.
type ErrorEnvelope struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
	TraceID string       `json:"trace_id"`
}

// Error implements the error interface.
func (e *ErrorEnvelope) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FieldError describes a field-level validation error.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewBadRequestError returns a BAD_REQUEST error.
func NewBadRequestError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrBadRequest, Message: msg}
}

// NewUnauthorizedError returns an UNAUTHORIZED error.
func NewUnauthorizedError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrUnauthorized, Message: msg}
}

// NewForbiddenError returns a FORBIDDEN error.
func NewForbiddenError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrForbidden, Message: msg}
}

// NewNotFoundError returns a NOT_FOUND error.
func NewNotFoundError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrNotFound, Message: msg}
}

// NewConflictError returns a CONFLICT error.
func NewConflictError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrConflict, Message: msg}
}

// NewValidationError returns a VALIDATION_ERROR with field-level details.
// Validation failures are resolved before any network call is made.
func NewValidationError(details []FieldError) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrValidationError,
		Message: "One or more fields are invalid",
		Details: details,
	}
}

// NewRejectionError returns an APPLICATION_REJECTED error carrying the
// backend's own message (e.g. "designation already exists"). It marks a
// well-formed 2xx response whose envelope reports success: false, which
// callers must treat differently from a transport failure.
func NewRejectionError(msg string) *ErrorEnvelope {
	if msg == "" {
		msg = "The request was rejected"
	}
	return &ErrorEnvelope{Code: ErrApplicationRejected, Message: msg}
}

// NewInternalError returns an INTERNAL_ERROR.
func NewInternalError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrInternalError,
		Message: "An unexpected error occurred",
	}
}

// NewBackendUnavailableError returns a BACKEND_UNAVAILABLE error.
func NewBackendUnavailableError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrBackendUnavailable,
		Message: "The backend service is temporarily unavailable",
	}
}

// NewBackendTimeoutError returns a BACKEND_TIMEOUT error.
func NewBackendTimeoutError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrBackendTimeout,
		Message: "The backend service did not respond in time",
	}
}

// NewWizardNotActiveError returns a WIZARD_NOT_ACTIVE error.
func NewWizardNotActiveError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrWizardNotActive, Message: msg}
}

// NewWizardExpiredError returns a WIZARD_EXPIRED error.
func NewWizardExpiredError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrWizardExpired, Message: msg}
}

// IsRejection reports whether err is an application rejection.
func IsRejection(err error) bool {
	var ee *ErrorEnvelope
	return errors.As(err, &ee) && ee.Code == ErrApplicationRejected
}

// AsEnvelope extracts an ErrorEnvelope from err, wrapping unknown errors
// as INTERNAL_ERROR so transport code always has a code to map.
func AsEnvelope(err error) *ErrorEnvelope {
	var ee *ErrorEnvelope
	if errors.As(err, &ee) {
		return ee
	}
	return NewInternalError()
}
