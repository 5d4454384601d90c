// Package apperror defines the application's error kinds and the AppError
// type carried from services up to the HTTP layer.
//
// Every AppError has a kind (one of the sentinel errors below) and a stable
// Code. The kind decides the HTTP status; the Code is sent to clients
// verbatim as "errorCode" so they can branch without parsing messages.
package apperror

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers map these to HTTP status codes.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTimeout      = errors.New("timeout")
	ErrUpstream     = errors.New("upstream failure")
	ErrRateLimited  = errors.New("rate limited")
)

// Codes shared across packages. Domain-specific codes live next to the
// code that raises them.
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeRateLimited = "RATE_LIMITED"
	CodeInternal    = "INTERNAL_ERROR"
)

type AppError struct {
	Err     error             // kind
	Code    string            // stable machine-readable code
	Message string            // human-readable message
	Field   string            // optional: field causing the error
	Details map[string]string // optional: per-field validation messages
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New builds an AppError of the given kind.
func New(kind error, code, message string) *AppError {
	return &AppError{
		Err:     kind,
		Code:    code,
		Message: message,
	}
}

func NotFound(code, message string) *AppError {
	return New(ErrNotFound, code, message)
}

func Conflict(code, message string) *AppError {
	return New(ErrConflict, code, message)
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(code, message string) *AppError {
	return New(ErrForbidden, code, message)
}

func Unauthorized(code, message string) *AppError {
	return New(ErrUnauthorized, code, message)
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Code:    CodeValidation,
		Message: message,
		Field:   field,
	}
}

// ValidationWithDetails returns a validation error listing every failing
// field. Keys are JSON field names.
func ValidationWithDetails(message string, details map[string]string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Code:    CodeValidation,
		Message: message,
		Details: details,
	}
}

// RateLimited is returned when a caller exceeds its request budget.
func RateLimited(message string) *AppError {
	return New(ErrRateLimited, CodeRateLimited, message)
}

// HasCode reports whether any AppError in err's chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Err
	}
	return false
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Describe formats an AppError for logs.
func Describe(e *AppError) string {
	if e.Field != "" {
		return fmt.Sprintf("%s (%s): %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
