// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound = errors.New("entity not found")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "practice", "progress", "profile"
	Op      string // Operation that failed, e.g., "AddEntry"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Practice domain errors
var (
	ErrSessionNotFound  = NewDomainError("practice", "FindSession", ErrNotFound, "session not found")
	ErrEntryNotFound    = NewDomainError("practice", "FindEntry", ErrNotFound, "entry not found")
	ErrEmptyTitle       = NewDomainError("practice", "CreateSession", ErrEmptyValue, "session title is required")
	ErrUnknownCategory  = NewDomainError("practice", "Validate", ErrInvalidInput, "unknown category")
	ErrEmptyResponse    = NewDomainError("practice", "SubmitResponse", ErrEmptyValue, "response text is required")
	ErrInvalidInputMode = NewDomainError("practice", "Validate", ErrInvalidInput, "input mode must be text or voice")
)

// Gamification domain errors
var (
	ErrInvalidCatalog  = NewDomainError("gamification", "LoadCatalog", ErrValidation, "invalid badge catalog")
	ErrInvalidProgress = NewDomainError("gamification", "Decode", ErrInvalidFormat, "invalid progress record")
)

// Profile domain errors
var (
	ErrProfileNotFound    = NewDomainError("profile", "Find", ErrNotFound, "no profile signed in")
	ErrInvalidEmail       = NewDomainError("profile", "Validate", ErrInvalidInput, "invalid email")
	ErrEmptyName          = NewDomainError("profile", "Validate", ErrEmptyValue, "name is required")
	ErrWeakPassword       = NewDomainError("profile", "Validate", ErrValueOutOfRange, "password must be at least 6 characters")
	ErrInvalidCredentials = NewDomainError("profile", "SignIn", ErrUnauthorized, "invalid email or password")
)

// External service errors
var (
	ErrFeedbackUnavailable     = NewDomainError("feedback", "Request", ErrServiceUnavailable, "feedback service is unavailable")
	ErrFeedbackRateLimited     = NewDomainError("feedback", "Request", ErrRateLimited, "feedback service rate limit exceeded")
	ErrFeedbackInvalidResponse = NewDomainError("feedback", "Parse", ErrInvalidFormat, "invalid response from feedback service")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsUnauthorized checks if the error is an authorization failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}
