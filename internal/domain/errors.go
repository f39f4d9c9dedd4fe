package domain

import (
	"errors"
	"fmt"
)

// Sentinels returned by Unwrap on the typed errors below.
var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrConfiguration       = errors.New("invalid configuration")
)

// Error codes exposed to callers of the service layer.
const (
	CodeInvalidInput         = "INVALID_INPUT"
	CodeNotFound             = "NOT_FOUND"
	CodeConflict             = "CONFLICT"
	CodeInvalidConfiguration = "INVALID_CONFIGURATION"
	CodeInternal             = "INTERNAL"
)

// ValidationError is a user-correctable rejection.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an unknown entry, version or partner row.
type NotFoundError struct {
	Kind     string // "entry", "version", "metrics", "object"
	Identity string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Identity)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError is returned once optimistic retries are exhausted.
type ConflictError struct {
	Key      string
	Attempts int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("concurrent modification of %s (gave up after %d attempts)", e.Key, e.Attempts)
}

func (e *ConflictError) Unwrap() error { return ErrConcurrencyConflict }

// ConfigurationError is fatal and not recoverable by retrying.
type ConfigurationError struct {
	Source string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Source == "" {
		return "configuration: " + e.Reason
	}
	return fmt.Sprintf("configuration %s: %s", e.Source, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// Code maps an error to its stable code.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return CodeInvalidInput
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrConcurrencyConflict):
		return CodeConflict
	case errors.Is(err, ErrConfiguration):
		return CodeInvalidConfiguration
	default:
		return CodeInternal
	}
}
