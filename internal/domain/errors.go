package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrMissingRate is the sentinel matched by every MissingRateError.
	ErrMissingRate = errors.New("missing rate")

	// ErrInvalidDomain is the sentinel matched by every InvalidDomainError.
	ErrInvalidDomain = errors.New("value outside valid domain")

	// ErrInvalidConfiguration is the sentinel matched by every InvalidConfigurationError.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnknownTransition is returned when a transition is not part of the basis.
	ErrUnknownTransition = errors.New("unknown transition")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")
)

// MissingRateError reports a rate table that has no entry for a time step
// the projection needs. It is never defaulted to zero.
type MissingRateError struct {
	Transition Transition
	T          int
}

// Error implements the error interface.
func (e *MissingRateError) Error() string {
	return fmt.Sprintf("missing %s rate for t=%d", e.Transition, e.T)
}

// Is lets errors.Is match ErrMissingRate.
func (e *MissingRateError) Is(target error) bool {
	return target == ErrMissingRate
}

// InvalidDomainError reports a probability or occupancy outside its valid range.
type InvalidDomainError struct {
	Quantity string
	T        int
	Value    float64
	Reason   string
}

// Error implements the error interface.
func (e *InvalidDomainError) Error() string {
	return fmt.Sprintf("invalid %s at t=%d (%g): %s", e.Quantity, e.T, e.Value, e.Reason)
}

// Is lets errors.Is match ErrInvalidDomain.
func (e *InvalidDomainError) Is(target error) bool {
	return target == ErrInvalidDomain
}

// InvalidConfigurationError reports policy or discount configuration that
// cannot be projected. It is raised before any projection work starts.
type InvalidConfigurationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// Is lets errors.Is match ErrInvalidConfiguration.
func (e *InvalidConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// NewInvalidConfigurationError creates an InvalidConfigurationError.
func NewInvalidConfigurationError(field, reason string) *InvalidConfigurationError {
	return &InvalidConfigurationError{Field: field, Reason: reason}
}

// ValidationError describes a field-level validation failure on a request or
// entity. It wraps a sentinel so callers can use errors.Is.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap returns the wrapped sentinel.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}
