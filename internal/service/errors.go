package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/cohort-api/internal/store"
)

// Common service errors - sentinel errors used across service implementations.
// The API layer maps them to HTTP status codes.
var (
	// ErrBasisNotFound indicates a named basis has no tables in the rate store.
	// API layer should map this to HTTP 404 Not Found.
	ErrBasisNotFound = errors.New("basis not found")

	// ErrRunNotFound indicates a projection run ID is unknown.
	// API layer should map this to HTTP 404 Not Found.
	ErrRunNotFound = errors.New("projection run not found")

	// ErrCapitalUnavailable indicates a capital calculation was requested
	// from a service constructed without a calculator.
	ErrCapitalUnavailable = errors.New("capital calculation is not configured")
)

// ServiceError wraps an unexpected failure with the service and operation
// it occurred in.
type ServiceError struct {
	Service string
	Op      string
	Err     error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s service %s operation failed: %v", e.Service, e.Op, e.Err)
	}
	return fmt.Sprintf("%s service %s operation failed", e.Service, e.Op)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError wraps err for the given service and operation. Store
// not-found errors are translated to the service sentinels and returned
// unwrapped. A nil err returns nil.
func NewServiceError(service, op string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrBasisNotFound), errors.Is(err, store.ErrBasisNotFound):
		return ErrBasisNotFound
	case errors.Is(err, ErrRunNotFound), errors.Is(err, store.ErrRunNotFound):
		return ErrRunNotFound
	}

	return &ServiceError{
		Service: service,
		Op:      op,
		Err:     err,
	}
}
