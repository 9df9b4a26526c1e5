package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/phrazzld/cohort-api/internal/api/shared"
	"github.com/phrazzld/cohort-api/internal/domain"
	"github.com/phrazzld/cohort-api/internal/ratefile"
	"github.com/phrazzld/cohort-api/internal/service"
	"github.com/phrazzld/cohort-api/internal/service/auth"
	"github.com/phrazzld/cohort-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, auth.ErrInsufficientScope):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, service.ErrBasisNotFound),
		errors.Is(err, service.ErrRunNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidConfiguration),
		errors.Is(err, domain.ErrInvalidDomain),
		errors.Is(err, domain.ErrMissingRate),
		errors.Is(err, domain.ErrUnknownTransition),
		errors.Is(err, ratefile.ErrInvalidFile),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrCapitalUnavailable):
		return http.StatusNotImplemented

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. Projection errors are built from request values
// only, so their text is returned as is.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var (
		missingRate   *domain.MissingRateError
		invalidDomain *domain.InvalidDomainError
		invalidConfig *domain.InvalidConfigurationError
		validation    *domain.ValidationError
	)

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"
	case errors.Is(err, auth.ErrInsufficientScope):
		return "Insufficient scope"

	case errors.As(err, &missingRate):
		return fmt.Sprintf("Missing %s rate for t=%d", missingRate.Transition, missingRate.T)
	case errors.As(err, &invalidDomain):
		return fmt.Sprintf("Invalid %s at t=%d: %s", invalidDomain.Quantity, invalidDomain.T, invalidDomain.Reason)
	case errors.As(err, &invalidConfig):
		return fmt.Sprintf("Invalid %s: %s", invalidConfig.Field, invalidConfig.Reason)
	case errors.As(err, &validation):
		return fmt.Sprintf("Invalid %s: %s", validation.Field, validation.Message)

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"
	case errors.Is(err, service.ErrBasisNotFound):
		return "Basis not found"
	case errors.Is(err, service.ErrRunNotFound):
		return "Projection run not found"
	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"
	case errors.Is(err, store.ErrDuplicate):
		return "Resource already exists"
	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"
	case errors.Is(err, ratefile.ErrInvalidFile):
		return "Invalid rate file"
	case errors.Is(err, service.ErrCapitalUnavailable):
		return "Capital calculation is not available"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes struct names and other internals from
// validator errors and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Sprintf("Invalid %s: %s", jsonFieldName(fe.Field()), getValidationTagMessage(fe.Tag()))
	}

	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		return fmt.Sprintf("Invalid %s: %s", validation.Field, validation.Message)
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "gt", "gte":
		return "too small"
	case "lt", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

// jsonFieldName converts a Go field name such as SumAssured to sum_assured.
func jsonFieldName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// HandleAPIError writes the error response for err. fallbackMsg replaces the
// generic message for server errors when it is not empty.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallbackMsg string) {
	status := MapErrorToStatusCode(err)

	var fieldErrs validator.ValidationErrors
	message := GetSafeErrorMessage(err)
	if errors.As(err, &fieldErrs) {
		status = http.StatusBadRequest
		message = SanitizeValidationError(err)
	}
	if status == http.StatusInternalServerError && fallbackMsg != "" {
		message = fallbackMsg
	}

	var opts []shared.ResponseOption
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}
