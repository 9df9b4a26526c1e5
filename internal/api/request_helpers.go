package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/phrazzld/cohort-api/internal/domain"
)

// getPathUUID extracts a UUID from the URL path parameters.
// It returns a ValidationError if the parameter is missing or malformed.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, domain.NewValidationError(paramName, "is required", domain.ErrValidation)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(paramName, "has invalid format", domain.ErrInvalidID)
	}

	return id, nil
}

// getPathName extracts a basis or transition name from the URL path.
// Names are trimmed and must be non-empty.
func getPathName(r *http.Request, paramName string) (string, error) {
	name := strings.TrimSpace(chi.URLParam(r, paramName))
	if name == "" {
		return "", domain.NewValidationError(paramName, "is required", domain.ErrValidation)
	}
	if len(name) > maxNameLength {
		return "", domain.NewValidationError(paramName, "is too long", domain.ErrValidation)
	}
	return name, nil
}
