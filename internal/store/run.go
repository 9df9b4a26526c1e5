package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/phrazzld/cohort-api/internal/domain"
)

// ProjectionRunStore persists completed projection runs.
type ProjectionRunStore interface {
	// Create saves a validated run.
	// Returns ErrRunExists if a run with the same ID is already stored.
	Create(ctx context.Context, run *domain.ProjectionRun) error

	// GetByID retrieves a run by its unique ID.
	// Returns ErrRunNotFound if the run does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ProjectionRun, error)

	// WithTx returns a new ProjectionRunStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ProjectionRunStore
}
