package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/cohort-api/internal/domain"
)

// RateTableStore persists decrement rate tables grouped into named bases.
type RateTableStore interface {
	// UpsertTable replaces every entry of one transition's table within a
	// basis. Entries not present in table are removed.
	UpsertTable(ctx context.Context, basis string, tr domain.Transition, table domain.RateTable) error

	// GetBasis loads every table stored under basis.
	// Returns ErrBasisNotFound if the basis has no tables.
	GetBasis(ctx context.Context, basis string) (map[domain.Transition]domain.RateTable, error)

	// ListBases returns the stored basis names in ascending order.
	ListBases(ctx context.Context) ([]string, error)

	// WithTx returns a new RateTableStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) RateTableStore
}
