//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/cohort-api/internal/domain"
	"github.com/phrazzld/cohort-api/internal/store"
)

// openTestDB connects to DATABASE_URL and applies the embedded migrations.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(context.Background(), db, "up", nil))
	return db
}

// withTx runs fn in a transaction that is always rolled back.
func withTx(t *testing.T, db *sql.DB, fn func(tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	fn(tx)
}

func TestIntegration_RateTableRoundTrip(t *testing.T) {
	db := openTestDB(t)

	withTx(t, db, func(tx *sql.Tx) {
		ctx := context.Background()
		s := NewPostgresRateTableStore(tx, nil)
		basis := "it-" + uuid.NewString()

		require.NoError(t, s.UpsertTable(ctx, basis, domain.TransitionDeath, domain.RateTable{0: 0.001, 1: 0.002}))
		require.NoError(t, s.UpsertTable(ctx, basis, domain.TransitionLapse, domain.RateTable{0: 0.05, 1: 0.07}))
		require.NoError(t, s.UpsertTable(ctx, basis, domain.TransitionDeath, domain.RateTable{0: 0.003}))

		tables, err := s.GetBasis(ctx, basis)
		require.NoError(t, err)
		assert.Equal(t, domain.RateTable{0: 0.003}, tables[domain.TransitionDeath])
		assert.Equal(t, domain.RateTable{0: 0.05, 1: 0.07}, tables[domain.TransitionLapse])

		bases, err := s.ListBases(ctx)
		require.NoError(t, err)
		assert.Contains(t, bases, basis)
	})
}

func TestIntegration_RateCheckConstraint(t *testing.T) {
	db := openTestDB(t)

	withTx(t, db, func(tx *sql.Tx) {
		_, err := tx.ExecContext(context.Background(),
			`INSERT INTO rate_table_entries (basis, transition, t, rate) VALUES ('x', 'death', 0, 1.5)`)
		require.Error(t, err)
		assert.True(t, IsCheckConstraintViolation(err))
		assert.ErrorIs(t, MapError(err), store.ErrInvalidEntity)
	})
}

func TestIntegration_ProjectionRunRoundTrip(t *testing.T) {
	db := openTestDB(t)

	withTx(t, db, func(tx *sql.Tx) {
		ctx := context.Background()
		s := NewPostgresProjectionRunStore(tx, nil)

		run := sampleRun(t)
		run.Capital = []domain.CapitalRow{{T: 0, Requirement: 3, Change: 3}, {T: 1, Requirement: 1, Change: -2}, {T: 2, Change: -1}}
		require.NoError(t, s.Create(ctx, run))

		got, err := s.GetByID(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.Rows, got.Rows)
		assert.Equal(t, run.Summary, got.Summary)
		assert.Equal(t, run.Capital, got.Capital)
		assert.WithinDuration(t, run.CreatedAt, got.CreatedAt, time.Millisecond)

		_, err = s.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrRunNotFound)

		// A unique violation aborts the transaction, so this check runs last.
		assert.ErrorIs(t, s.Create(ctx, run), store.ErrRunExists)
	})
}
