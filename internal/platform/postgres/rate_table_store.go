package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/cohort-api/internal/domain"
	"github.com/phrazzld/cohort-api/internal/platform/logger"
	"github.com/phrazzld/cohort-api/internal/store"
)

// PostgresRateTableStore implements store.RateTableStore using one row per
// (basis, transition, t) entry.
type PostgresRateTableStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresRateTableStore creates a rate table store over a connection or
// transaction managed by the caller. If logger is nil, a default logger
// will be used.
func NewPostgresRateTableStore(db store.DBTX, logger *slog.Logger) *PostgresRateTableStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresRateTableStore{
		db:     db,
		logger: logger.With(slog.String("component", "rate_table_store")),
	}
}

var _ store.RateTableStore = (*PostgresRateTableStore)(nil)

// UpsertTable implements store.RateTableStore.UpsertTable.
// It deletes the existing entries for the transition and inserts the new
// ones. Callers should run it inside a transaction so that readers never
// observe a partially replaced table.
func (s *PostgresRateTableStore) UpsertTable(
	ctx context.Context,
	basis string,
	tr domain.Transition,
	table domain.RateTable,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("basis", basis),
		slog.String("transition", string(tr)))

	if basis == "" {
		return fmt.Errorf("%w: basis name cannot be empty", store.ErrInvalidEntity)
	}
	if tr == "" || tr == domain.TransitionMaturity {
		return fmt.Errorf("%w: transition %q cannot have a table", store.ErrInvalidEntity, tr)
	}
	if len(table) == 0 {
		return fmt.Errorf("%w: rate table cannot be empty", store.ErrInvalidEntity)
	}

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM rate_table_entries WHERE basis = $1 AND transition = $2`,
		basis, string(tr))
	if err != nil {
		log.Error("failed to clear rate table", slog.String("error", err.Error()))
		return store.NewStoreError("rate_table", "upsert", "failed to clear existing entries", MapError(err))
	}

	stmt, err := s.db.PrepareContext(ctx, `
		INSERT INTO rate_table_entries (basis, transition, t, rate, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
	`)
	if err != nil {
		log.Error("failed to prepare rate insert", slog.String("error", err.Error()))
		return store.NewStoreError("rate_table", "upsert", "failed to prepare insert", MapError(err))
	}
	defer func() { _ = stmt.Close() }()

	for _, t := range table.Steps() {
		if _, err := stmt.ExecContext(ctx, basis, string(tr), t, table[t]); err != nil {
			log.Error("failed to insert rate",
				slog.Int("t", t),
				slog.String("error", err.Error()))
			return store.NewStoreError("rate_table", "upsert",
				fmt.Sprintf("failed to insert entry t=%d", t), MapError(err))
		}
	}

	log.Info("rate table stored", slog.Int("entries", len(table)))
	return nil
}

// GetBasis implements store.RateTableStore.GetBasis.
func (s *PostgresRateTableStore) GetBasis(
	ctx context.Context,
	basis string,
) (map[domain.Transition]domain.RateTable, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT transition, t, rate
		FROM rate_table_entries
		WHERE basis = $1
		ORDER BY transition, t
	`, basis)
	if err != nil {
		log.Error("failed to query basis",
			slog.String("basis", basis),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("rate_table", "get", "failed to query basis", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	tables := make(map[domain.Transition]domain.RateTable)
	for rows.Next() {
		var (
			tr   string
			t    int
			rate float64
		)
		if err := rows.Scan(&tr, &t, &rate); err != nil {
			return nil, store.NewStoreError("rate_table", "get", "failed to scan entry", err)
		}
		table, ok := tables[domain.Transition(tr)]
		if !ok {
			table = make(domain.RateTable)
			tables[domain.Transition(tr)] = table
		}
		table[t] = rate
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("rate_table", "get", "failed to iterate entries", MapError(err))
	}

	if len(tables) == 0 {
		log.Debug("basis not found", slog.String("basis", basis))
		return nil, fmt.Errorf("%w: %s", store.ErrBasisNotFound, basis)
	}

	return tables, nil
}

// ListBases implements store.RateTableStore.ListBases.
func (s *PostgresRateTableStore) ListBases(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT basis FROM rate_table_entries ORDER BY basis`)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list bases",
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("rate_table", "list", "failed to query bases", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	bases := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, store.NewStoreError("rate_table", "list", "failed to scan basis", err)
		}
		bases = append(bases, name)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("rate_table", "list", "failed to iterate bases", MapError(err))
	}
	return bases, nil
}

// WithTx implements store.RateTableStore.WithTx.
func (s *PostgresRateTableStore) WithTx(tx *sql.Tx) store.RateTableStore {
	return &PostgresRateTableStore{db: tx, logger: s.logger}
}
