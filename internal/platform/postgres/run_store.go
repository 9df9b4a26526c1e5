package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/cohort-api/internal/domain"
	"github.com/phrazzld/cohort-api/internal/platform/logger"
	"github.com/phrazzld/cohort-api/internal/store"
)

// PostgresProjectionRunStore implements store.ProjectionRunStore. The
// policy, rows, summary and capital schedule are stored as JSONB documents.
type PostgresProjectionRunStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresProjectionRunStore creates a run store over a connection or
// transaction managed by the caller.
func NewPostgresProjectionRunStore(db store.DBTX, logger *slog.Logger) *PostgresProjectionRunStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresProjectionRunStore{
		db:     db,
		logger: logger.With(slog.String("component", "projection_run_store")),
	}
}

var _ store.ProjectionRunStore = (*PostgresProjectionRunStore)(nil)

// Create implements store.ProjectionRunStore.Create.
func (s *PostgresProjectionRunStore) Create(ctx context.Context, run *domain.ProjectionRun) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := run.Validate(); err != nil {
		log.Warn("projection run validation failed during create",
			slog.String("error", err.Error()),
			slog.String("run_id", run.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	policy, err := json.Marshal(run.Policy)
	if err != nil {
		return store.NewStoreError("projection_run", "create", "failed to encode policy", err)
	}
	rows, err := json.Marshal(run.Rows)
	if err != nil {
		return store.NewStoreError("projection_run", "create", "failed to encode rows", err)
	}
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return store.NewStoreError("projection_run", "create", "failed to encode summary", err)
	}
	var capital []byte
	if len(run.Capital) > 0 {
		if capital, err = json.Marshal(run.Capital); err != nil {
			return store.NewStoreError("projection_run", "create", "failed to encode capital", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projection_runs (id, basis_name, mode, term, policy, rows, summary, capital, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		run.ID,
		run.BasisName,
		run.Mode,
		run.Policy.Term,
		policy,
		rows,
		summary,
		capital,
		run.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", store.ErrRunExists, run.ID)
		}
		log.Error("failed to create projection run",
			slog.String("error", err.Error()),
			slog.String("run_id", run.ID.String()))
		return store.NewStoreError("projection_run", "create", "failed to insert run", MapError(err))
	}

	log.Info("projection run stored",
		slog.String("run_id", run.ID.String()),
		slog.Int("term", run.Policy.Term),
		slog.String("mode", run.Mode))
	return nil
}

// GetByID implements store.ProjectionRunStore.GetByID.
func (s *PostgresProjectionRunStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ProjectionRun, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var (
		run                   domain.ProjectionRun
		policy, rows, summary []byte
		capital               []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, basis_name, mode, policy, rows, summary, capital, created_at
		FROM projection_runs
		WHERE id = $1
	`, id).Scan(
		&run.ID,
		&run.BasisName,
		&run.Mode,
		&policy,
		&rows,
		&summary,
		&capital,
		&run.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("projection run not found", slog.String("run_id", id.String()))
			return nil, store.ErrRunNotFound
		}
		log.Error("failed to get projection run",
			slog.String("error", err.Error()),
			slog.String("run_id", id.String()))
		return nil, store.NewStoreError("projection_run", "get", "failed to query run", MapError(err))
	}

	if err := json.Unmarshal(policy, &run.Policy); err != nil {
		return nil, store.NewStoreError("projection_run", "get", "failed to decode policy", err)
	}
	if err := json.Unmarshal(rows, &run.Rows); err != nil {
		return nil, store.NewStoreError("projection_run", "get", "failed to decode rows", err)
	}
	if err := json.Unmarshal(summary, &run.Summary); err != nil {
		return nil, store.NewStoreError("projection_run", "get", "failed to decode summary", err)
	}
	if len(capital) > 0 {
		if err := json.Unmarshal(capital, &run.Capital); err != nil {
			return nil, store.NewStoreError("projection_run", "get", "failed to decode capital", err)
		}
	}

	return &run, nil
}

// WithTx implements store.ProjectionRunStore.WithTx.
func (s *PostgresProjectionRunStore) WithTx(tx *sql.Tx) store.ProjectionRunStore {
	return &PostgresProjectionRunStore{db: tx, logger: s.logger}
}
