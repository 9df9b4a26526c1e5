package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/phrazzld/cohort-api/internal/domain"
	"github.com/phrazzld/cohort-api/internal/platform/logger"
	"github.com/phrazzld/cohort-api/internal/ratefile"
	"github.com/phrazzld/cohort-api/internal/store"
)

// BasisService maintains the named decrement bases in the rate store.
type BasisService interface {
	// SaveTable replaces the table for one transition of a basis.
	SaveTable(ctx context.Context, basis string, transition domain.Transition, table domain.RateTable) error

	// GetBasis returns every table of a basis.
	GetBasis(ctx context.Context, basis string) (map[domain.Transition]domain.RateTable, error)

	// ListBases returns the names of all stored bases.
	ListBases(ctx context.Context) ([]string, error)

	// ImportFile stores every table of a parsed basis file in one
	// transaction and returns the number of tables written.
	ImportFile(ctx context.Context, file *ratefile.File) (int, error)
}

type basisServiceImpl struct {
	db     store.TxBeginner
	rates  store.RateTableStore
	logger *slog.Logger
}

var _ BasisService = (*basisServiceImpl)(nil)

// NewBasisService creates a BasisService.
// It returns an error if any of the required dependencies are nil.
func NewBasisService(db store.TxBeginner, rates store.RateTableStore, logger *slog.Logger) (BasisService, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if rates == nil {
		return nil, fmt.Errorf("rate table store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &basisServiceImpl{
		db:     db,
		rates:  rates,
		logger: logger.With("component", "basis_service"),
	}, nil
}

// SaveTable implements BasisService.SaveTable.
func (s *basisServiceImpl) SaveTable(
	ctx context.Context,
	basis string,
	transition domain.Transition,
	table domain.RateTable,
) error {
	if err := validateTable(basis, transition, table); err != nil {
		return err
	}

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.rates.WithTx(tx).UpsertTable(ctx, basis, transition, table)
	})
	if err != nil {
		return NewServiceError("basis", "save_table", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("rate table saved",
		"basis", basis,
		"transition", transition,
		"steps", len(table))
	return nil
}

// GetBasis implements BasisService.GetBasis.
func (s *basisServiceImpl) GetBasis(ctx context.Context, basis string) (map[domain.Transition]domain.RateTable, error) {
	if basis == "" {
		return nil, domain.NewValidationError("basis", "cannot be empty", domain.ErrValidation)
	}

	tables, err := s.rates.GetBasis(ctx, basis)
	if err != nil {
		return nil, NewServiceError("basis", "get_basis", err)
	}
	return tables, nil
}

// ListBases implements BasisService.ListBases.
func (s *basisServiceImpl) ListBases(ctx context.Context) ([]string, error) {
	bases, err := s.rates.ListBases(ctx)
	if err != nil {
		return nil, NewServiceError("basis", "list_bases", err)
	}
	return bases, nil
}

// ImportFile implements BasisService.ImportFile.
func (s *basisServiceImpl) ImportFile(ctx context.Context, file *ratefile.File) (int, error) {
	if file == nil {
		return 0, domain.NewValidationError("file", "cannot be nil", domain.ErrValidation)
	}
	if err := file.Validate(); err != nil {
		return 0, domain.NewValidationError("file", err.Error(), domain.ErrValidation)
	}

	written := 0
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txRates := s.rates.WithTx(tx)
		for _, name := range file.Names() {
			tables, err := file.Tables(name)
			if err != nil {
				return err
			}
			for _, tr := range sortedTransitions(tables) {
				if err := txRates.UpsertTable(ctx, name, tr, tables[tr]); err != nil {
					return fmt.Errorf("basis %q table %q: %w", name, tr, err)
				}
				written++
			}
		}
		return nil
	})
	if err != nil {
		return 0, NewServiceError("basis", "import_file", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("rate file imported",
		"bases", len(file.Bases),
		"tables", written)
	return written, nil
}

// validateTable checks a table before it reaches the store.
func validateTable(basis string, transition domain.Transition, table domain.RateTable) error {
	if basis == "" {
		return domain.NewValidationError("basis", "cannot be empty", domain.ErrValidation)
	}
	if transition == "" {
		return domain.NewValidationError("transition", "cannot be empty", domain.ErrValidation)
	}
	if transition == domain.TransitionMaturity {
		return domain.NewValidationError("transition", "maturity is derived and has no table", domain.ErrValidation)
	}
	if len(table) == 0 {
		return domain.NewValidationError("rates", "cannot be empty", domain.ErrValidation)
	}
	for _, t := range table.Steps() {
		q := table[t]
		if t < 0 {
			return domain.NewValidationError("rates", fmt.Sprintf("time step %d is negative", t), domain.ErrValidation)
		}
		if math.IsNaN(q) || q < 0 || q > 1 {
			return domain.NewValidationError("rates",
				fmt.Sprintf("rate %v at t=%d is outside [0, 1]", q, t), domain.ErrValidation)
		}
	}
	return nil
}

func sortedTransitions(tables map[domain.Transition]domain.RateTable) []domain.Transition {
	out := make([]domain.Transition, 0, len(tables))
	for tr := range tables {
		out = append(out, tr)
	}
	slices.Sort(out)
	return out
}
