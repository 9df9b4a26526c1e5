package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/cohort-api/internal/domain"
	"github.com/phrazzld/cohort-api/internal/domain/capital"
	"github.com/phrazzld/cohort-api/internal/domain/projection"
	"github.com/phrazzld/cohort-api/internal/domain/valuation"
	"github.com/phrazzld/cohort-api/internal/platform/logger"
	"github.com/phrazzld/cohort-api/internal/platform/metrics"
	"github.com/phrazzld/cohort-api/internal/store"
)

// ProjectionRequest describes one projection. Exactly one of BasisName and
// Tables selects the decrement basis; at most one of FlatRate,
// DiscountFactors and SpotRates selects the discount source, falling back to
// the configured default flat rate.
type ProjectionRequest struct {
	Policy domain.Policy

	BasisName string
	Tables    map[domain.Transition]domain.RateTable

	FlatRate        *float64
	DiscountFactors []float64
	SpotRates       []float64

	// Mode overrides the configured evaluation strategy when set.
	Mode projection.Mode

	// Capital requests the nested prudent-basis capital schedule.
	Capital bool
}

// ProjectionResult is a completed, persisted projection.
type ProjectionResult struct {
	Run        *domain.ProjectionRun
	CacheStats projection.CacheStats
	Duration   time.Duration
}

// ProjectionService runs and serves projections.
type ProjectionService interface {
	// Project builds the projection table for req, optionally computes the
	// capital schedule and stores the run.
	Project(ctx context.Context, req ProjectionRequest) (*ProjectionResult, error)

	// GetRun returns a stored projection run.
	GetRun(ctx context.Context, id uuid.UUID) (*domain.ProjectionRun, error)
}

// ProjectionServiceConfig holds request-independent projection settings.
type ProjectionServiceConfig struct {
	// DefaultDiscountRate is used when a request names no discount source.
	DefaultDiscountRate float64

	// MaxTerm rejects requests with longer terms. Zero disables the check.
	MaxTerm int
}

// ProjectionDependencies are the collaborators of the projection service.
// Calculator may be nil, in which case capital requests are rejected.
type ProjectionDependencies struct {
	DB         store.TxBeginner
	Rates      store.RateTableStore
	Runs       store.ProjectionRunStore
	Builder    *projection.Builder
	Calculator *capital.Calculator
	Metrics    metrics.Recorder
}

type projectionServiceImpl struct {
	deps   ProjectionDependencies
	cfg    ProjectionServiceConfig
	logger *slog.Logger
}

var _ ProjectionService = (*projectionServiceImpl)(nil)

// NewProjectionService creates a ProjectionService.
// It returns an error if any of the required dependencies are nil.
func NewProjectionService(
	deps ProjectionDependencies,
	cfg ProjectionServiceConfig,
	logger *slog.Logger,
) (ProjectionService, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if deps.Rates == nil {
		return nil, fmt.Errorf("rate table store cannot be nil")
	}
	if deps.Runs == nil {
		return nil, fmt.Errorf("projection run store cannot be nil")
	}
	if deps.Builder == nil {
		return nil, fmt.Errorf("projection builder cannot be nil")
	}
	if cfg.DefaultDiscountRate <= -1 {
		return nil, domain.NewInvalidConfigurationError("default_discount_rate", "must be greater than -1")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoopRecorder()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &projectionServiceImpl{
		deps:   deps,
		cfg:    cfg,
		logger: logger.With("component", "projection_service"),
	}, nil
}

// Project implements ProjectionService.Project.
func (s *projectionServiceImpl) Project(ctx context.Context, req ProjectionRequest) (*ProjectionResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	start := time.Now()

	builder, err := s.builderFor(req.Mode)
	if err != nil {
		s.deps.Metrics.RecordRun(string(req.Mode), metrics.StatusInvalid, req.Policy.Term, 0)
		return nil, err
	}
	requestedMode := string(builder.Params().Mode)

	if s.cfg.MaxTerm > 0 && req.Policy.Term > s.cfg.MaxTerm {
		s.deps.Metrics.RecordRun(requestedMode, metrics.StatusInvalid, req.Policy.Term, 0)
		return nil, domain.NewInvalidConfigurationError("term",
			fmt.Sprintf("must not exceed %d periods", s.cfg.MaxTerm))
	}

	basis, err := s.resolveBasis(ctx, req)
	if err != nil {
		s.deps.Metrics.RecordRun(requestedMode, statusFor(err), req.Policy.Term, 0)
		return nil, err
	}

	discount, err := s.resolveDiscount(req)
	if err != nil {
		s.deps.Metrics.RecordRun(requestedMode, metrics.StatusInvalid, req.Policy.Term, 0)
		return nil, err
	}

	table, err := builder.Build(req.Policy, basis, discount)
	if err != nil {
		s.deps.Metrics.RecordRun(requestedMode, statusFor(err), req.Policy.Term, 0)
		log.Warn("projection failed",
			"error", err,
			"term", req.Policy.Term,
			"basis", req.BasisName)
		return nil, err
	}

	var capitalRows []domain.CapitalRow
	if req.Capital {
		capitalRows, err = s.computeCapital(ctx, table, basis, discount)
		if err != nil {
			s.deps.Metrics.RecordRun(string(table.Mode()), statusFor(err), req.Policy.Term, 0)
			return nil, err
		}
	}

	run, err := domain.NewProjectionRun(
		req.BasisName,
		req.Policy,
		string(table.Mode()),
		table.Rows(),
		table.Summary(),
	)
	if err != nil {
		s.deps.Metrics.RecordRun(string(table.Mode()), metrics.StatusError, req.Policy.Term, 0)
		return nil, NewServiceError("projection", "project", err)
	}
	run.Capital = capitalRows

	err = store.RunInTransaction(ctx, s.deps.DB, func(ctx context.Context, tx *sql.Tx) error {
		return s.deps.Runs.WithTx(tx).Create(ctx, run)
	})
	if err != nil {
		s.deps.Metrics.RecordRun(string(table.Mode()), metrics.StatusError, req.Policy.Term, 0)
		log.Error("failed to store projection run",
			"error", err,
			"run_id", run.ID)
		return nil, NewServiceError("projection", "project", err)
	}

	elapsed := time.Since(start)
	stats := table.CacheStats()
	s.deps.Metrics.RecordRun(string(table.Mode()), metrics.StatusSuccess, req.Policy.Term, elapsed)
	s.deps.Metrics.RecordCache(stats.Hits, stats.Entries)

	log.Info("projection completed",
		"run_id", run.ID,
		"term", req.Policy.Term,
		"mode", run.Mode,
		"capital", req.Capital,
		"duration_ms", elapsed.Milliseconds())

	return &ProjectionResult{
		Run:        run,
		CacheStats: stats,
		Duration:   elapsed,
	}, nil
}

// GetRun implements ProjectionService.GetRun.
func (s *projectionServiceImpl) GetRun(ctx context.Context, id uuid.UUID) (*domain.ProjectionRun, error) {
	if id == uuid.Nil {
		return nil, domain.ErrInvalidID
	}

	run, err := s.deps.Runs.GetByID(ctx, id)
	if err != nil {
		return nil, NewServiceError("projection", "get_run", err)
	}
	return run, nil
}

// builderFor returns the configured builder, or a copy with the requested
// evaluation mode.
func (s *projectionServiceImpl) builderFor(mode projection.Mode) (*projection.Builder, error) {
	if mode == "" || mode == s.deps.Builder.Params().Mode {
		return s.deps.Builder, nil
	}
	if !mode.IsValid() {
		return nil, domain.NewInvalidConfigurationError("mode",
			fmt.Sprintf("unknown evaluation mode %q", mode))
	}

	params := *s.deps.Builder.Params()
	params.Mode = mode
	return projection.NewBuilder(&params, s.logger), nil
}

func (s *projectionServiceImpl) resolveBasis(ctx context.Context, req ProjectionRequest) (domain.Basis, error) {
	switch {
	case req.BasisName != "" && len(req.Tables) > 0:
		return nil, domain.NewInvalidConfigurationError("basis", "specify either a basis name or inline tables, not both")
	case len(req.Tables) > 0:
		basis := make(domain.Basis, len(req.Tables))
		for tr, table := range req.Tables {
			basis[tr] = table.Clone()
		}
		return basis, nil
	case req.BasisName != "":
		tables, err := s.deps.Rates.GetBasis(ctx, req.BasisName)
		if err != nil {
			return nil, NewServiceError("projection", "resolve_basis", err)
		}
		basis := make(domain.Basis, len(tables))
		for tr, table := range tables {
			basis[tr] = table
		}
		return basis, nil
	default:
		return nil, domain.NewInvalidConfigurationError("basis", "a basis name or inline tables are required")
	}
}

func (s *projectionServiceImpl) resolveDiscount(req ProjectionRequest) (valuation.DiscountSource, error) {
	given := 0
	if req.FlatRate != nil {
		given++
	}
	if len(req.DiscountFactors) > 0 {
		given++
	}
	if len(req.SpotRates) > 0 {
		given++
	}
	if given > 1 {
		return nil, domain.NewInvalidConfigurationError("discount",
			"specify at most one of flat_rate, discount_factors and spot_rates")
	}

	var (
		source valuation.DiscountSource
		err    error
	)
	switch {
	case req.FlatRate != nil:
		source, err = valuation.NewFlatRate(*req.FlatRate)
	case len(req.DiscountFactors) > 0:
		source, err = valuation.NewFactorCurve(req.DiscountFactors)
	case len(req.SpotRates) > 0:
		source, err = valuation.NewSpotCurve(req.SpotRates)
	default:
		source, err = valuation.NewFlatRate(s.cfg.DefaultDiscountRate)
	}
	if err != nil {
		return nil, err
	}
	return source, nil
}

func (s *projectionServiceImpl) computeCapital(
	ctx context.Context,
	table *projection.Table,
	basis domain.Basis,
	discount valuation.DiscountSource,
) ([]domain.CapitalRow, error) {
	if s.deps.Calculator == nil {
		return nil, ErrCapitalUnavailable
	}

	start := time.Now()
	rows, err := s.deps.Calculator.Compute(ctx, table, basis, discount)
	if err != nil {
		return nil, err
	}
	s.deps.Metrics.RecordCapital(table.Term(), time.Since(start))
	return rows, nil
}

// statusFor classifies a failed run for metrics.
func statusFor(err error) string {
	if isClientError(err) {
		return metrics.StatusInvalid
	}
	return metrics.StatusError
}

// isClientError reports whether err was caused by the request rather than
// the service.
func isClientError(err error) bool {
	return errors.Is(err, domain.ErrInvalidConfiguration) ||
		errors.Is(err, domain.ErrInvalidDomain) ||
		errors.Is(err, domain.ErrMissingRate) ||
		errors.Is(err, domain.ErrUnknownTransition) ||
		errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, ErrBasisNotFound)
}
