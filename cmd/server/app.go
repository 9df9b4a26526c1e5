package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/phrazzld/cohort-api/internal/config"
	"github.com/phrazzld/cohort-api/internal/domain/capital"
	"github.com/phrazzld/cohort-api/internal/domain/projection"
	"github.com/phrazzld/cohort-api/internal/platform/metrics"
	"github.com/phrazzld/cohort-api/internal/platform/postgres"
	"github.com/phrazzld/cohort-api/internal/ratefile"
	"github.com/phrazzld/cohort-api/internal/service"
	"github.com/phrazzld/cohort-api/internal/service/auth"
	"github.com/phrazzld/cohort-api/internal/store"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config

	logger  *slog.Logger
	db      *sql.DB
	metrics *metrics.Collector

	rateStore store.RateTableStore
	runStore  store.ProjectionRunStore

	jwtService        auth.JWTService
	projectionService service.ProjectionService
	basisService      service.BasisService
}

// newApplication wires stores, the projection engine and services around an
// established database connection. A nil registry gets a fresh one.
func newApplication(
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
	registry *prometheus.Registry,
) (*application, error) {
	app := &application{
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: metrics.NewCollector(registry),
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.rateStore = postgres.NewPostgresRateTableStore(db, logger)
	app.runStore = postgres.NewPostgresProjectionRunStore(db, logger)

	builder := projection.NewBuilder(projection.NewParams(projection.ParamsConfig{
		IterativeThreshold:          cfg.Projection.IterativeThreshold,
		OccupancyTolerance:          cfg.Projection.OccupancyTolerance,
		RenewalExpenseFromInception: cfg.Projection.RenewalExpenseFromInception,
	}), logger)

	capitalCfg := capital.NewDefaultConfig()
	capitalCfg.Workers = cfg.Projection.CapitalWorkers
	capitalCfg.DeathMargin = cfg.Projection.CapitalDeathMargin
	capitalCfg.LapseMargin = cfg.Projection.CapitalLapseMargin
	capitalCfg.DiscountNested = cfg.Projection.CapitalDiscountNested
	calculator, err := capital.NewCalculator(capitalCfg, builder, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create capital calculator: %w", err)
	}

	app.projectionService, err = service.NewProjectionService(
		service.ProjectionDependencies{
			DB:         db,
			Rates:      app.rateStore,
			Runs:       app.runStore,
			Builder:    builder,
			Calculator: calculator,
			Metrics:    app.metrics,
		},
		service.ProjectionServiceConfig{
			DefaultDiscountRate: cfg.Projection.DefaultDiscountRate,
			MaxTerm:             cfg.Projection.MaxTerm,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create projection service: %w", err)
	}

	app.basisService, err = service.NewBasisService(db, app.rateStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create basis service: %w", err)
	}

	return app, nil
}

// importRates loads a YAML basis file and stores all of its tables.
func (app *application) importRates(ctx context.Context, path string) (int, error) {
	file, err := ratefile.Load(path)
	if err != nil {
		return 0, err
	}

	n, err := app.basisService.ImportFile(ctx, file)
	if err != nil {
		return 0, fmt.Errorf("failed to import %s: %w", path, err)
	}

	app.logger.Info("Rate tables imported",
		"path", path,
		"bases", len(file.Bases),
		"tables", n)
	return n, nil
}
