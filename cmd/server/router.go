package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/cohort-api/internal/api"
	apiMiddleware "github.com/phrazzld/cohort-api/internal/api/middleware"
	"github.com/phrazzld/cohort-api/internal/service/auth"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))
	r.Use(apiMiddleware.MetricsMiddleware(app.metrics))

	projectionHandler := api.NewProjectionHandler(app.projectionService, app.logger)
	basisHandler := api.NewBasisHandler(app.basisService, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		r.Post("/projections", projectionHandler.CreateProjection)
		r.Get("/projections/{id}", projectionHandler.GetProjection)

		r.Get("/bases", basisHandler.ListBases)
		r.Get("/bases/{basis}", basisHandler.GetBasis)

		// Maintainer endpoints
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireScope(auth.ScopeRatesWrite))
			r.Put("/bases/{basis}/tables/{transition}", basisHandler.PutTable)
		})
	})

	r.Get("/health", app.handleHealth)

	if app.config.Metrics.Enabled {
		r.Method(http.MethodGet, app.config.Metrics.Path, app.metrics.Handler())
	}

	return r
}

// handleHealth reports whether the database is reachable.
func (app *application) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := app.db.PingContext(ctx); err != nil {
		app.logger.Error("Health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("UNAVAILABLE"))
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		app.logger.Error("Failed to write health check response", "error", err)
	}
}
