//go:build test_without_external_deps

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/cohort-api/internal/domain"
	"github.com/phrazzld/cohort-api/internal/domain/projection"
	"github.com/phrazzld/cohort-api/internal/mocks"
	"github.com/phrazzld/cohort-api/internal/service"
	"github.com/phrazzld/cohort-api/internal/store"
)

func sampleRun() *domain.ProjectionRun {
	return &domain.ProjectionRun{
		ID:     uuid.New(),
		Policy: domain.Policy{Premium: 100, SumAssured: 25000, Term: 2},
		Mode:   string(projection.ModeRecursive),
		Rows: []domain.ProjectionRow{
			{T: 0, InForce: 1, Deaths: 0.001, Lapses: 0.05, Claims: 25, Premiums: 100, NetCashflow: 75},
			{T: 1, InForce: 0.949, Deaths: 0.001898, Lapses: 0.06643, Maturities: 0.880672},
			{T: 2},
		},
		Summary:   domain.ProjectionSummary{PVPremiums: 189.2, Margin: 0.4},
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCreateProjection(t *testing.T) {
	t.Parallel()

	t.Run("inline tables", func(t *testing.T) {
		t.Parallel()

		run := sampleRun()
		var got service.ProjectionRequest
		svc := &mocks.MockProjectionService{
			ProjectFn: func(_ context.Context, req service.ProjectionRequest) (*service.ProjectionResult, error) {
				got = req
				return &service.ProjectionResult{
					Run:        run,
					CacheStats: projection.CacheStats{Hits: 4, Misses: 9, Entries: 9},
					Duration:   3 * time.Millisecond,
				}, nil
			},
		}

		body := `{
			"premium": 100, "sum_assured": 25000, "term": 2,
			"tables": {"death": {"0": 0.001, "1": 0.002}, "lapse": {"0": 0.05, "1": 0.07}},
			"flat_rate": 0.02,
			"mode": "recursive"
		}`
		rec := doRequest(t, newTestRouter(t, svc, nil, nil), http.MethodPost, "/api/projections", body)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp ProjectionResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, run.ID, resp.ID)
		assert.Equal(t, run.Rows, resp.Rows)
		assert.Equal(t, run.Summary, resp.Summary)
		require.NotNil(t, resp.Cache)
		assert.Equal(t, 9, resp.Cache.Entries)
		require.NotNil(t, resp.DurationMS)
		assert.Equal(t, int64(3), *resp.DurationMS)

		assert.Equal(t, domain.Policy{Premium: 100, SumAssured: 25000, Term: 2}, got.Policy)
		assert.Equal(t, domain.RateTable{0: 0.001, 1: 0.002}, got.Tables[domain.TransitionDeath])
		require.NotNil(t, got.FlatRate)
		assert.Equal(t, 0.02, *got.FlatRate)
		assert.Equal(t, projection.ModeRecursive, got.Mode)
	})

	t.Run("named basis with capital", func(t *testing.T) {
		t.Parallel()

		var got service.ProjectionRequest
		svc := &mocks.MockProjectionService{
			ProjectFn: func(_ context.Context, req service.ProjectionRequest) (*service.ProjectionResult, error) {
				got = req
				return &service.ProjectionResult{Run: sampleRun()}, nil
			},
		}

		rec := doRequest(t, newTestRouter(t, svc, nil, nil), http.MethodPost, "/api/projections",
			ProjectionRequest{Premium: 100, SumAssured: 25000, Term: 2, Basis: "standard", Capital: true,
				SpotRates: []float64{0.02, 0.025}})

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "standard", got.BasisName)
		assert.True(t, got.Capital)
		assert.Equal(t, []float64{0.02, 0.025}, got.SpotRates)
		assert.Nil(t, got.FlatRate)
	})
}

func TestCreateProjectionRejectsBadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"malformed json", `{"term": `, "Invalid request format"},
		{"unknown field", `{"term": 2, "interest": 0.02}`, "Invalid request format"},
		{"trailing object", `{"term": 2} {"term": 3}`, "Invalid request format"},
		{"missing term", `{"premium": 100}`, "Invalid term: required field"},
		{"negative premium", `{"term": 2, "premium": -1}`, "Invalid premium: too small"},
		{"flat rate at minus one", `{"term": 2, "flat_rate": -1}`, "Invalid flat_rate: too small"},
		{"unknown mode", `{"term": 2, "mode": "fast"}`, "Invalid mode: invalid value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &mocks.MockProjectionService{
				ProjectFn: func(context.Context, service.ProjectionRequest) (*service.ProjectionResult, error) {
					t.Fatal("service must not be called")
					return nil, nil
				},
			}
			rec := doRequest(t, newTestRouter(t, svc, nil, nil), http.MethodPost, "/api/projections", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.message, decodeError(t, rec).Error)
		})
	}
}

func TestCreateProjectionMapsServiceErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{
			name:    "missing rate",
			err:     &domain.MissingRateError{Transition: domain.TransitionDeath, T: 1},
			status:  http.StatusBadRequest,
			message: "Missing death rate for t=1",
		},
		{
			name:    "invalid domain",
			err:     &domain.InvalidDomainError{Quantity: "occupancy", T: 3, Value: -0.2, Reason: "below zero"},
			status:  http.StatusBadRequest,
			message: "Invalid occupancy at t=3: below zero",
		},
		{
			name:    "invalid configuration",
			err:     domain.NewInvalidConfigurationError("term", "must not exceed 1200 periods"),
			status:  http.StatusBadRequest,
			message: "Invalid term: must not exceed 1200 periods",
		},
		{
			name:    "unknown basis",
			err:     service.ErrBasisNotFound,
			status:  http.StatusNotFound,
			message: "Basis not found",
		},
		{
			name:    "capital unavailable",
			err:     service.ErrCapitalUnavailable,
			status:  http.StatusNotImplemented,
			message: "Capital calculation is not available",
		},
		{
			name: "store failure",
			err: service.NewServiceError("projection", "project",
				fmt.Errorf("%w: connection refused", store.ErrTransactionFailed)),
			status:  http.StatusInternalServerError,
			message: "Failed to run projection",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &mocks.MockProjectionService{DefaultError: tt.err}
			rec := doRequest(t, newTestRouter(t, svc, nil, nil), http.MethodPost, "/api/projections",
				`{"premium": 100, "sum_assured": 1000, "term": 2, "basis": "standard"}`)

			assert.Equal(t, tt.status, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.message, resp.Error)
			assert.NotEmpty(t, resp.TraceID)
		})
	}
}

func TestGetProjection(t *testing.T) {
	t.Parallel()

	run := sampleRun()
	run.Capital = []domain.CapitalRow{{T: 0, Requirement: 5, Change: 5}, {T: 1, Requirement: 2, Change: -3}, {T: 2, Change: -2}}

	svc := &mocks.MockProjectionService{
		GetRunFn: func(_ context.Context, id uuid.UUID) (*domain.ProjectionRun, error) {
			if id == run.ID {
				return run, nil
			}
			return nil, service.ErrRunNotFound
		},
	}
	router := newTestRouter(t, svc, nil, nil)

	t.Run("found", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/projections/"+run.ID.String(), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ProjectionResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, run.ID, resp.ID)
		assert.Equal(t, run.Capital, resp.Capital)
		assert.True(t, run.CreatedAt.Equal(resp.CreatedAt))
		assert.Nil(t, resp.Cache)
		assert.Nil(t, resp.DurationMS)
	})

	t.Run("not found", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/projections/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Projection run not found", decodeError(t, rec).Error)
	})

	t.Run("invalid id", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/projections/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid id: has invalid format", decodeError(t, rec).Error)
	})
}

func TestNewProjectionHandlerPanicsOnNilDependencies(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { NewProjectionHandler(nil, testLogger()) })
	assert.Panics(t, func() { NewProjectionHandler(&mocks.MockProjectionService{}, nil) })
	assert.NotPanics(t, func() {
		NewProjectionHandler(&mocks.MockProjectionService{}, testLogger())
	})
}
