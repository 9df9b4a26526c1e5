//go:build test_without_external_deps

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/cohort-api/internal/api/middleware"
	"github.com/phrazzld/cohort-api/internal/api/shared"
	"github.com/phrazzld/cohort-api/internal/mocks"
	"github.com/phrazzld/cohort-api/internal/service"
	"github.com/phrazzld/cohort-api/internal/service/auth"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRouter mounts the handlers the way the server does.
func newTestRouter(
	t *testing.T,
	projections service.ProjectionService,
	bases service.BasisService,
	jwt auth.JWTService,
) http.Handler {
	t.Helper()

	if projections == nil {
		projections = &mocks.MockProjectionService{}
	}
	if bases == nil {
		bases = &mocks.MockBasisService{}
	}
	if jwt == nil {
		jwt = &mocks.MockJWTService{ValidateErr: auth.ErrInvalidToken}
	}

	ph := NewProjectionHandler(projections, testLogger())
	bh := NewBasisHandler(bases, testLogger())
	authMw := middleware.NewAuthMiddleware(jwt)

	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware(testLogger()))
	r.Route("/api", func(r chi.Router) {
		r.Post("/projections", ph.CreateProjection)
		r.Get("/projections/{id}", ph.GetProjection)
		r.Get("/bases", bh.ListBases)
		r.Get("/bases/{basis}", bh.GetBasis)
		r.With(authMw.RequireScope(auth.ScopeRatesWrite)).
			Put("/bases/{basis}/tables/{transition}", bh.PutTable)
	})
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()

	var resp shared.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}
