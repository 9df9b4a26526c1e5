package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/cohort-api/internal/api/middleware"
	"github.com/phrazzld/cohort-api/internal/api/shared"
	"github.com/phrazzld/cohort-api/internal/domain"
	"github.com/phrazzld/cohort-api/internal/platform/logger"
	"github.com/phrazzld/cohort-api/internal/service"
)

// BasisHandler handles decrement basis HTTP requests.
type BasisHandler struct {
	basisService service.BasisService
	logger       *slog.Logger
}

// NewBasisHandler creates a new BasisHandler.
func NewBasisHandler(basisService service.BasisService, logger *slog.Logger) *BasisHandler {
	if basisService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("basisService cannot be nil for BasisHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for BasisHandler")
	}

	return &BasisHandler{
		basisService: basisService,
		logger:       logger.With(slog.String("component", "basis_handler")),
	}
}

// ListBases handles GET /api/bases.
func (h *BasisHandler) ListBases(w http.ResponseWriter, r *http.Request) {
	bases, err := h.basisService.ListBases(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list bases")
		return
	}
	if bases == nil {
		bases = []string{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, BasisListResponse{Bases: bases})
}

// GetBasis handles GET /api/bases/{basis}.
func (h *BasisHandler) GetBasis(w http.ResponseWriter, r *http.Request) {
	name, err := getPathName(r, "basis")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	tables, err := h.basisService.GetBasis(r.Context(), name)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get basis")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, BasisResponse{Name: name, Tables: tables})
}

// PutTable handles PUT /api/bases/{basis}/tables/{transition}.
// The route is mounted behind the rates:write scope.
func (h *BasisHandler) PutTable(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	name, err := getPathName(r, "basis")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	transition, err := getPathName(r, "transition")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req RateTableRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	tr := domain.Transition(transition)
	if err := h.basisService.SaveTable(r.Context(), name, tr, req.Rates); err != nil {
		HandleAPIError(w, r, err, "Failed to save rate table")
		return
	}

	subject := ""
	if claims, ok := middleware.ClaimsFromContext(r); ok {
		subject = claims.Subject
	}
	log.Info("rate table saved",
		slog.String("basis", name),
		slog.String("transition", transition),
		slog.Int("entries", len(req.Rates)),
		slog.String("subject", subject))

	shared.RespondWithJSON(w, r, http.StatusOK, RateTableResponse{
		Basis:      name,
		Transition: tr,
		Rates:      req.Rates,
	})
}
