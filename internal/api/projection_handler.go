package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/cohort-api/internal/api/shared"
	"github.com/phrazzld/cohort-api/internal/platform/logger"
	"github.com/phrazzld/cohort-api/internal/service"
)

// ProjectionHandler handles projection HTTP requests.
type ProjectionHandler struct {
	projectionService service.ProjectionService
	logger            *slog.Logger
}

// NewProjectionHandler creates a new ProjectionHandler.
func NewProjectionHandler(projectionService service.ProjectionService, logger *slog.Logger) *ProjectionHandler {
	if projectionService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("projectionService cannot be nil for ProjectionHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ProjectionHandler")
	}

	return &ProjectionHandler{
		projectionService: projectionService,
		logger:            logger.With(slog.String("component", "projection_handler")),
	}
}

// CreateProjection handles POST /api/projections.
// It runs a projection and responds 201 with the stored run.
func (h *ProjectionHandler) CreateProjection(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req ProjectionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Debug("running projection",
		slog.Int("term", req.Term),
		slog.String("basis", req.Basis),
		slog.Bool("inline_tables", len(req.Tables) > 0),
		slog.Bool("capital", req.Capital))

	result, err := h.projectionService.Project(r.Context(), req.toServiceRequest())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to run projection")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, resultToResponse(result))
}

// GetProjection handles GET /api/projections/{id}.
func (h *ProjectionHandler) GetProjection(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	run, err := h.projectionService.GetRun(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get projection run")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, runToResponse(run))
}
