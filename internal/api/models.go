package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/cohort-api/internal/domain"
	"github.com/phrazzld/cohort-api/internal/domain/projection"
	"github.com/phrazzld/cohort-api/internal/service"
)

// maxNameLength bounds basis and transition names taken from the path.
const maxNameLength = 100

// ProjectionRequest defines the payload for POST /api/projections.
// Exactly one of Basis and Tables selects the decrement basis.
type ProjectionRequest struct {
	Premium        float64 `json:"premium"         validate:"gte=0"`
	SumAssured     float64 `json:"sum_assured"     validate:"gte=0"`
	Term           int     `json:"term"            validate:"required,gt=0"`
	InitialExpense float64 `json:"initial_expense" validate:"gte=0"`
	RenewalExpense float64 `json:"renewal_expense" validate:"gte=0"`
	StartAge       int     `json:"start_age"       validate:"gte=0"`

	Basis  string                                 `json:"basis,omitempty"  validate:"omitempty,max=100"`
	Tables map[domain.Transition]domain.RateTable `json:"tables,omitempty"`

	// FlatRate, DiscountFactors and SpotRates are mutually exclusive. When
	// none is given the server's default flat rate applies.
	FlatRate        *float64  `json:"flat_rate,omitempty"        validate:"omitempty,gt=-1"`
	DiscountFactors []float64 `json:"discount_factors,omitempty" validate:"omitempty,dive,gt=0"`
	SpotRates       []float64 `json:"spot_rates,omitempty"       validate:"omitempty,dive,gt=-1"`

	Mode    string `json:"mode,omitempty" validate:"omitempty,oneof=auto recursive iterative"`
	Capital bool   `json:"capital,omitempty"`
}

// toServiceRequest converts the payload to a service request.
func (r ProjectionRequest) toServiceRequest() service.ProjectionRequest {
	return service.ProjectionRequest{
		Policy: domain.Policy{
			Premium:        r.Premium,
			SumAssured:     r.SumAssured,
			Term:           r.Term,
			InitialExpense: r.InitialExpense,
			RenewalExpense: r.RenewalExpense,
			StartAge:       r.StartAge,
		},
		BasisName:       r.Basis,
		Tables:          r.Tables,
		FlatRate:        r.FlatRate,
		DiscountFactors: r.DiscountFactors,
		SpotRates:       r.SpotRates,
		Mode:            projection.Mode(r.Mode),
		Capital:         r.Capital,
	}
}

// ProjectionResponse is a projection run as returned by the API.
type ProjectionResponse struct {
	ID        uuid.UUID                `json:"id"`
	BasisName string                   `json:"basis_name,omitempty"`
	Mode      string                   `json:"mode"`
	Policy    domain.Policy            `json:"policy"`
	Rows      []domain.ProjectionRow   `json:"rows"`
	Summary   domain.ProjectionSummary `json:"summary"`
	Capital   []domain.CapitalRow      `json:"capital,omitempty"`
	CreatedAt time.Time                `json:"created_at"`

	// Cache and DurationMS describe the evaluation and are only present on
	// the response that created the run.
	Cache      *projection.CacheStats `json:"cache,omitempty"`
	DurationMS *int64                 `json:"duration_ms,omitempty"`
}

func runToResponse(run *domain.ProjectionRun) ProjectionResponse {
	return ProjectionResponse{
		ID:        run.ID,
		BasisName: run.BasisName,
		Mode:      run.Mode,
		Policy:    run.Policy,
		Rows:      run.Rows,
		Summary:   run.Summary,
		Capital:   run.Capital,
		CreatedAt: run.CreatedAt,
	}
}

func resultToResponse(result *service.ProjectionResult) ProjectionResponse {
	resp := runToResponse(result.Run)
	stats := result.CacheStats
	ms := result.Duration.Milliseconds()
	resp.Cache = &stats
	resp.DurationMS = &ms
	return resp
}

// BasisListResponse lists the stored basis names.
type BasisListResponse struct {
	Bases []string `json:"bases"`
}

// BasisResponse holds every table of one basis.
type BasisResponse struct {
	Name   string                                 `json:"name"`
	Tables map[domain.Transition]domain.RateTable `json:"tables"`
}

// RateTableRequest defines the payload for
// PUT /api/bases/{basis}/tables/{transition}.
type RateTableRequest struct {
	Rates domain.RateTable `json:"rates" validate:"required,min=1"`
}

// RateTableResponse echoes a stored table.
type RateTableResponse struct {
	Basis      string            `json:"basis"`
	Transition domain.Transition `json:"transition"`
	Rates      domain.RateTable  `json:"rates"`
}
