package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for ProjectionRun
var (
	ErrEmptyRunID      = errors.New("projection run ID cannot be empty")
	ErrEmptyRunRows    = errors.New("projection run must contain at least one row")
	ErrRunTermMismatch = errors.New("projection run rows do not cover the policy term")
)

// ProjectionRow is one period of a projection table.
type ProjectionRow struct {
	T           int                    `json:"t"`
	InForce     float64                `json:"num_in_force"`
	Deaths      float64                `json:"num_deaths"`
	Lapses      float64                `json:"num_lapses"`
	Maturities  float64                `json:"num_maturities"`
	Decrements  map[Transition]float64 `json:"other_decrements,omitempty"`
	Claims      float64                `json:"claims"`
	Premiums    float64                `json:"premiums"`
	Expenses    float64                `json:"expenses"`
	NetCashflow float64                `json:"net_cashflow"`
}

// ProjectionSummary holds the present values derived from a projection table.
type ProjectionSummary struct {
	PVPremiums    float64 `json:"pv_premiums"`
	PVClaims      float64 `json:"pv_claims"`
	PVExpenses    float64 `json:"pv_expenses"`
	PVNetCashflow float64 `json:"pv_net_cashflow"`
	Margin        float64 `json:"margin"`
}

// CapitalRow is the nested prudent-basis capital requirement at one period.
type CapitalRow struct {
	T           int     `json:"t"`
	Requirement float64 `json:"capital_requirement"`
	Change      float64 `json:"capital_change"`
}

// ProjectionRun is a completed projection as stored and served by the API.
type ProjectionRun struct {
	ID        uuid.UUID         `json:"id"`
	BasisName string            `json:"basis_name,omitempty"`
	Policy    Policy            `json:"policy"`
	Mode      string            `json:"mode"`
	Rows      []ProjectionRow   `json:"rows"`
	Summary   ProjectionSummary `json:"summary"`
	Capital   []CapitalRow      `json:"capital,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewProjectionRun creates a run record with a fresh ID.
func NewProjectionRun(
	basisName string,
	policy Policy,
	mode string,
	rows []ProjectionRow,
	summary ProjectionSummary,
) (*ProjectionRun, error) {
	run := &ProjectionRun{
		ID:        uuid.New(),
		BasisName: basisName,
		Policy:    policy,
		Mode:      mode,
		Rows:      rows,
		Summary:   summary,
		CreatedAt: time.Now().UTC(),
	}

	if err := run.Validate(); err != nil {
		return nil, err
	}

	return run, nil
}

// Validate checks that the run is complete: one row per t in [0, Term].
func (r *ProjectionRun) Validate() error {
	if r.ID == uuid.Nil {
		return ErrEmptyRunID
	}
	if err := r.Policy.Validate(); err != nil {
		return err
	}
	if len(r.Rows) == 0 {
		return ErrEmptyRunRows
	}
	if len(r.Rows) != r.Policy.Term+1 {
		return ErrRunTermMismatch
	}
	return nil
}
