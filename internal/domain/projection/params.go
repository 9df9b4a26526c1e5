package projection

import (
	"github.com/phrazzld/cohort-api/internal/domain"
)

// Mode selects how the engine evaluates the state recursion.
type Mode string

// Evaluation modes
const (
	// ModeRecursive evaluates the memoized mutual recursion. It is the
	// reference semantics.
	ModeRecursive Mode = "recursive"

	// ModeIterative fills arrays bottom-up from t=0 and produces the same
	// bits as ModeRecursive without call-stack growth.
	ModeIterative Mode = "iterative"

	// ModeAuto uses recursion up to IterativeThreshold periods and the
	// iterative fill beyond it.
	ModeAuto Mode = "auto"
)

// IsValid reports whether m is a known mode.
func (m Mode) IsValid() bool {
	switch m {
	case ModeRecursive, ModeIterative, ModeAuto:
		return true
	default:
		return false
	}
}

// Params defines all configurable parameters for a projection run
type Params struct {
	// Evaluation strategy
	Mode               Mode
	IterativeThreshold int

	// Numeric tolerances
	OccupancyTolerance float64
	RateTolerance      float64

	// Cash flow placement
	ClaimTransition             domain.Transition
	RenewalExpenseFromInception bool
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance
type ParamsConfig struct {
	Mode               Mode
	IterativeThreshold int

	OccupancyTolerance float64
	RateTolerance      float64

	ClaimTransition             domain.Transition
	RenewalExpenseFromInception bool
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		Mode:               ModeAuto,
		IterativeThreshold: 5000,

		// Occupancy this far below zero is rounding noise from a period
		// whose decrements sum to exactly one.
		OccupancyTolerance: 1e-12,
		RateTolerance:      1e-12,

		ClaimTransition:             domain.TransitionDeath,
		RenewalExpenseFromInception: false,
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.Mode.IsValid() {
		params.Mode = config.Mode
	}
	if config.IterativeThreshold > 0 {
		params.IterativeThreshold = config.IterativeThreshold
	}
	if config.OccupancyTolerance > 0 {
		params.OccupancyTolerance = config.OccupancyTolerance
	}
	if config.RateTolerance > 0 {
		params.RateTolerance = config.RateTolerance
	}
	if config.ClaimTransition != "" {
		params.ClaimTransition = config.ClaimTransition
	}
	params.RenewalExpenseFromInception = config.RenewalExpenseFromInception

	return params
}

// resolveMode picks the concrete evaluation strategy for a term.
func (p *Params) resolveMode(term int) Mode {
	if p.Mode != ModeAuto {
		return p.Mode
	}
	if term > p.IterativeThreshold {
		return ModeIterative
	}
	return ModeRecursive
}
