package domain

import "math"

// Policy holds the immutable terms of one policy (or homogeneous cohort).
// It is set once when a projection is constructed and never mutated.
type Policy struct {
	Premium        float64 `json:"premium"`         // Premium per period (P)
	SumAssured     float64 `json:"sum_assured"`     // Benefit paid on death (S)
	Term           int     `json:"term"`            // Number of projection periods (T)
	InitialExpense float64 `json:"initial_expense"` // Charged once at inception
	RenewalExpense float64 `json:"renewal_expense"` // Charged per in-force policy per period
	StartAge       int     `json:"start_age"`       // Age at inception, informational
}

// Validate checks the policy terms and returns an InvalidConfigurationError
// for the first field that fails.
func (p Policy) Validate() error {
	if p.Term <= 0 {
		return NewInvalidConfigurationError("term", "must be a positive integer")
	}
	checks := []struct {
		field string
		value float64
	}{
		{"premium", p.Premium},
		{"sum_assured", p.SumAssured},
		{"initial_expense", p.InitialExpense},
		{"renewal_expense", p.RenewalExpense},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return NewInvalidConfigurationError(c.field, "must be finite")
		}
		if c.value < 0 {
			return NewInvalidConfigurationError(c.field, "must not be negative")
		}
	}
	if p.StartAge < 0 {
		return NewInvalidConfigurationError("start_age", "must not be negative")
	}
	return nil
}

// Age returns the attained age at time step t.
func (p Policy) Age(t int) int {
	return p.StartAge + t
}

// TermRemaining returns the number of periods left at time step t.
func (p Policy) TermRemaining(t int) int {
	return p.Term - t
}
