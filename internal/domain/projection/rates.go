package projection

import (
	"fmt"
	"math"

	"github.com/phrazzld/cohort-api/internal/domain"
)

// loadRates reads every decrement rate at time step t, in decrement order,
// and checks that each is a probability and that together they do not
// exceed one.
//
// A missing entry is a MissingRateError rather than an implicit zero: a gap
// in a table is a configuration mistake and silently defaulting it would
// corrupt every later period.
func loadRates(
	basis domain.Basis,
	decrements []domain.Transition,
	t int,
	params *Params,
) ([]float64, error) {
	rates := make([]float64, len(decrements))
	total := 0.0

	for i, tr := range decrements {
		q, ok := basis[tr].Rate(t)
		if !ok {
			return nil, &domain.MissingRateError{Transition: tr, T: t}
		}
		if math.IsNaN(q) || math.IsInf(q, 0) {
			return nil, &domain.InvalidDomainError{
				Quantity: fmt.Sprintf("%s rate", tr), T: t, Value: q, Reason: "must be finite",
			}
		}
		if q < 0 {
			return nil, &domain.InvalidDomainError{
				Quantity: fmt.Sprintf("%s rate", tr), T: t, Value: q, Reason: "must not be negative",
			}
		}
		if q > 1 {
			return nil, &domain.InvalidDomainError{
				Quantity: fmt.Sprintf("%s rate", tr), T: t, Value: q, Reason: "must not exceed 1",
			}
		}
		rates[i] = q
		total += q
	}

	if total > 1+params.RateTolerance {
		return nil, &domain.InvalidDomainError{
			Quantity: "total decrement rate", T: t, Value: total, Reason: "must not exceed 1",
		}
	}

	return rates, nil
}

// checkOccupancy rejects negative population. Values within the occupancy
// tolerance below zero are rounding noise and are snapped to exactly zero.
func checkOccupancy(quantity string, t int, v float64, params *Params) (float64, error) {
	if v >= 0 {
		return v, nil
	}
	if v >= -params.OccupancyTolerance {
		return 0, nil
	}
	return 0, &domain.InvalidDomainError{
		Quantity: quantity, T: t, Value: v, Reason: "must not be negative",
	}
}
