package valuation

import (
	"github.com/phrazzld/cohort-api/internal/domain"
)

// PresentValue discounts a cash flow sequence to time 0.
//
// The cash flow generated during period [t, t+1) is paid at t+1, so
//
//	PV = Σ_{t=0}^{len-1} cashflows[t] * d.Factor(t+1)
//
// The result is linear in the sequence: PV(a*f + b*g) = a*PV(f) + b*PV(g).
// A source that does not cover every period fails the whole reduction.
func PresentValue(cashflows []float64, d DiscountSource) (float64, error) {
	if d == nil {
		return 0, domain.NewInvalidConfigurationError("discount", "source is required")
	}

	pv := 0.0
	for t, cf := range cashflows {
		f, err := d.Factor(t + 1)
		if err != nil {
			return 0, err
		}
		pv += cf * f
	}
	return pv, nil
}

// Discounted returns each cash flow multiplied by its discount factor.
func Discounted(cashflows []float64, d DiscountSource) ([]float64, error) {
	if d == nil {
		return nil, domain.NewInvalidConfigurationError("discount", "source is required")
	}

	out := make([]float64, len(cashflows))
	for t, cf := range cashflows {
		f, err := d.Factor(t + 1)
		if err != nil {
			return nil, err
		}
		out[t] = cf * f
	}
	return out, nil
}
