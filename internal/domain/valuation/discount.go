// Package valuation reduces cash flow sequences to present values using a
// flat discount rate or a caller-supplied term structure.
package valuation

import (
	"fmt"
	"math"

	"github.com/phrazzld/cohort-api/internal/domain"
)

// DiscountSource supplies the discount factor applied to a cash flow paid at
// the end of period n, for n >= 1.
type DiscountSource interface {
	Factor(n int) (float64, error)
}

// FlatRate discounts at a single annual rate: factor(n) = v^n, v = 1/(1+r).
type FlatRate struct {
	rate float64
	v    float64
}

// NewFlatRate validates the rate, which must be finite and greater than -1.
func NewFlatRate(rate float64) (FlatRate, error) {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return FlatRate{}, domain.NewInvalidConfigurationError("flat_rate", "must be finite")
	}
	if rate <= -1 {
		return FlatRate{}, domain.NewInvalidConfigurationError("flat_rate", "must be greater than -1")
	}
	return FlatRate{rate: rate, v: 1 / (1 + rate)}, nil
}

// Rate returns the annual rate.
func (f FlatRate) Rate() float64 {
	return f.rate
}

// Factor implements DiscountSource.
func (f FlatRate) Factor(n int) (float64, error) {
	if n < 1 {
		return 0, errPeriod(n)
	}
	return math.Pow(f.v, float64(n)), nil
}

// FactorCurve is a term structure given directly as discount factors;
// element i is the factor for period i+1.
type FactorCurve struct {
	factors []float64
}

// NewFactorCurve validates that every factor is finite and positive.
func NewFactorCurve(factors []float64) (FactorCurve, error) {
	if len(factors) == 0 {
		return FactorCurve{}, domain.NewInvalidConfigurationError("discount_factors", "cannot be empty")
	}
	out := make([]float64, len(factors))
	for i, f := range factors {
		if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
			return FactorCurve{}, domain.NewInvalidConfigurationError(
				fmt.Sprintf("discount_factors[%d]", i), "must be finite and positive")
		}
		out[i] = f
	}
	return FactorCurve{factors: out}, nil
}

// Periods returns the number of periods the curve covers.
func (c FactorCurve) Periods() int {
	return len(c.factors)
}

// Factor implements DiscountSource.
func (c FactorCurve) Factor(n int) (float64, error) {
	if n < 1 {
		return 0, errPeriod(n)
	}
	if n > len(c.factors) {
		return 0, errCoverage("discount_factors", n)
	}
	return c.factors[n-1], nil
}

// SpotCurve is a term structure of annual spot rates; element i is the rate
// for period i+1 and factor(n) = (1+r_n)^-n.
type SpotCurve struct {
	rates []float64
}

// NewSpotCurve validates that every rate is finite and greater than -1.
func NewSpotCurve(rates []float64) (SpotCurve, error) {
	if len(rates) == 0 {
		return SpotCurve{}, domain.NewInvalidConfigurationError("spot_rates", "cannot be empty")
	}
	out := make([]float64, len(rates))
	for i, r := range rates {
		if math.IsNaN(r) || math.IsInf(r, 0) || r <= -1 {
			return SpotCurve{}, domain.NewInvalidConfigurationError(
				fmt.Sprintf("spot_rates[%d]", i), "must be finite and greater than -1")
		}
		out[i] = r
	}
	return SpotCurve{rates: out}, nil
}

// Periods returns the number of periods the curve covers.
func (c SpotCurve) Periods() int {
	return len(c.rates)
}

// Factor implements DiscountSource.
func (c SpotCurve) Factor(n int) (float64, error) {
	if n < 1 {
		return 0, errPeriod(n)
	}
	if n > len(c.rates) {
		return 0, errCoverage("spot_rates", n)
	}
	return math.Pow(1+c.rates[n-1], -float64(n)), nil
}

// Forward re-bases a source at period offset: Factor(n) of the result is
// source.Factor(offset+n) / source.Factor(offset). An offset of zero
// returns the source unchanged.
func Forward(source DiscountSource, offset int) DiscountSource {
	if offset == 0 {
		return source
	}
	return forwardSource{source: source, offset: offset}
}

type forwardSource struct {
	source DiscountSource
	offset int
}

func (f forwardSource) Factor(n int) (float64, error) {
	if n < 1 {
		return 0, errPeriod(n)
	}
	base, err := f.source.Factor(f.offset)
	if err != nil {
		return 0, err
	}
	far, err := f.source.Factor(f.offset + n)
	if err != nil {
		return 0, err
	}
	return far / base, nil
}

func errPeriod(n int) error {
	return domain.NewInvalidConfigurationError("discount period", fmt.Sprintf("%d must be at least 1", n))
}

func errCoverage(field string, n int) error {
	return domain.NewInvalidConfigurationError(field, fmt.Sprintf("does not cover period %d", n))
}
