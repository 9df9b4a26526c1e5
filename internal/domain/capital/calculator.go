// Package capital computes the prudent-basis capital requirement of a
// projected policy by running a nested projection at every outer period.
package capital

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/cohort-api/internal/domain"
	"github.com/phrazzld/cohort-api/internal/domain/projection"
	"github.com/phrazzld/cohort-api/internal/domain/valuation"
)

// Config controls the prudent basis and the nested fan-out.
type Config struct {
	// Workers caps the number of nested projections evaluated at once.
	// Zero or less uses GOMAXPROCS.
	Workers int

	// Margins applied to the best-estimate decrement rates. Transitions
	// without an entry in Margins use a factor of 1.
	DeathMargin float64
	LapseMargin float64
	Margins     map[domain.Transition]float64

	// DiscountNested discounts nested cash flows with the outer discount
	// source re-based at the outer period. When false they are summed.
	DiscountNested bool
}

// NewDefaultConfig returns the standard prudent basis: deaths loaded by 20%,
// lapses unchanged, nested flows undiscounted.
func NewDefaultConfig() Config {
	return Config{
		DeathMargin: 1.2,
		LapseMargin: 1.0,
	}
}

// Calculator evaluates capital requirements. It is safe for concurrent use;
// every nested projection builds its own engine.
type Calculator struct {
	cfg     Config
	builder *projection.Builder
	logger  *slog.Logger
}

// NewCalculator creates a Calculator that runs nested projections with the
// given builder.
func NewCalculator(cfg Config, builder *projection.Builder, logger *slog.Logger) (*Calculator, error) {
	if builder == nil {
		return nil, fmt.Errorf("projection builder cannot be nil")
	}
	if cfg.DeathMargin <= 0 {
		return nil, domain.NewInvalidConfigurationError("capital.death_margin", "must be positive")
	}
	if cfg.LapseMargin <= 0 {
		return nil, domain.NewInvalidConfigurationError("capital.lapse_margin", "must be positive")
	}
	for tr, m := range cfg.Margins {
		if m <= 0 {
			return nil, domain.NewInvalidConfigurationError(
				fmt.Sprintf("capital.margins.%s", tr), "must be positive")
		}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Calculator{
		cfg:     cfg,
		builder: builder,
		logger:  logger.With(slog.String("component", "capital_calculator")),
	}, nil
}

// Compute returns one CapitalRow per t in [0, T] for a projected table.
//
//	Requirement(t) = Occupancy(t) * Σ_s nested_net_cashflow(s)   for t < T
//	Requirement(T) = 0
//	Change(0)      = Requirement(0)
//	Change(t)      = Requirement(t) - Requirement(t-1)
//
// The nested projection at t covers the remaining T-t periods from attained
// age StartAge+t with no initial expense, reading every decrement table t
// steps ahead with the prudent margin applied. It evaluates in the mode the
// outer table was built with.
func (c *Calculator) Compute(
	ctx context.Context,
	table *projection.Table,
	basis domain.Basis,
	discount valuation.DiscountSource,
) ([]domain.CapitalRow, error) {
	if table == nil {
		return nil, fmt.Errorf("projection table cannot be nil")
	}
	if c.cfg.DiscountNested && discount == nil {
		return nil, domain.NewInvalidConfigurationError("discount", "source is required")
	}

	term := table.Term()
	policy := table.Policy()
	requirements := make([]float64, term+1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)

	for t := 0; t < term; t++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			occ, err := table.Occupancy(t)
			if err != nil {
				return err
			}
			if occ == 0 {
				return nil
			}
			nested, err := c.nestedValue(table.Mode(), policy, basis, discount, t)
			if err != nil {
				return fmt.Errorf("nested projection at t=%d: %w", t, err)
			}
			requirements[t] = occ * nested
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := make([]domain.CapitalRow, term+1)
	for t := range rows {
		rows[t] = domain.CapitalRow{T: t, Requirement: requirements[t]}
		if t == 0 {
			rows[t].Change = requirements[0]
		} else {
			rows[t].Change = requirements[t] - requirements[t-1]
		}
	}

	c.logger.Debug("capital computed",
		slog.Int("term", term),
		slog.Float64("initial_requirement", requirements[0]))

	return rows, nil
}

// nestedValue projects the sub-policy starting at outer period t and
// returns the per-policy value of its net cash flows.
func (c *Calculator) nestedValue(
	mode projection.Mode,
	policy domain.Policy,
	basis domain.Basis,
	discount valuation.DiscountSource,
	t int,
) (float64, error) {
	sub := policy
	sub.Term = policy.TermRemaining(t)
	sub.StartAge = policy.Age(t)
	sub.InitialExpense = 0

	var nestedDiscount valuation.DiscountSource
	if c.cfg.DiscountNested {
		nestedDiscount = valuation.Forward(discount, t)
	} else {
		undiscounted, err := valuation.NewFlatRate(0)
		if err != nil {
			return 0, err
		}
		nestedDiscount = undiscounted
	}

	table, err := c.nestedBuilder(mode, t).Build(sub, c.prudentBasis(basis, t), nestedDiscount)
	if err != nil {
		return 0, err
	}
	return table.Summary().PVNetCashflow, nil
}

// nestedBuilder returns a builder for the sub-policy at outer period t.
// Past inception the first nested period is a renewal period, so renewal
// expense is due from it.
func (c *Calculator) nestedBuilder(mode projection.Mode, t int) *projection.Builder {
	params := *c.builder.Params()
	if mode.IsValid() {
		params.Mode = mode
	}
	if t > 0 {
		params.RenewalExpenseFromInception = true
	}
	return projection.NewBuilder(&params, c.logger)
}

// prudentBasis shifts every table by t and applies the configured margin.
func (c *Calculator) prudentBasis(basis domain.Basis, t int) domain.Basis {
	out := make(domain.Basis, len(basis))
	for tr, src := range basis {
		var shifted domain.RateSource = src
		if t > 0 {
			shifted = domain.ShiftedSource{Source: src, Offset: t}
		}
		factor := c.margin(tr)
		if factor == 1 {
			out[tr] = shifted
			continue
		}
		out[tr] = domain.ScaledSource{Source: shifted, Factor: factor}
	}
	return out
}

func (c *Calculator) margin(tr domain.Transition) float64 {
	if m, ok := c.cfg.Margins[tr]; ok {
		return m
	}
	switch tr {
	case domain.TransitionDeath:
		return c.cfg.DeathMargin
	case domain.TransitionLapse:
		return c.cfg.LapseMargin
	default:
		return 1
	}
}
