package projection

import (
	"log/slog"

	"github.com/phrazzld/cohort-api/internal/domain"
	"github.com/phrazzld/cohort-api/internal/domain/valuation"
)

// Service defines the projection operation consumed by the service layer.
type Service interface {
	// Build projects a policy over its full term and returns the completed
	// table, or an error and no table.
	Build(
		policy domain.Policy,
		basis domain.Basis,
		discount valuation.DiscountSource,
	) (*Table, error)
}

// Builder runs the projection engine and cash flow deriver for t = 0..T and
// assembles the result into a Table. A Builder holds only read-only
// parameters and can be shared between goroutines; every Build call owns a
// fresh engine.
type Builder struct {
	params *Params
	logger *slog.Logger
}

var _ Service = (*Builder)(nil)

// NewBuilder creates a Builder. Nil params select the defaults and a nil
// logger selects slog.Default().
func NewBuilder(params *Params, logger *slog.Logger) *Builder {
	if params == nil {
		params = NewDefaultParams()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		params: params,
		logger: logger.With(slog.String("component", "projection_builder")),
	}
}

// NewDefaultService creates a projection service with default parameters
func NewDefaultService() Service {
	return NewBuilder(NewDefaultParams(), nil)
}

// NewServiceWithParams creates a projection service with custom parameters
func NewServiceWithParams(params *Params) Service {
	return NewBuilder(params, nil)
}

// Params returns the builder's parameters.
func (b *Builder) Params() *Params {
	return b.params
}

// Build validates the configuration, evaluates every period and reduces the
// cash flows to present values.
//
// Configuration errors (non-positive term, negative premium or sum assured,
// missing required tables, nil discount source) are returned before any
// projection work starts. Any failure during evaluation returns a nil table:
// a failed run never yields a truncated projection.
func (b *Builder) Build(
	policy domain.Policy,
	basis domain.Basis,
	discount valuation.DiscountSource,
) (*Table, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if err := basis.Validate(); err != nil {
		return nil, err
	}
	if discount == nil {
		return nil, domain.NewInvalidConfigurationError("discount", "source is required")
	}

	mode := b.params.resolveMode(policy.Term)

	var states StateReader
	switch mode {
	case ModeIterative:
		s, err := Iterate(policy, basis, b.params)
		if err != nil {
			return nil, err
		}
		states = s
	default:
		e, err := NewEngine(policy, basis, b.params)
		if err != nil {
			return nil, err
		}
		states = e
	}

	table, err := assemble(policy, basis.Decrements(), states, mode, b.params)
	if err != nil {
		return nil, err
	}

	table.summary, err = summarize(table, discount)
	if err != nil {
		return nil, err
	}

	attrs := []any{
		slog.Int("term", policy.Term),
		slog.String("mode", string(mode)),
		slog.Float64("pv_net_cashflow", table.summary.PVNetCashflow),
	}
	if e, ok := states.(*Engine); ok {
		table.stats = e.CacheStats()
		attrs = append(attrs,
			slog.Int("cache_entries", table.stats.Entries),
			slog.Int("cache_hits", table.stats.Hits))
	}
	b.logger.Debug("projection built", attrs...)

	return table, nil
}

// assemble evaluates every row of the table from a StateReader.
func assemble(
	policy domain.Policy,
	decrements []domain.Transition,
	states StateReader,
	mode Mode,
	params *Params,
) (*Table, error) {
	deriver := NewCashflowDeriver(policy, states, params)
	rows := make([]domain.ProjectionRow, policy.Term+1)

	for t := 0; t <= policy.Term; t++ {
		row := domain.ProjectionRow{T: t}

		occ, err := states.Occupancy(t)
		if err != nil {
			return nil, err
		}
		row.InForce = occ

		for _, tr := range decrements {
			count, err := states.TransitionCount(tr, t)
			if err != nil {
				return nil, err
			}
			switch tr {
			case domain.TransitionDeath:
				row.Deaths = count
			case domain.TransitionLapse:
				row.Lapses = count
			default:
				if row.Decrements == nil {
					row.Decrements = make(map[domain.Transition]float64)
				}
				row.Decrements[tr] = count
			}
		}

		row.Maturities, err = states.TransitionCount(domain.TransitionMaturity, t)
		if err != nil {
			return nil, err
		}

		flows, err := deriver.Flows(t)
		if err != nil {
			return nil, err
		}
		row.Claims = flows.Claims
		row.Premiums = flows.Premiums
		row.Expenses = flows.Expenses
		row.NetCashflow = flows.NetCashflow

		rows[t] = row
	}

	return &Table{
		policy:     policy,
		mode:       mode,
		decrements: decrements,
		rows:       rows,
	}, nil
}

// summarize computes the present value of each cash flow column and the
// net margin PV(net cashflow) / PV(premiums). The margin is reported as 0
// when the premium value is 0.
func summarize(table *Table, discount valuation.DiscountSource) (domain.ProjectionSummary, error) {
	var summary domain.ProjectionSummary

	targets := []struct {
		column string
		dst    *float64
	}{
		{ColumnPremiums, &summary.PVPremiums},
		{ColumnClaims, &summary.PVClaims},
		{ColumnExpenses, &summary.PVExpenses},
		{ColumnNetCashflow, &summary.PVNetCashflow},
	}
	for _, target := range targets {
		flows, err := table.Cashflows(target.column)
		if err != nil {
			return domain.ProjectionSummary{}, err
		}
		pv, err := valuation.PresentValue(flows, discount)
		if err != nil {
			return domain.ProjectionSummary{}, err
		}
		*target.dst = pv
	}

	if summary.PVPremiums != 0 {
		summary.Margin = summary.PVNetCashflow / summary.PVPremiums
	}

	return summary, nil
}
