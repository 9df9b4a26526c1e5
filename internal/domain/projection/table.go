package projection

import (
	"fmt"
	"maps"

	"github.com/phrazzld/cohort-api/internal/domain"
)

// Column names accepted by Table.Column.
const (
	ColumnInForce     = "num_in_force"
	ColumnDeaths      = "num_deaths"
	ColumnLapses      = "num_lapses"
	ColumnMaturities  = "num_maturities"
	ColumnClaims      = "claims"
	ColumnPremiums    = "premiums"
	ColumnExpenses    = "expenses"
	ColumnNetCashflow = "net_cashflow"
)

// Table is a completed projection: one row per t in [0, T] and the present
// value summary. It is read-only after construction; every accessor returns
// copies.
type Table struct {
	policy     domain.Policy
	mode       Mode
	decrements []domain.Transition
	rows       []domain.ProjectionRow
	summary    domain.ProjectionSummary
	stats      CacheStats
}

var _ StateReader = (*Table)(nil)

// Term returns the projection term T.
func (tb *Table) Term() int {
	return tb.policy.Term
}

// Len returns the number of rows, T+1.
func (tb *Table) Len() int {
	return len(tb.rows)
}

// Policy returns the policy the table was projected for.
func (tb *Table) Policy() domain.Policy {
	return tb.policy
}

// Mode returns the evaluation strategy that produced the table.
func (tb *Table) Mode() Mode {
	return tb.mode
}

// Summary returns the present value summary.
func (tb *Table) Summary() domain.ProjectionSummary {
	return tb.summary
}

// CacheStats returns the memo cache statistics of the engine that built the
// table. Tables built in iterative mode report zero values.
func (tb *Table) CacheStats() CacheStats {
	return tb.stats
}

// Row returns the row for period t.
func (tb *Table) Row(t int) (domain.ProjectionRow, error) {
	if t < 0 || t >= len(tb.rows) {
		return domain.ProjectionRow{}, &domain.InvalidDomainError{
			Quantity: "time step", T: t, Value: float64(t),
			Reason: fmt.Sprintf("must be in [0, %d]", tb.policy.Term),
		}
	}
	return cloneRow(tb.rows[t]), nil
}

// Rows returns a copy of every row in time order.
func (tb *Table) Rows() []domain.ProjectionRow {
	out := make([]domain.ProjectionRow, len(tb.rows))
	for i, r := range tb.rows {
		out[i] = cloneRow(r)
	}
	return out
}

// Column returns one named field for every t in [0, T].
func (tb *Table) Column(name string) ([]float64, error) {
	pick, ok := columnPickers[name]
	if !ok {
		return nil, fmt.Errorf("unknown column %q", name)
	}
	out := make([]float64, len(tb.rows))
	for i := range tb.rows {
		out[i] = pick(&tb.rows[i])
	}
	return out, nil
}

// Cashflows returns a named column restricted to the periods that generate
// cash flow, t in [0, T-1], which is the sequence passed to PresentValue.
func (tb *Table) Cashflows(name string) ([]float64, error) {
	col, err := tb.Column(name)
	if err != nil {
		return nil, err
	}
	return col[:tb.policy.Term], nil
}

// Occupancy implements StateReader.
func (tb *Table) Occupancy(t int) (float64, error) {
	if t < 0 {
		return 0, errNegativeStep(t)
	}
	if t >= len(tb.rows) {
		return 0, nil
	}
	return tb.rows[t].InForce, nil
}

// TransitionCount implements StateReader.
func (tb *Table) TransitionCount(tr domain.Transition, t int) (float64, error) {
	if t < 0 {
		return 0, errNegativeStep(t)
	}
	known := tr == domain.TransitionMaturity
	for _, d := range tb.decrements {
		if d == tr {
			known = true
			break
		}
	}
	if !known {
		return 0, fmt.Errorf("%w: %s", domain.ErrUnknownTransition, tr)
	}
	if t >= len(tb.rows) {
		return 0, nil
	}

	row := &tb.rows[t]
	switch tr {
	case domain.TransitionDeath:
		return row.Deaths, nil
	case domain.TransitionLapse:
		return row.Lapses, nil
	case domain.TransitionMaturity:
		return row.Maturities, nil
	default:
		return row.Decrements[tr], nil
	}
}

var columnPickers = map[string]func(*domain.ProjectionRow) float64{
	ColumnInForce:     func(r *domain.ProjectionRow) float64 { return r.InForce },
	ColumnDeaths:      func(r *domain.ProjectionRow) float64 { return r.Deaths },
	ColumnLapses:      func(r *domain.ProjectionRow) float64 { return r.Lapses },
	ColumnMaturities:  func(r *domain.ProjectionRow) float64 { return r.Maturities },
	ColumnClaims:      func(r *domain.ProjectionRow) float64 { return r.Claims },
	ColumnPremiums:    func(r *domain.ProjectionRow) float64 { return r.Premiums },
	ColumnExpenses:    func(r *domain.ProjectionRow) float64 { return r.Expenses },
	ColumnNetCashflow: func(r *domain.ProjectionRow) float64 { return r.NetCashflow },
}

func cloneRow(r domain.ProjectionRow) domain.ProjectionRow {
	if r.Decrements != nil {
		r.Decrements = maps.Clone(r.Decrements)
	}
	return r
}
