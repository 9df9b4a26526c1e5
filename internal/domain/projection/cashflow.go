package projection

import (
	"github.com/phrazzld/cohort-api/internal/domain"
)

// Cashflows holds the monetary amounts generated during one period.
type Cashflows struct {
	Claims      float64
	Premiums    float64
	Expenses    float64
	NetCashflow float64
}

// CashflowDeriver maps occupancy and transition counts to cash flows using
// the policy terms. It holds no state of its own; callers that iterate over
// periods should consume the built Table rather than re-deriving.
type CashflowDeriver struct {
	policy domain.Policy
	states StateReader
	params *Params
}

// NewCashflowDeriver creates a deriver over any StateReader.
func NewCashflowDeriver(policy domain.Policy, states StateReader, params *Params) *CashflowDeriver {
	if params == nil {
		params = NewDefaultParams()
	}
	return &CashflowDeriver{policy: policy, states: states, params: params}
}

// Claims returns claim outgo: deaths in period t times the sum assured.
func (d *CashflowDeriver) Claims(t int) (float64, error) {
	if t >= d.policy.Term {
		return 0, nil
	}
	count, err := d.states.TransitionCount(d.params.ClaimTransition, t)
	if err != nil {
		return 0, err
	}
	return count * d.policy.SumAssured, nil
}

// Premiums returns premium income: policies in force at t times the premium.
func (d *CashflowDeriver) Premiums(t int) (float64, error) {
	if t >= d.policy.Term {
		return 0, nil
	}
	occ, err := d.states.Occupancy(t)
	if err != nil {
		return 0, err
	}
	return occ * d.policy.Premium, nil
}

// Expenses returns the expense outgo at t. The initial expense is charged on
// the inception population at t=0. Renewal expenses are charged per policy
// in force from t=1, or from t=0 when RenewalExpenseFromInception is set.
func (d *CashflowDeriver) Expenses(t int) (float64, error) {
	if t >= d.policy.Term {
		return 0, nil
	}
	occ, err := d.states.Occupancy(t)
	if err != nil {
		return 0, err
	}

	expenses := 0.0
	if t == 0 {
		expenses += occ * d.policy.InitialExpense
	}
	if t > 0 || d.params.RenewalExpenseFromInception {
		expenses += occ * d.policy.RenewalExpense
	}
	return expenses, nil
}

// NetCashflow returns premiums less claims less expenses at t.
func (d *CashflowDeriver) NetCashflow(t int) (float64, error) {
	flows, err := d.Flows(t)
	if err != nil {
		return 0, err
	}
	return flows.NetCashflow, nil
}

// Flows evaluates every cash flow at t in one pass.
func (d *CashflowDeriver) Flows(t int) (Cashflows, error) {
	claims, err := d.Claims(t)
	if err != nil {
		return Cashflows{}, err
	}
	premiums, err := d.Premiums(t)
	if err != nil {
		return Cashflows{}, err
	}
	expenses, err := d.Expenses(t)
	if err != nil {
		return Cashflows{}, err
	}

	return Cashflows{
		Claims:      claims,
		Premiums:    premiums,
		Expenses:    expenses,
		NetCashflow: premiums - claims - expenses,
	}, nil
}
