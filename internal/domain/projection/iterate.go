package projection

import (
	"fmt"

	"github.com/phrazzld/cohort-api/internal/domain"
)

// States holds a projection evaluated bottom-up into fixed-size arrays.
type States struct {
	term       int
	decrements []domain.Transition
	occupancy  []float64
	counts     map[domain.Transition][]float64
	maturities []float64
}

var _ StateReader = (*States)(nil)

// Iterate evaluates the same relations as Engine by filling arrays from t=0
// to T. Each period subtracts the decrement counts in the same order as the
// recursion, so the results are bit-identical to the memoized engine while
// using constant stack depth.
func Iterate(policy domain.Policy, basis domain.Basis, params *Params) (*States, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if err := basis.Validate(); err != nil {
		return nil, err
	}
	if params == nil {
		params = NewDefaultParams()
	}

	term := policy.Term
	decrements := basis.Decrements()
	s := &States{
		term:       term,
		decrements: decrements,
		occupancy:  make([]float64, term+1),
		counts:     make(map[domain.Transition][]float64, len(decrements)),
		maturities: make([]float64, term+1),
	}
	for _, tr := range decrements {
		s.counts[tr] = make([]float64, term+1)
	}

	s.occupancy[0] = 1
	for t := 0; t < term; t++ {
		rates, err := loadRates(basis, decrements, t, params)
		if err != nil {
			return nil, err
		}

		occ := s.occupancy[t]
		next := occ
		for i, tr := range decrements {
			count := occ * rates[i]
			s.counts[tr][t] = count
			next -= count
		}

		if t+1 < term {
			s.occupancy[t+1], err = checkOccupancy("occupancy", t+1, next, params)
		} else {
			s.maturities[t], err = checkOccupancy("maturities", t, next, params)
		}
		if err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Term returns the projection term T.
func (s *States) Term() int {
	return s.term
}

// Occupancy implements StateReader.
func (s *States) Occupancy(t int) (float64, error) {
	if t < 0 {
		return 0, errNegativeStep(t)
	}
	if t > s.term {
		return 0, nil
	}
	return s.occupancy[t], nil
}

// TransitionCount implements StateReader.
func (s *States) TransitionCount(tr domain.Transition, t int) (float64, error) {
	if t < 0 {
		return 0, errNegativeStep(t)
	}
	var column []float64
	if tr == domain.TransitionMaturity {
		column = s.maturities
	} else {
		c, ok := s.counts[tr]
		if !ok {
			return 0, fmt.Errorf("%w: %s", domain.ErrUnknownTransition, tr)
		}
		column = c
	}
	if t > s.term {
		return 0, nil
	}
	return column[t], nil
}
