package projection

import (
	"fmt"

	"github.com/phrazzld/cohort-api/internal/domain"
)

// StateReader exposes occupancy and transition counts for t in [0, Term].
// It is implemented by Engine, States and Table so that cash flows can be
// derived from any of them.
type StateReader interface {
	Term() int
	Occupancy(t int) (float64, error)
	TransitionCount(tr domain.Transition, t int) (float64, error)
}

type funcTag uint8

const (
	tagOccupancy funcTag = iota
	tagTransition
)

// cacheKey identifies one memoized evaluation. The cache that holds it is
// owned by a single Engine, so the key never needs the policy or basis.
type cacheKey struct {
	fn funcTag
	tr domain.Transition
	t  int
}

// CacheStats is a snapshot of an engine's memo cache.
type CacheStats struct {
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
	Entries int `json:"entries"`
}

// Engine is the recursive state projection engine for one policy and basis.
//
// Occupancy and TransitionCount are mutually recursive: occupancy at t needs
// every transition count at t-1, and a transition count at t needs occupancy
// at t. Without memoization occupancy(t) is reachable along exponentially
// many paths; the engine caches each (function, transition, t) evaluation the
// first time it is computed and serves every later request from the cache.
//
// An Engine is not safe for concurrent use. Independent runs each construct
// their own Engine and share nothing.
type Engine struct {
	policy     domain.Policy
	basis      domain.Basis
	decrements []domain.Transition
	params     *Params

	cache  map[cacheKey]float64
	rates  map[int][]float64
	hits   int
	misses int
}

var _ StateReader = (*Engine)(nil)

// NewEngine validates the policy and basis and returns an engine with an
// empty cache. If params is nil the default parameters are used.
func NewEngine(policy domain.Policy, basis domain.Basis, params *Params) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if err := basis.Validate(); err != nil {
		return nil, err
	}
	if params == nil {
		params = NewDefaultParams()
	}

	return &Engine{
		policy:     policy,
		basis:      basis,
		decrements: basis.Decrements(),
		params:     params,
		cache:      make(map[cacheKey]float64),
		rates:      make(map[int][]float64),
	}, nil
}

// Term returns the projection term T.
func (e *Engine) Term() int {
	return e.policy.Term
}

// Decrements returns the decrement transitions in evaluation order.
func (e *Engine) Decrements() []domain.Transition {
	out := make([]domain.Transition, len(e.decrements))
	copy(out, e.decrements)
	return out
}

// CacheStats returns the current hit, miss and entry counts.
func (e *Engine) CacheStats() CacheStats {
	return CacheStats{Hits: e.hits, Misses: e.misses, Entries: len(e.cache)}
}

// Occupancy returns the expected number of policies in force at the start
// of period t.
//
// Boundary conditions:
//   - Occupancy(0) = 1
//   - Occupancy(t) = 0 for t >= T
//
// Recursive relation for 0 < t < T:
//
//	Occupancy(t) = Occupancy(t-1) - Σ TransitionCount(tr, t-1)
//
// with the sum taken over the decrements in fixed order.
func (e *Engine) Occupancy(t int) (float64, error) {
	if t < 0 {
		return 0, errNegativeStep(t)
	}
	if t >= e.policy.Term {
		return 0, nil
	}
	if t == 0 {
		return 1, nil
	}

	key := cacheKey{fn: tagOccupancy, t: t}
	if v, ok := e.lookup(key); ok {
		return v, nil
	}

	occ, err := e.Occupancy(t - 1)
	if err != nil {
		return 0, err
	}
	for _, tr := range e.decrements {
		count, err := e.TransitionCount(tr, t-1)
		if err != nil {
			return 0, err
		}
		occ -= count
	}

	occ, err = checkOccupancy("occupancy", t, occ, e.params)
	if err != nil {
		return 0, err
	}

	e.store(key, occ)
	return occ, nil
}

// TransitionCount returns the expected number of policies making transition
// tr during period t.
//
// For a decrement: TransitionCount(tr, t) = Occupancy(t) * rate_tr(t) for
// t < T, and 0 otherwise.
//
// Maturity is derived rather than tabulated: every policy still in force at
// the end of the final period matures, so
//
//	TransitionCount(maturity, T-1) = Occupancy(T-1) - Σ TransitionCount(tr, T-1)
//
// and it is 0 at every other t. This keeps population conservation exact at
// the last period, where the Occupancy(T) = 0 boundary applies.
func (e *Engine) TransitionCount(tr domain.Transition, t int) (float64, error) {
	if t < 0 {
		return 0, errNegativeStep(t)
	}
	if tr == domain.TransitionMaturity {
		return e.maturities(t)
	}

	idx := e.decrementIndex(tr)
	if idx < 0 {
		return 0, fmt.Errorf("%w: %s", domain.ErrUnknownTransition, tr)
	}
	if t >= e.policy.Term {
		return 0, nil
	}

	key := cacheKey{fn: tagTransition, tr: tr, t: t}
	if v, ok := e.lookup(key); ok {
		return v, nil
	}

	rates, err := e.ratesAt(t)
	if err != nil {
		return 0, err
	}
	occ, err := e.Occupancy(t)
	if err != nil {
		return 0, err
	}

	count := occ * rates[idx]
	e.store(key, count)
	return count, nil
}

func (e *Engine) maturities(t int) (float64, error) {
	last := e.policy.Term - 1
	if t != last {
		return 0, nil
	}

	key := cacheKey{fn: tagTransition, tr: domain.TransitionMaturity, t: t}
	if v, ok := e.lookup(key); ok {
		return v, nil
	}

	remaining, err := e.Occupancy(last)
	if err != nil {
		return 0, err
	}
	for _, tr := range e.decrements {
		count, err := e.TransitionCount(tr, last)
		if err != nil {
			return 0, err
		}
		remaining -= count
	}

	remaining, err = checkOccupancy("maturities", last, remaining, e.params)
	if err != nil {
		return 0, err
	}

	e.store(key, remaining)
	return remaining, nil
}

// ratesAt returns the validated decrement rates at t, reading the tables at
// most once per time step.
func (e *Engine) ratesAt(t int) ([]float64, error) {
	if rates, ok := e.rates[t]; ok {
		return rates, nil
	}
	rates, err := loadRates(e.basis, e.decrements, t, e.params)
	if err != nil {
		return nil, err
	}
	e.rates[t] = rates
	return rates, nil
}

func (e *Engine) decrementIndex(tr domain.Transition) int {
	for i, d := range e.decrements {
		if d == tr {
			return i
		}
	}
	return -1
}

func (e *Engine) lookup(key cacheKey) (float64, bool) {
	v, ok := e.cache[key]
	if ok {
		e.hits++
	}
	return v, ok
}

func (e *Engine) store(key cacheKey, v float64) {
	e.misses++
	e.cache[key] = v
}

func errNegativeStep(t int) error {
	return &domain.InvalidDomainError{
		Quantity: "time step", T: t, Value: float64(t), Reason: "must not be negative",
	}
}
