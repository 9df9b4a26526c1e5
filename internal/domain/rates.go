package domain

import (
	"fmt"
	"sort"
)

// Transition names a move out of the in-force state.
type Transition string

// Known transitions. Death and lapse are decrements read from rate tables;
// maturity is derived at the final period and has no table.
const (
	TransitionDeath    Transition = "death"
	TransitionLapse    Transition = "lapse"
	TransitionMaturity Transition = "maturity"
)

// RequiredTransitions lists the decrements every basis must supply.
var RequiredTransitions = []Transition{TransitionDeath, TransitionLapse}

// RateSource maps a time step to a transition probability. The second return
// value is false when the source has no entry for t.
type RateSource interface {
	Rate(t int) (float64, bool)
}

// RateTable is an in-memory rate table indexed by time step.
type RateTable map[int]float64

// Rate implements RateSource.
func (r RateTable) Rate(t int) (float64, bool) {
	q, ok := r[t]
	return q, ok
}

// Steps returns the time steps present in the table in ascending order.
func (r RateTable) Steps() []int {
	steps := make([]int, 0, len(r))
	for t := range r {
		steps = append(steps, t)
	}
	sort.Ints(steps)
	return steps
}

// Clone returns an independent copy of the table.
func (r RateTable) Clone() RateTable {
	c := make(RateTable, len(r))
	for t, q := range r {
		c[t] = q
	}
	return c
}

// Basis is the set of decrement tables used by one projection run.
type Basis map[Transition]RateSource

// Validate checks that every required transition has a table and that no
// table is registered under the derived maturity transition.
func (b Basis) Validate() error {
	for _, tr := range RequiredTransitions {
		if src, ok := b[tr]; !ok || src == nil {
			return NewInvalidConfigurationError(
				fmt.Sprintf("basis.%s", tr), "rate table is required")
		}
	}
	if _, ok := b[TransitionMaturity]; ok {
		return NewInvalidConfigurationError("basis.maturity", "is derived and cannot have a table")
	}
	for tr, src := range b {
		if tr == "" {
			return NewInvalidConfigurationError("basis", "transition name cannot be empty")
		}
		if src == nil {
			return NewInvalidConfigurationError(fmt.Sprintf("basis.%s", tr), "rate table is nil")
		}
	}
	return nil
}

// Decrements returns the basis transitions in projection order: death, lapse,
// then any other decrements sorted by name. The order is fixed so that
// every evaluation strategy sums decrements identically.
func (b Basis) Decrements() []Transition {
	order := make([]Transition, 0, len(b))
	for _, tr := range RequiredTransitions {
		if _, ok := b[tr]; ok {
			order = append(order, tr)
		}
	}
	extra := make([]string, 0, len(b))
	for tr := range b {
		if tr != TransitionDeath && tr != TransitionLapse {
			extra = append(extra, string(tr))
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		order = append(order, Transition(name))
	}
	return order
}

// ShiftedSource reads an underlying source offset steps later, so that
// Rate(s) == Source.Rate(s + Offset).
type ShiftedSource struct {
	Source RateSource
	Offset int
}

// Rate implements RateSource.
func (s ShiftedSource) Rate(t int) (float64, bool) {
	return s.Source.Rate(t + s.Offset)
}

// ScaledSource multiplies an underlying source by a constant margin.
type ScaledSource struct {
	Source RateSource
	Factor float64
}

// Rate implements RateSource.
func (s ScaledSource) Rate(t int) (float64, bool) {
	q, ok := s.Source.Rate(t)
	if !ok {
		return 0, false
	}
	return q * s.Factor, true
}
