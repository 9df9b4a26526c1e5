package mocks

import (
	"context"
	"database/sql"
	"sync"

	"github.com/phrazzld/cohort-api/internal/domain"
	"github.com/phrazzld/cohort-api/internal/store"
)

// UpsertCall records one UpsertTable invocation.
type UpsertCall struct {
	Basis      string
	Transition domain.Transition
	Table      domain.RateTable
}

// MockRateTableStore implements store.RateTableStore for testing.
type MockRateTableStore struct {
	UpsertTableFn func(ctx context.Context, basis string, tr domain.Transition, table domain.RateTable) error
	GetBasisFn    func(ctx context.Context, basis string) (map[domain.Transition]domain.RateTable, error)
	ListBasesFn   func(ctx context.Context) ([]string, error)

	// Default return values
	Tables       map[domain.Transition]domain.RateTable
	Bases        []string
	DefaultError error

	mu      sync.Mutex
	upserts []UpsertCall
	txCalls int
}

var _ store.RateTableStore = (*MockRateTableStore)(nil)

// UpsertTable implements store.RateTableStore.
func (m *MockRateTableStore) UpsertTable(
	ctx context.Context,
	basis string,
	tr domain.Transition,
	table domain.RateTable,
) error {
	m.mu.Lock()
	m.upserts = append(m.upserts, UpsertCall{Basis: basis, Transition: tr, Table: table})
	m.mu.Unlock()

	if m.UpsertTableFn != nil {
		return m.UpsertTableFn(ctx, basis, tr, table)
	}
	return m.DefaultError
}

// GetBasis implements store.RateTableStore.
func (m *MockRateTableStore) GetBasis(ctx context.Context, basis string) (map[domain.Transition]domain.RateTable, error) {
	if m.GetBasisFn != nil {
		return m.GetBasisFn(ctx, basis)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	return m.Tables, nil
}

// ListBases implements store.RateTableStore.
func (m *MockRateTableStore) ListBases(ctx context.Context) ([]string, error) {
	if m.ListBasesFn != nil {
		return m.ListBasesFn(ctx)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	return m.Bases, nil
}

// WithTx implements store.RateTableStore. The mock is returned unchanged
// so calls made inside a transaction are recorded on the same instance.
func (m *MockRateTableStore) WithTx(*sql.Tx) store.RateTableStore {
	m.mu.Lock()
	m.txCalls++
	m.mu.Unlock()
	return m
}

// Upserts returns the recorded UpsertTable calls in order.
func (m *MockRateTableStore) Upserts() []UpsertCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]UpsertCall(nil), m.upserts...)
}

// TxCalls returns how many times WithTx was called.
func (m *MockRateTableStore) TxCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txCalls
}
