package mocks

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"

	"github.com/phrazzld/cohort-api/internal/domain"
	"github.com/phrazzld/cohort-api/internal/store"
)

// MockProjectionRunStore implements store.ProjectionRunStore for testing.
// Without function fields it behaves as an in-memory store.
type MockProjectionRunStore struct {
	CreateFn  func(ctx context.Context, run *domain.ProjectionRun) error
	GetByIDFn func(ctx context.Context, id uuid.UUID) (*domain.ProjectionRun, error)

	mu   sync.Mutex
	runs map[uuid.UUID]*domain.ProjectionRun
}

var _ store.ProjectionRunStore = (*MockProjectionRunStore)(nil)

// Create implements store.ProjectionRunStore.
func (m *MockProjectionRunStore) Create(ctx context.Context, run *domain.ProjectionRun) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, run)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runs == nil {
		m.runs = make(map[uuid.UUID]*domain.ProjectionRun)
	}
	if _, exists := m.runs[run.ID]; exists {
		return store.ErrRunExists
	}
	m.runs[run.ID] = run
	return nil
}

// GetByID implements store.ProjectionRunStore.
func (m *MockProjectionRunStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ProjectionRun, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, store.ErrRunNotFound
	}
	return run, nil
}

// WithTx implements store.ProjectionRunStore.
func (m *MockProjectionRunStore) WithTx(*sql.Tx) store.ProjectionRunStore {
	return m
}

// Count returns the number of stored runs.
func (m *MockProjectionRunStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}
