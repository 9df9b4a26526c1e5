//go:build test_without_external_deps

package service_test

import (
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/cohort-api/internal/domain"
)

// newMockDB returns a sqlmock-backed *sql.DB and asserts at cleanup that
// every expectation was met.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

// concreteTables is the two-period basis whose hand-computed projection is
// checked throughout the tests.
func concreteTables() map[domain.Transition]domain.RateTable {
	return map[domain.Transition]domain.RateTable{
		domain.TransitionDeath: {0: 0.001, 1: 0.002},
		domain.TransitionLapse: {0: 0.05, 1: 0.07},
	}
}

func concretePolicy() domain.Policy {
	return domain.Policy{Premium: 100, SumAssured: 25000, Term: 2, StartAge: 40}
}

type runRecord struct {
	Mode   string
	Status string
	Term   int
}

// fakeRecorder implements metrics.Recorder and keeps every call.
type fakeRecorder struct {
	mu           sync.Mutex
	runs         []runRecord
	cacheHits    int
	cacheEntries int
	capital      []int
	requests     int
}

func (r *fakeRecorder) RecordRun(mode, status string, term int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, runRecord{Mode: mode, Status: status, Term: term})
}

func (r *fakeRecorder) RecordCache(hits, entries int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cacheHits += hits
	r.cacheEntries += entries
}

func (r *fakeRecorder) RecordCapital(term int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capital = append(r.capital, term)
}

func (r *fakeRecorder) RecordHTTPRequest(string, string, int, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests++
}

func (r *fakeRecorder) lastRun() runRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.runs) == 0 {
		return runRecord{}
	}
	return r.runs[len(r.runs)-1]
}
