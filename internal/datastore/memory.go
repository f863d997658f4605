package datastore

import (
	"context"
	"slices"
	"sync"

	"pears-cleaning/internal/store"
)

type memoryStore struct {
	mu        sync.RWMutex
	runs      []store.Run
	summaries map[string][]store.SummaryRow
	failures  map[string][]store.DeliveryFailure
}

// NewMemoryStore returns an empty in-memory ledger.
func NewMemoryStore() DataStore {
	return &memoryStore{
		summaries: make(map[string][]store.SummaryRow),
		failures:  make(map[string][]store.DeliveryFailure),
	}
}

func (m *memoryStore) Close() error { return nil }
func (m *memoryStore) InitDB(ctx context.Context) error { return nil }

func (m *memoryStore) CreateRun(ctx context.Context, run store.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *memoryStore) FinishRun(ctx context.Context, run store.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.runs {
		if m.runs[i].RunID == run.RunID {
			run.Kind, run.Period, run.StartedAt = m.runs[i].Kind, m.runs[i].Period, m.runs[i].StartedAt
			m.runs[i] = run
			return nil
		}
	}
	return &store.RunNotFoundError{RunID: run.RunID}
}

func (m *memoryStore) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	runs := slices.Clone(m.runs)
	slices.SortStableFunc(runs, func(a, b store.Run) int { return b.StartedAt.Compare(a.StartedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (m *memoryStore) RecordSummary(ctx context.Context, runID string, rows []store.SummaryRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range rows {
		r.RunID, r.Position = runID, i
		m.summaries[runID] = append(m.summaries[runID], r)
	}
	return nil
}

func (m *memoryStore) RecordFailures(ctx context.Context, runID string, failures []store.DeliveryFailure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range failures {
		f.RunID, f.Position = runID, len(m.failures[runID])
		m.failures[runID] = append(m.failures[runID], f)
	}
	return nil
}

func (m *memoryStore) GetRunSummary(ctx context.Context, runID string) ([]store.SummaryRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.summaries[runID]), nil
}

func (m *memoryStore) GetRunFailures(ctx context.Context, runID string) ([]store.DeliveryFailure, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.failures[runID]), nil
}
