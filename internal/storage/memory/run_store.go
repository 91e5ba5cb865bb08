package memory

import (
	"context"
	"sync"

	"hifi-market-lab/internal/domain"
	"hifi-market-lab/internal/storage"
)

// RunStore is an in-memory implementation of storage.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.AggregationRun // keyed by run_id
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		data: make(map[string]*domain.AggregationRun),
	}
}

// Append adds a finished run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Append(_ context.Context, r *domain.AggregationRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[r.RunID] = cloneRun(r)
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(_ context.Context, runID string) (*domain.AggregationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[runID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneRun(r), nil
}

// GetLatest retrieves the most recently started run.
func (s *RunStore) GetLatest(_ context.Context) (*domain.AggregationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.AggregationRun
	for _, r := range s.data {
		if latest == nil || r.StartedAt > latest.StartedAt ||
			(r.StartedAt == latest.StartedAt && r.RunID > latest.RunID) {
			latest = r
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	return cloneRun(latest), nil
}

func cloneRun(r *domain.AggregationRun) *domain.AggregationRun {
	cp := *r
	cp.SourceStats = append([]domain.SourceStat(nil), r.SourceStats...)
	cp.Errors = append([]string(nil), r.Errors...)
	return &cp
}

// Verify interface compliance at compile time.
var _ storage.RunStore = (*RunStore)(nil)
