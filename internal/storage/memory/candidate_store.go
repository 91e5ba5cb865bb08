package memory

import (
	"context"
	"sort"
	"sync"

	"hifi-market-lab/internal/domain"
	"hifi-market-lab/internal/storage"
)

// CandidateStore is an in-memory implementation of storage.CandidateStore.
type CandidateStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ComponentCandidate // keyed by merge key
}

// NewCandidateStore creates a new in-memory candidate store.
func NewCandidateStore() *CandidateStore {
	return &CandidateStore{
		data: make(map[string]*domain.ComponentCandidate),
	}
}

// Merge inserts a candidate or folds it into the existing row with the
// same merge key.
func (s *CandidateStore) Merge(_ context.Context, c *domain.ComponentCandidate) (bool, error) {
	if c == nil || c.Brand == "" || c.Model == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := c.MergeKey()
	if existing, ok := s.data[key]; ok {
		existing.MergeFrom(c)
		return false, nil
	}
	s.data[key] = cloneCandidate(c)
	return true, nil
}

// GetByKey retrieves a candidate by merge key. Returns ErrNotFound if not exists.
func (s *CandidateStore) GetByKey(_ context.Context, key string) (*domain.ComponentCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneCandidate(c), nil
}

// GetPending retrieves candidates awaiting review, ordered by
// listing_count DESC, merge key ASC for equal counts.
func (s *CandidateStore) GetPending(_ context.Context) ([]*domain.ComponentCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ComponentCandidate
	for _, c := range s.data {
		if c.Status == domain.CandidatePending {
			result = append(result, cloneCandidate(c))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ListingCount != result[j].ListingCount {
			return result[i].ListingCount > result[j].ListingCount
		}
		return result[i].MergeKey() < result[j].MergeKey()
	})

	return result, nil
}

func cloneCandidate(c *domain.ComponentCandidate) *domain.ComponentCandidate {
	cp := *c
	cp.ListingIDs = append([]string(nil), c.ListingIDs...)
	cp.MinPriceUSD = cloneInt(c.MinPriceUSD)
	cp.MaxPriceUSD = cloneInt(c.MaxPriceUSD)
	if c.InferredCategory != nil {
		v := *c.InferredCategory
		cp.InferredCategory = &v
	}
	return &cp
}

// Verify interface compliance at compile time.
var _ storage.CandidateStore = (*CandidateStore)(nil)
