package memory

import (
	"context"
	"sync"

	"hifi-market-lab/internal/domain"
	"hifi-market-lab/internal/storage"
)

// ArchiveStore is an in-memory implementation of storage.ArchiveStore,
// used in tests and dry runs in place of ClickHouse.
type ArchiveStore struct {
	mu   sync.RWMutex
	rows []*domain.PersistedListing
	obs  []*domain.PriceObservation
}

// NewArchiveStore creates a new in-memory archive store.
func NewArchiveStore() *ArchiveStore {
	return &ArchiveStore{}
}

// Archive bulk-writes listings to the archive.
func (s *ArchiveStore) Archive(_ context.Context, listings []*domain.PersistedListing) error {
	for _, l := range listings {
		if l == nil || l.ListingID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range listings {
		s.rows = append(s.rows, cloneListing(l))
	}
	return nil
}

// RecordPrices bulk-writes one run's price observations.
func (s *ArchiveStore) RecordPrices(_ context.Context, obs []*domain.PriceObservation) error {
	for _, o := range obs {
		if o == nil || o.ComponentID == "" || o.ListingID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range obs {
		cp := *o
		s.obs = append(s.obs, &cp)
	}
	return nil
}

// Observations returns the recorded price observations in insertion order.
func (s *ArchiveStore) Observations() []*domain.PriceObservation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.PriceObservation, len(s.obs))
	for i, o := range s.obs {
		cp := *o
		out[i] = &cp
	}
	return out
}

// All returns the archived rows in insertion order.
func (s *ArchiveStore) All() []*domain.PersistedListing {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.PersistedListing, len(s.rows))
	for i, l := range s.rows {
		out[i] = cloneListing(l)
	}
	return out
}

// Verify interface compliance at compile time.
var _ storage.ArchiveStore = (*ArchiveStore)(nil)
