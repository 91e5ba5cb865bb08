package memory

import (
	"context"
	"sync"

	"hifi-market-lab/internal/storage"
)

// defaultStaleAfter is how old (seconds) a hold must be before another
// owner may reclaim it.
const defaultStaleAfter = 2 * 60 * 60

// RunLockStore is an in-memory implementation of storage.RunLockStore.
// One process, one lock; re-acquiring by the same owner is idempotent.
type RunLockStore struct {
	mu         sync.Mutex
	holder     string
	acquiredAt int64
	staleAfter int64
}

// NewRunLockStore creates a new in-memory run lock store.
func NewRunLockStore() *RunLockStore {
	return &RunLockStore{staleAfter: defaultStaleAfter}
}

// WithStaleAfter sets the staleness window in seconds.
func (s *RunLockStore) WithStaleAfter(seconds int64) *RunLockStore {
	if seconds > 0 {
		s.staleAfter = seconds
	}
	return s
}

// Acquire takes the run lock for owner. A hold older than the
// staleness window is reclaimed.
func (s *RunLockStore) Acquire(_ context.Context, owner string, acquiredAt int64) error {
	if owner == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	held := s.holder != "" && s.holder != owner
	if held && acquiredAt-s.acquiredAt < s.staleAfter {
		return storage.ErrLockHeld
	}
	s.holder = owner
	s.acquiredAt = acquiredAt
	return nil
}

// Release frees the lock held by owner.
func (s *RunLockStore) Release(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.holder != owner {
		return storage.ErrLockHeld
	}
	s.holder = ""
	s.acquiredAt = 0
	return nil
}

// Verify interface compliance at compile time.
var _ storage.RunLockStore = (*RunLockStore)(nil)
