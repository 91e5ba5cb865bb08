package postgres

import (
	"context"
	"fmt"

	"hifi-market-lab/internal/storage"
)

// lockName is the single advisory row all runs contend on.
const lockName = "pipeline"

// defaultStaleAfter is how old (seconds) a hold must be before another
// owner may reclaim it.
const defaultStaleAfter = 2 * 60 * 60

// RunLockStore implements storage.RunLockStore using PostgreSQL. The
// lock is a singleton row seeded by migrations; acquisition is a
// conditional update so two processes can never both hold it.
type RunLockStore struct {
	pool       *Pool
	staleAfter int64
}

// NewRunLockStore creates a new RunLockStore.
func NewRunLockStore(pool *Pool) *RunLockStore {
	return &RunLockStore{pool: pool, staleAfter: defaultStaleAfter}
}

// WithStaleAfter sets the staleness window in seconds.
func (s *RunLockStore) WithStaleAfter(seconds int64) *RunLockStore {
	if seconds > 0 {
		s.staleAfter = seconds
	}
	return s
}

// Compile-time interface check.
var _ storage.RunLockStore = (*RunLockStore)(nil)

// Acquire takes the run lock for owner. Re-acquiring by the same owner
// is idempotent; a hold older than the staleness window is reclaimed.
func (s *RunLockStore) Acquire(ctx context.Context, owner string, acquiredAt int64) error {
	if owner == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE run_lock
		SET holder = $2, acquired_at = $3
		WHERE lock_name = $1
		  AND (holder = '' OR holder = $2 OR acquired_at < $3 - $4)
	`

	tag, err := s.pool.Exec(ctx, query, lockName, owner, acquiredAt, s.staleAfter)
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrLockHeld
	}
	return nil
}

// Release frees the lock held by owner.
func (s *RunLockStore) Release(ctx context.Context, owner string) error {
	query := `
		UPDATE run_lock
		SET holder = '', acquired_at = 0
		WHERE lock_name = $1 AND holder = $2
	`

	tag, err := s.pool.Exec(ctx, query, lockName, owner)
	if err != nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrLockHeld
	}
	return nil
}
