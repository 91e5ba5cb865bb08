package storage

import (
	"context"

	"hifi-market-lab/internal/domain"
)

// ListingStore provides access to listings storage.
type ListingStore interface {
	// Upsert inserts a listing or refreshes the existing row with the
	// same listing_id. Reports whether a new row was created.
	Upsert(ctx context.Context, l *domain.PersistedListing) (bool, error)

	// GetByID retrieves a listing by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, listingID string) (*domain.PersistedListing, error)

	// GetByURL retrieves every row sharing a listing URL (bundle
	// components persist as separate rows).
	GetByURL(ctx context.Context, url string) ([]*domain.PersistedListing, error)

	// GetBySource retrieves all listings of a source, ordered by first_seen_at ASC.
	GetBySource(ctx context.Context, source string) ([]*domain.PersistedListing, error)

	// GetRecent retrieves listings last seen at or after since.
	GetRecent(ctx context.Context, since int64) ([]*domain.PersistedListing, error)

	// GetActiveOlderThan retrieves available listings last seen before cutoff.
	GetActiveOlderThan(ctx context.Context, cutoff int64) ([]*domain.PersistedListing, error)

	// GetUnarchivedOlderThan retrieves unarchived listings of any
	// status last seen before cutoff, for the cold-storage sweep.
	GetUnarchivedOlderThan(ctx context.Context, cutoff int64) ([]*domain.PersistedListing, error)

	// SeenIndex returns url -> last_seen_at for one source, for
	// skip-unchanged decisions during ingest.
	SeenIndex(ctx context.Context, source string) (map[string]int64, error)

	// UpdateStatus sets a listing's status and bumps last_seen_at.
	// Returns ErrNotFound if not exists.
	UpdateStatus(ctx context.Context, listingID string, status domain.ListingStatus, seenAt int64) error

	// MarkArchived stamps archived_at. Returns ErrNotFound if not exists.
	MarkArchived(ctx context.Context, listingID string, archivedAt int64) error

	// Delete removes a listing row. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, listingID string) error
}

// CandidateStore provides access to component_candidates storage.
type CandidateStore interface {
	// Merge inserts a candidate or folds it into the existing row with
	// the same merge key: listing ids union, price range widens, counts
	// and last_seen_at advance. Reports whether a new row was created.
	Merge(ctx context.Context, c *domain.ComponentCandidate) (bool, error)

	// GetByKey retrieves a candidate by merge key. Returns ErrNotFound if not exists.
	GetByKey(ctx context.Context, key string) (*domain.ComponentCandidate, error)

	// GetPending retrieves candidates awaiting review, ordered by
	// listing_count DESC.
	GetPending(ctx context.Context) ([]*domain.ComponentCandidate, error)
}

// RunStore provides access to aggregation_runs storage. Runs are
// append-only history.
type RunStore interface {
	// Append adds a finished run. Returns ErrDuplicateKey if run_id exists.
	Append(ctx context.Context, r *domain.AggregationRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.AggregationRun, error)

	// GetLatest retrieves the most recently started run. Returns
	// ErrNotFound when no run has been recorded.
	GetLatest(ctx context.Context) (*domain.AggregationRun, error)
}

// RunLockStore serializes pipeline runs.
type RunLockStore interface {
	// Acquire takes the run lock for owner at acquiredAt. Returns
	// ErrLockHeld when another owner holds it, unless that hold is
	// older than the implementation's staleness window; a crashed run
	// must not block the pipeline forever.
	Acquire(ctx context.Context, owner string, acquiredAt int64) error

	// Release frees the lock held by owner. Releasing a lock you do not
	// hold returns ErrLockHeld.
	Release(ctx context.Context, owner string) error
}

// ArchiveStore is cold storage for listings leaving the retention
// window, plus the per-run price feed for downstream analytics.
type ArchiveStore interface {
	// Archive bulk-writes listings to cold storage.
	Archive(ctx context.Context, listings []*domain.PersistedListing) error

	// RecordPrices bulk-writes one run's price observations.
	RecordPrices(ctx context.Context, obs []*domain.PriceObservation) error
}

// CatalogStore provides access to the curated catalog.
type CatalogStore interface {
	// Upsert inserts or replaces a catalog entry.
	Upsert(ctx context.Context, e *domain.CatalogEntry) error

	// GetAll retrieves the full catalog, ordered by entry_id ASC.
	GetAll(ctx context.Context) ([]*domain.CatalogEntry, error)
}
