package domain

// ListingStatus is the lifecycle state of a persisted listing.
type ListingStatus string

const (
	StatusAvailable ListingStatus = "available"
	StatusSold      ListingStatus = "sold"
	StatusExpired   ListingStatus = "expired"
)

// ValidationAction is the aggregate outcome of post-match validation.
type ValidationAction string

const (
	ActionAccept ValidationAction = "accept"
	ActionFlag   ValidationAction = "flag"
	ActionReject ValidationAction = "reject"
)

// RawListing is one scraped marketplace post, immutable input produced
// by a source adapter. A post may describe one or more items.
type RawListing struct {
	Source      string            // adapter name, e.g. "avexchange"
	URL         string            // unique within a source (adapter contract)
	Title       string
	Body        string
	Seller      string
	SellerRep   *int              // seller reputation/trade count if the source exposes it
	PostedAt    int64             // Unix timestamp in seconds
	PriceHint   *int              // source-supplied price field, if any
	SoldSignal  bool              // source marked the post sold/closed
	RawMetadata map[string]string // adapter extension point, never interpreted here
}

// PersistedListing is one row per (listing, matched component).
// Idempotency key is (url, component_id); component_id is empty for
// unresolved candidate rows.
// Corresponds to listings table in PostgreSQL.
type PersistedListing struct {
	ListingID   string  // PRIMARY KEY, deterministic hash of (source, url, component_id)
	Source      string
	URL         string
	Title       string
	ComponentID *string // catalog entry id; nil while the item is only a candidate
	PriceUSD    *int    // nil for unresolved bundle legs
	Condition   string
	Seller      string
	SellerRep   *int

	// Bundle linkage. Single-item listings have BundleSize 1 and no group.
	BundleGroupID  *string
	BundlePosition int // 1-based within the group
	BundleSize     int
	BundleTotalUSD *int

	MatchScore      float64
	MatchAmbiguous  bool
	Status          ListingStatus
	ValidationFlags []string
	Action          ValidationAction

	PostedAt    int64
	FirstSeenAt int64
	LastSeenAt  int64
	ArchivedAt  *int64 // soft-delete marker set by the archival sweep
}

// InBundle reports whether the row belongs to a multi-item group.
func (l *PersistedListing) InBundle() bool {
	return l.BundleGroupID != nil && l.BundleSize > 1
}
