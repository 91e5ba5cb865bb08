package reporting

import "time"

// Report is the rendered view of one aggregation run plus the current
// state of the recent market window.
type Report struct {
	GeneratedAt time.Time

	// Run summary, zero-valued when no run has been recorded yet.
	Run RunSummary

	// Per-source ingest counters for that run.
	Sources []SourceRow

	// Market overview rows, one per catalog component with recent
	// listings, sorted by component id.
	Market []MarketRow

	// Listings the validator flagged or rejected in the recent window.
	Flagged []FlaggedRow

	// Catalog candidates awaiting curation, most-sighted first.
	PendingCandidates []CandidateRow
}

// RunSummary condenses one aggregation run.
type RunSummary struct {
	RunID             string
	StartedAt         int64
	FinishedAt        int64
	DryRun            bool
	Final             string
	TotalFetched      int
	DuplicatesRemoved int
	Expired           int
	Archived          int
	Errors            []string
}

// SourceRow is one source's counters within a run.
type SourceRow struct {
	Source      string
	Fetched     int
	Skipped     int
	Matched     int
	Bundles     int
	Candidates  int
	Rejected    int
	SoldUpdates int
	Errors      int
	Failed      bool
}

// MarketRow aggregates the recent listings of one catalog component.
type MarketRow struct {
	ComponentID    string
	Brand          string
	Name           string
	Category       string
	Listings       int // rows in the window, any status
	Available      int
	Ambiguous      int
	MinPriceUSD    int // zero when no row carries a price
	MedianPriceUSD int
	MaxPriceUSD    int
}

// FlaggedRow is one listing the validator did not accept outright.
type FlaggedRow struct {
	ListingID string
	Source    string
	Title     string
	PriceUSD  *int
	Action    string
	Flags     []string
}

// CandidateRow is one pending catalog candidate.
type CandidateRow struct {
	Brand        string
	Model        string
	Category     string // empty when not inferred
	Listings     int
	MinPriceUSD  *int
	MaxPriceUSD  *int
	QualityScore int
}
