package domain

// RunState is the terminal state of an aggregation run.
type RunState string

const (
	RunDone   RunState = "done"
	RunFailed RunState = "failed"
)

// MaxRunErrors bounds the recent-error list kept on a run record.
const MaxRunErrors = 50

// SourceStat holds per-source counters for one aggregation run.
type SourceStat struct {
	Source      string
	Fetched     int
	Skipped     int // already-seen (source, url) pairs
	Matched     int
	Bundles     int
	Candidates  int
	Rejected    int
	SoldUpdates int
	Errors      int
	Failed      bool // the whole source phase errored out
}

// AggregationRun is the append-only log record for one orchestration
// pass. Partial stats are preserved when a run fails.
// Corresponds to aggregation_runs table in PostgreSQL.
type AggregationRun struct {
	RunID             string // uuid
	StartedAt         int64  // Unix timestamp in seconds
	FinishedAt        int64
	DryRun            bool
	SourceStats       []SourceStat
	DuplicatesRemoved int
	Expired           int
	Archived          int
	Errors            []string // bounded by MaxRunErrors
	Final             RunState
}

// AddError appends an error message, keeping the list bounded.
func (r *AggregationRun) AddError(msg string) {
	if len(r.Errors) >= MaxRunErrors {
		return
	}
	r.Errors = append(r.Errors, msg)
}

// TotalFetched sums the fetched counter across sources.
func (r *AggregationRun) TotalFetched() int {
	total := 0
	for _, s := range r.SourceStats {
		total += s.Fetched
	}
	return total
}
