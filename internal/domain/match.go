package domain

// MatchOutcome tags a MatchResult so rejection cannot be silently
// ignored by callers.
type MatchOutcome string

const (
	MatchAccepted  MatchOutcome = "accepted"
	MatchAmbiguous MatchOutcome = "ambiguous"
	MatchRejected  MatchOutcome = "rejected"
)

// ScoreBreakdown records the per-term contributions behind a match score.
type ScoreBreakdown struct {
	BrandTerm    float64 // [0,1] before weighting
	NameTerm     float64
	CategoryTerm float64
	PositionAdj  float64 // additive, may be negative
	GenericPen   float64 // subtractive, reported as a positive magnitude
	ExclusivePen float64
}

// RunnerUp is the second-best catalog entry for an ambiguous match.
type RunnerUp struct {
	EntryID string
	Score   float64
}

// MatchCandidate is an ephemeral scored pairing of a text segment and a
// catalog entry. Never persisted standalone.
type MatchCandidate struct {
	Entry     *CatalogEntry
	Score     float64 // in [0,1]
	Breakdown ScoreBreakdown
	Ambiguous bool
	RunnerUp  *RunnerUp // set iff Ambiguous
}

// MatchResult is the tagged outcome of scoring one segment against the
// catalog. Candidate is set for accepted and ambiguous outcomes; an
// ambiguous result still carries the best guess.
type MatchResult struct {
	Outcome   MatchOutcome
	Candidate *MatchCandidate
	Reason    string // populated for rejections
}

// BundleSegment is a substring of listing text plus its match, if any.
type BundleSegment struct {
	Text     string
	Position int // 1-based position within the bundle
	Quantity int
	Match    *MatchCandidate // nil when the segment matched nothing
	PriceUSD *int            // per-item price when independently extractable
}
