package domain

import "strings"

// CandidateStatus is the curation state of an unseen-product candidate.
type CandidateStatus string

const (
	CandidatePending  CandidateStatus = "pending"
	CandidateApproved CandidateStatus = "approved"
	CandidateRejected CandidateStatus = "rejected"
)

// ComponentCandidate is a heuristically extracted brand/model not yet in
// the catalog. Repeat sightings of the same (brand, model) merge into one
// row rather than duplicating.
// Corresponds to component_candidates table in PostgreSQL.
type ComponentCandidate struct {
	Brand            string
	Model            string
	InferredCategory *Category
	MinPriceUSD      *int // observed price range across sightings
	MaxPriceUSD      *int
	ListingIDs       []string // contributing listing ids
	ListingCount     int
	QualityScore     int // 0-100
	Status           CandidateStatus
	FirstSeenAt      int64
	LastSeenAt       int64
}

// MergeKey is the unique key candidates merge on: lowercased (brand, model).
func (c *ComponentCandidate) MergeKey() string {
	return strings.ToLower(c.Brand) + "|" + strings.ToLower(c.Model)
}

// MergeFrom folds another sighting of the same merge key into c: listing
// ids union, price range widens, quality keeps the best score, category
// fills in if still unknown, and the seen window stretches both ways.
func (c *ComponentCandidate) MergeFrom(o *ComponentCandidate) {
	seen := make(map[string]bool, len(c.ListingIDs))
	for _, id := range c.ListingIDs {
		seen[id] = true
	}
	for _, id := range o.ListingIDs {
		if !seen[id] {
			seen[id] = true
			c.ListingIDs = append(c.ListingIDs, id)
		}
	}
	c.ListingCount = len(c.ListingIDs)

	if o.MinPriceUSD != nil && (c.MinPriceUSD == nil || *o.MinPriceUSD < *c.MinPriceUSD) {
		v := *o.MinPriceUSD
		c.MinPriceUSD = &v
	}
	if o.MaxPriceUSD != nil && (c.MaxPriceUSD == nil || *o.MaxPriceUSD > *c.MaxPriceUSD) {
		v := *o.MaxPriceUSD
		c.MaxPriceUSD = &v
	}
	if o.QualityScore > c.QualityScore {
		c.QualityScore = o.QualityScore
	}
	if c.InferredCategory == nil && o.InferredCategory != nil {
		v := *o.InferredCategory
		c.InferredCategory = &v
	}
	if o.FirstSeenAt != 0 && (c.FirstSeenAt == 0 || o.FirstSeenAt < c.FirstSeenAt) {
		c.FirstSeenAt = o.FirstSeenAt
	}
	if o.LastSeenAt > c.LastSeenAt {
		c.LastSeenAt = o.LastSeenAt
	}
}
