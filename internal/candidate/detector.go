// Package candidate proposes catalog additions from listings that
// matched nothing. A detector extracts a (brand, model) pair with a
// quality score; a run-scoped ledger merges repeat sightings before
// they hit persistent storage.
package candidate

import (
	"strings"

	"hifi-market-lab/internal/domain"
	"hifi-market-lab/internal/idhash"
	"hifi-market-lab/internal/match"
	"hifi-market-lab/internal/normalize"
	"hifi-market-lab/internal/price"
)

// Model text length bounds after brand and vocabulary stripping.
const (
	minModelLen = 2
	maxModelLen = 50
)

// maxSegments before a listing is too cluttered to attribute one model.
const maxSegments = 2

// minBundleModelNumbers is how many model-number tokens, combined with
// a separator, mark a post as enumerating several items.
const minBundleModelNumbers = 3

// minTrustedRep is the seller reputation above which a sighting earns
// the reputation quality bonus.
const minTrustedRep = 5

// modelStopWords never survive into derived model text. Category and
// filler vocabulary, not product identity.
var modelStopWords = map[string]bool{
	"headphone": true, "headphones": true, "cans": true,
	"iem": true, "iems": true, "in-ear": true, "in-ears": true,
	"earphone": true, "earphones": true, "monitors": true,
	"dac": true, "dacs": true, "amp": true, "amps": true,
	"amplifier": true, "combo": true, "stack": true,
	"the": true, "my": true, "a": true, "an": true,
	"with": true, "and": true, "for": true, "sale": true,
	"pair": true, "set": true, "of": true,
	"new": true, "used": true, "mint": true,
}

// Detector extracts component candidates from unmatched listings.
type Detector struct {
	index *match.Index
}

// NewDetector creates a Detector over the shared catalog index.
func NewDetector(ix *match.Index) *Detector {
	return &Detector{index: ix}
}

// Detect derives a candidate from an unmatched listing, or returns nil
// with the rejection reason. Accessory posts, posts naming two or more
// brands, and cluttered multi-item posts are rejected: attributing one
// model string to them would be guesswork.
func (d *Detector) Detect(l domain.RawListing) (*domain.ComponentCandidate, string) {
	span := normalize.ForSaleSpan(l.Title, l.Body)
	source := span.Text
	if !span.Structured {
		source = l.Title
	}
	text := normalize.Clean(source)
	if text == "" {
		return nil, "empty after cleanup"
	}

	if reason, accessory := match.AccessoryOnly(text, d.index); accessory {
		return nil, reason
	}

	brands := d.index.Brands(text)
	switch {
	case len(brands) == 0:
		return nil, "no known brand"
	case len(brands) > 1:
		return nil, "multiple brands"
	}
	brand, _ := d.index.FindBrand(text)

	segments := normalize.Split(source)
	if len(segments) > maxSegments {
		return nil, "multi-item listing"
	}
	if len(segments) > 1 && match.ModelNumberCount(text) >= minBundleModelNumbers {
		return nil, "multi-item listing"
	}

	model := d.deriveModel(text, brand)
	if len(model) < minModelLen {
		return nil, "no usable model text"
	}
	if len(model) > maxModelLen {
		return nil, "model text too long"
	}

	full := l.Title
	if l.Body != "" {
		full = l.Title + "\n" + l.Body
	}
	p := price.Extract(full)

	var cat *domain.Category
	if c, ok := match.DetectCategory(full); ok {
		cat = &c
	}

	return &domain.ComponentCandidate{
		Brand:            brand,
		Model:            model,
		InferredCategory: cat,
		MinPriceUSD:      p,
		MaxPriceUSD:      p,
		ListingIDs:       []string{idhash.ListingID(l.Source, l.URL, "")},
		ListingCount:     1,
		QualityScore:     qualityScore(model, p != nil, cat != nil, l.SellerRep),
		Status:           domain.CandidatePending,
		FirstSeenAt:      l.PostedAt,
		LastSeenAt:       l.PostedAt,
	}, ""
}

// deriveModel strips the brand and stop vocabulary from cleaned span
// text; what remains is the model designation.
func (d *Detector) deriveModel(text, brand string) string {
	stripped := d.index.RemoveBrand(text, brand)
	kept := make([]string, 0, 4)
	for _, w := range strings.Fields(stripped) {
		if modelStopWords[strings.ToLower(strings.Trim(w, ",.;:!?()[]"))] {
			continue
		}
		kept = append(kept, w)
	}
	return strings.TrimSpace(strings.Join(kept, " "))
}

// qualityScore grades a sighting 0-100 on how much corroborating signal
// it carries beyond the bare brand+model pair.
func qualityScore(model string, hasPrice, hasCategory bool, sellerRep *int) int {
	score := 40
	if hasPrice {
		score += 20
	}
	if hasCategory {
		score += 15
	}
	if strings.ContainsAny(model, "0123456789") {
		score += 15
	}
	if sellerRep != nil && *sellerRep >= minTrustedRep {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	return score
}
