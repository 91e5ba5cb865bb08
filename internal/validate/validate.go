// Package validate sanity-checks matched listings against their catalog
// entry. Implausible prices and category conflicts reject the row;
// merely suspicious prices flag it for review.
package validate

import (
	"fmt"

	"hifi-market-lab/internal/domain"
	"hifi-market-lab/internal/match"
)

// Thresholds are the price-plausibility ratios relative to the entry's
// reference new price.
type Thresholds struct {
	RejectRatio float64 // above this multiple, reject
	HighRatio   float64 // above this multiple, flag as overpriced
	LowRatio    float64 // below this share, flag as accessory/damage
}

// DefaultThresholds returns the tuned defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RejectRatio: 3.0,
		HighRatio:   1.5,
		LowRatio:    0.2,
	}
}

// Severity of a validation verdict.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Result is the verdict for one listing.
type Result struct {
	Action   domain.ValidationAction
	Severity string // empty for accept
	Flags    []string
	Reason   string // set when the action is reject
}

// Valid reports whether the listing stays in circulation.
func (r Result) Valid() bool {
	return r.Action != domain.ActionReject
}

// Validator runs the check battery.
type Validator struct {
	thresholds Thresholds
}

// NewValidator creates a Validator.
func NewValidator(t Thresholds) *Validator {
	return &Validator{thresholds: t}
}

// Validate checks one matched listing against its catalog entry. A nil
// entry (candidate rows) accepts outright; a reject from any check wins
// over flags from the others.
func (v *Validator) Validate(l *domain.PersistedListing, entry *domain.CatalogEntry) Result {
	res := Result{Action: domain.ActionAccept}

	if entry != nil {
		v.checkPrice(l, entry, &res)
		v.checkCategory(l, entry, &res)
	}

	if res.Action == domain.ActionAccept && len(res.Flags) > 0 {
		res.Action = domain.ActionFlag
	}
	switch res.Action {
	case domain.ActionReject:
		res.Severity = SeverityError
	case domain.ActionFlag:
		res.Severity = SeverityWarning
	}
	return res
}

// checkPrice compares the asking price to the entry's reference new
// price. Unresolved bundle legs carry no price and are skipped, as are
// entries without a reference price.
func (v *Validator) checkPrice(l *domain.PersistedListing, entry *domain.CatalogEntry, res *Result) {
	if l.PriceUSD == nil {
		return
	}
	ref := entry.PriceNewUSD
	if ref == nil || *ref <= 0 {
		return
	}

	ratio := float64(*l.PriceUSD) / float64(*ref)
	switch {
	case ratio > v.thresholds.RejectRatio:
		addFlag(res, "price_excessive")
		reject(res, fmt.Sprintf("price %d exceeds %.1fx reference %d", *l.PriceUSD, v.thresholds.RejectRatio, *ref))
	case ratio > v.thresholds.HighRatio:
		addFlag(res, "price_high")
	case ratio < v.thresholds.LowRatio:
		addFlag(res, "price_low")
	}
}

// checkCategory rejects listings whose own text places them in a
// different equipment category than the matched entry.
func (v *Validator) checkCategory(l *domain.PersistedListing, entry *domain.CatalogEntry, res *Result) {
	cats := match.CategoriesIn(l.Title)
	if len(cats) == 0 {
		return
	}
	for _, c := range cats {
		if c == entry.Category {
			return
		}
	}
	// dac/amp combos legitimately carry dac and amp vocabulary.
	if entry.Category == domain.CategoryDACAmp {
		for _, c := range cats {
			if c == domain.CategoryDAC || c == domain.CategoryAmp {
				return
			}
		}
	}
	addFlag(res, "category_conflict")
	reject(res, fmt.Sprintf("listing text indicates %s, matched entry is %s", cats[0], entry.Category))
}

func addFlag(res *Result, flag string) {
	for _, f := range res.Flags {
		if f == flag {
			return
		}
	}
	res.Flags = append(res.Flags, flag)
}

func reject(res *Result, reason string) {
	res.Action = domain.ActionReject
	if res.Reason == "" {
		res.Reason = reason
	}
}
