// Package bundle turns one raw listing into its matched components.
// Single-item listings come out as one segment; multi-item listings get
// a shared order-independent group id and per-component prices.
package bundle

import (
	"hifi-market-lab/internal/domain"
	"hifi-market-lab/internal/idhash"
	"hifi-market-lab/internal/match"
	"hifi-market-lab/internal/normalize"
	"hifi-market-lab/internal/price"
)

// Extractor resolves the components of a listing against the catalog.
type Extractor struct {
	matcher *match.Matcher
}

// NewExtractor creates an Extractor over a shared matcher.
func NewExtractor(m *match.Matcher) *Extractor {
	return &Extractor{matcher: m}
}

// Extraction is the resolved view of one listing.
type Extraction struct {
	Span     normalize.Span
	Segments []domain.BundleSegment // matched segments in listing order
	Rejected int                    // segments that matched no entry
	GroupID  string                 // set only for multi-component listings
	TotalUSD *int                   // asking price for the whole listing
}

// Bundle reports whether the listing resolved to more than one
// component.
func (x Extraction) Bundle() bool {
	return len(x.Segments) > 1
}

// Extract isolates the for-sale span, splits it into item segments,
// matches each against the catalog, and prices the result. The same
// catalog entry appearing twice merges into one segment with its
// quantity bumped. For multi-component listings the bundle group id is
// derived from the sorted component ids so segment order never changes
// it.
func (e *Extractor) Extract(l domain.RawListing) Extraction {
	span := normalize.ForSaleSpan(l.Title, l.Body)
	counter := normalize.CounterOfferSpan(l.Title, l.Body)

	ctx := match.Context{
		Title:      normalize.Clean(l.Title),
		ForSale:    normalize.Clean(span.Text),
		Structured: span.Structured,
	}

	// Unstructured posts enumerate items in the title; the body repeats
	// them with prices and condition notes, which would cross-pollute
	// segment splitting.
	segmentSource := span.Text
	if !span.Structured {
		segmentSource = l.Title
	}

	out := Extraction{Span: span}
	byEntry := make(map[string]int)
	for _, seg := range normalize.Split(segmentSource) {
		res := e.matcher.MatchSegment(seg, ctx)
		if res.Outcome == domain.MatchRejected {
			out.Rejected++
			continue
		}
		if i, dup := byEntry[res.Candidate.Entry.EntryID]; dup {
			out.Segments[i].Quantity++
			continue
		}
		byEntry[res.Candidate.Entry.EntryID] = len(out.Segments)
		out.Segments = append(out.Segments, domain.BundleSegment{
			Text:     seg,
			Position: len(out.Segments) + 1,
			Quantity: 1,
			Match:    res.Candidate,
		})
	}

	total := e.listingPrice(l, counter)
	switch {
	case len(out.Segments) > 1:
		ids := make([]string, len(out.Segments))
		for i, s := range out.Segments {
			ids[i] = s.Match.Entry.EntryID
		}
		out.GroupID = idhash.BundleGroupID(l.URL, ids)
		out.TotalUSD = total
		for i, s := range out.Segments {
			out.Segments[i].PriceUSD = price.ExtractForComponent(l.Body, s.Match.Entry.Brand, s.Match.Entry.Name)
		}
	case len(out.Segments) == 1:
		out.Segments[0].PriceUSD = total
		out.TotalUSD = total
	}

	return out
}

// listingPrice prefers a structured source hint when it is in bounds,
// falling back to text extraction with the counter-offer span as the
// top tier.
func (e *Extractor) listingPrice(l domain.RawListing, counter string) *int {
	if l.PriceHint != nil && *l.PriceHint >= price.MinUSD && *l.PriceHint <= price.MaxUSD {
		v := *l.PriceHint
		return &v
	}
	text := l.Title
	if l.Body != "" {
		text = l.Title + "\n" + l.Body
	}
	return price.ExtractWithOffer(counter, text)
}
