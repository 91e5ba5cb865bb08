// Package normalize isolates the for-sale portion of a marketplace post
// and splits bundle text into per-item segments. It runs before any
// matching so counter-offer terms never contaminate scoring.
package normalize

import (
	"regexp"
	"strings"
)

const minSegmentLen = 4

var (
	haveMarker = regexp.MustCompile(`(?i)\[h\]|(^|\n)\s*have\s*:`)
	wantMarker = regexp.MustCompile(`(?i)\[w\]|(^|\n)\s*(want|looking for)\s*:`)
)

// Span is the for-sale portion of a post plus whether the post carried
// explicit have/want structure. Matchers use Structured to pick the
// positional adjustment mode.
type Span struct {
	Text       string
	Structured bool
}

// ForSaleSpan isolates what is being sold from what is wanted in return.
// With [H]/[W] (or "Have:"/"Want:") structure, the span is the text
// between the have marker and the want marker. Without structure the
// whole title+body is the span.
func ForSaleSpan(title, body string) Span {
	combined := title
	if body != "" {
		combined = title + "\n" + body
	}

	hLoc := haveMarker.FindStringIndex(combined)
	if hLoc == nil {
		return Span{Text: combined, Structured: false}
	}

	rest := combined[hLoc[1]:]
	if wLoc := wantMarker.FindStringIndex(rest); wLoc != nil {
		rest = rest[:wLoc[0]]
	}

	rest = strings.TrimSpace(rest)
	if rest == "" {
		// Degenerate post like "[H] [W] $300": fall back to the title.
		return Span{Text: title, Structured: false}
	}
	return Span{Text: rest, Structured: true}
}

// CounterOfferSpan returns the want-side text, empty when the post has
// no have/want structure. Used by the matcher's positional adjustment.
func CounterOfferSpan(title, body string) string {
	combined := title
	if body != "" {
		combined = title + "\n" + body
	}
	wLoc := wantMarker.FindStringIndex(combined)
	if wLoc == nil {
		return ""
	}
	return strings.TrimSpace(combined[wLoc[1]:])
}

// Clean applies the ordered cleanup battery: structural tags, region
// codes, currency amounts, payment/shipping jargon, trailing condition
// phrases, whitespace.
func Clean(text string) string {
	for _, rule := range CleanupRules {
		text = rule.Pattern.ReplaceAllString(text, rule.Replace)
	}
	return strings.TrimSpace(text)
}

// Split cleans text and splits it into candidate item segments on
// comma, " + ", " and ", " & ", " / " and bare "/". Segments shorter
// than 4 characters are discarded. Zero or one resulting segment means
// a single-item listing.
func Split(text string) []string {
	cleaned := Clean(text)
	if cleaned == "" {
		return nil
	}

	parts := segmentSeparators.Split(cleaned, -1)
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len(p) < minSegmentLen {
			continue
		}
		segments = append(segments, p)
	}
	return segments
}

// DetectCondition scans raw listing text for a condition phrase.
// Returns "" when nothing recognizable occurs; callers treat that as
// unknown, not as a default.
func DetectCondition(text string) string {
	for _, cp := range conditionPatterns {
		if cp.Pattern.MatchString(text) {
			return cp.Label
		}
	}
	return ""
}

// SignificantWords returns lowercased words of text with single-character
// noise dropped. Shared by the matcher and the price extractor's
// per-component line selection.
func SignificantWords(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ",.;:!?()[]\"'")
		if len(f) <= 1 {
			continue
		}
		words = append(words, f)
	}
	return words
}
