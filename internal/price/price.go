// Package price extracts a best-guess numeric asking price from free
// listing text. Extraction is deterministic: an ordered battery of
// tiered patterns runs over the text and the candidates are ranked by
// tier, then by a bundle heuristic within the tier.
package price

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"hifi-market-lab/internal/normalize"
)

// Accepted price bounds. Anything outside is rejected before ranking.
const (
	MinUSD = 10
	MaxUSD = 10000
)

// minLineOverlap is the brand+model token share a text line must carry
// before per-component extraction trusts that line alone.
const minLineOverlap = 0.6

// Rule is one tiered pattern of the extraction battery. Group is the
// regexp capture group holding the numeric amount.
type Rule struct {
	Name    string
	Tier    int // 0 = highest priority
	Pattern *regexp.Regexp
	Group   int
}

// Rules is the ordered battery run by Extract. Tier 0 (offer span) is
// applied by ExtractWithOffer, not listed here, because it needs the
// span boundaries rather than a pattern.
var Rules = []Rule{
	{
		Name:    "dollar-amount",
		Tier:    1,
		Pattern: regexp.MustCompile(`\$\s?(\d[\d,]*)(\.\d{1,2})?`),
		Group:   1,
	},
	{
		Name:    "asking-phrase",
		Tier:    2,
		Pattern: regexp.MustCompile(`(?i)\b(?:asking|price|selling(?:\s+for)?)\s*:?\s*\$?\s?(\d[\d,]*)`),
		Group:   1,
	},
	{
		Name:    "amount-shipped",
		Tier:    3,
		Pattern: regexp.MustCompile(`(?i)\b(\d[\d,]*)\s*(?:shipped|obo|firm)\b`),
		Group:   1,
	},
	{
		Name:    "amount-usd",
		Tier:    4,
		Pattern: regexp.MustCompile(`(?i)\b(\d[\d,]*)\s?(?:usd|dollars?)\b`),
		Group:   1,
	},
}

// bundleCues suggest an amount is an aggregate for the whole lot.
// Unverified author-intent heuristic; see DESIGN.md.
var bundleCues = []string{"all", "bundle", "total", "together", "everything"}

type match struct {
	amount int
	tier   int
}

// Extract returns the best-guess integer price in [10,10000], or nil.
func Extract(text string) *int {
	return rank(collect(text), text)
}

// ExtractWithOffer treats every amount inside the designated offer span
// as tier 0, ahead of all pattern tiers found in the full text.
func ExtractWithOffer(offerSpan, text string) *int {
	candidates := collect(offerSpan)
	for i := range candidates {
		candidates[i].tier = 0
	}
	candidates = append(candidates, collect(text)...)
	return rank(candidates, text)
}

// ExtractForComponent extracts a per-component price from a multi-item
// body: the search is restricted to the text line sharing at least 60%
// of the component's brand+model tokens, falling back to whole-text
// extraction when no line qualifies.
func ExtractForComponent(text, brand, name string) *int {
	want := normalize.SignificantWords(brand + " " + name)
	if len(want) == 0 {
		return Extract(text)
	}

	for _, line := range strings.Split(text, "\n") {
		if tokenOverlap(normalize.SignificantWords(line), want) >= minLineOverlap {
			if p := Extract(line); p != nil {
				return p
			}
		}
	}
	return Extract(text)
}

// collect runs the battery over text and keeps only in-bounds amounts.
func collect(text string) []match {
	var out []match
	for _, rule := range Rules {
		for _, m := range rule.Pattern.FindAllStringSubmatch(text, -1) {
			amount, err := parseAmount(m[rule.Group])
			if err != nil {
				continue
			}
			if amount < MinUSD || amount > MaxUSD {
				continue
			}
			out = append(out, match{amount: amount, tier: rule.Tier})
		}
	}
	return out
}

// rank sorts candidates by tier ascending, then applies the bundle
// heuristic inside the tier: cue words present prefer the highest
// amount (assumed aggregate), otherwise the lowest (extras and shipping
// pollute higher numbers).
func rank(candidates []match, text string) *int {
	if len(candidates) == 0 {
		return nil
	}

	preferHighest := hasBundleCue(text)
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].tier != candidates[j].tier {
			return candidates[i].tier < candidates[j].tier
		}
		if preferHighest {
			return candidates[i].amount > candidates[j].amount
		}
		return candidates[i].amount < candidates[j].amount
	})

	best := candidates[0].amount
	return &best
}

func hasBundleCue(text string) bool {
	lower := strings.ToLower(text)
	for _, cue := range bundleCues {
		if containsWord(lower, cue) {
			return true
		}
	}
	return false
}

func containsWord(text, word string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		leftOK := start == 0 || !isWordChar(text[start-1])
		rightOK := end == len(text) || !isWordChar(text[end])
		if leftOK && rightOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

func parseAmount(s string) (int, error) {
	s = strings.ReplaceAll(s, ",", "")
	return strconv.Atoi(s)
}

// tokenOverlap is the share of want tokens present in have. A want
// token also counts when it is embedded in a have token, so "HD600" in
// a line satisfies the catalog tokens "hd" and "600".
func tokenOverlap(have, want []string) float64 {
	if len(want) == 0 {
		return 0
	}
	hits := 0
	for _, w := range want {
		for _, h := range have {
			if h == w || (len(w) >= 2 && strings.Contains(h, w)) {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(len(want))
}
