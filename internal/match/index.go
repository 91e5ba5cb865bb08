package match

import (
	"regexp"
	"sort"
	"strings"

	"hifi-market-lab/internal/domain"
)

// Index is the immutable in-memory catalog structure built once per run
// and shared read-only across matches. It precomputes the brand/alias
// lookup tables so scoring does no per-call setup.
type Index struct {
	entries []*domain.CatalogEntry
	brands  []brandAlias // sorted longest-first for longest-match wins
}

// brandAlias maps one spelling (canonical or alias) to its brand.
type brandAlias struct {
	alias     string // lowercased
	canonical string
	words     []string // alias split into words, for partial matching
	pattern   *regexp.Regexp
}

// NewIndex builds the catalog index. The input slice is not retained
// mutable anywhere else by contract; catalog data is read-only to the
// pipeline.
func NewIndex(entries []*domain.CatalogEntry) *Index {
	ix := &Index{entries: entries}

	seen := make(map[string]bool)
	add := func(spelling, canonical string) {
		spelling = strings.ToLower(strings.TrimSpace(spelling))
		if spelling == "" || seen[spelling] {
			return
		}
		seen[spelling] = true
		ix.brands = append(ix.brands, brandAlias{
			alias:     spelling,
			canonical: canonical,
			words:     strings.Fields(spelling),
			pattern:   flexPattern(spelling),
		})
	}

	for _, e := range entries {
		add(e.Brand, e.Brand)
		for _, a := range e.BrandAliases {
			add(a, e.Brand)
		}
	}

	// Longest spelling first so "campfire audio" wins over "campfire".
	sort.Slice(ix.brands, func(i, j int) bool {
		if len(ix.brands[i].alias) != len(ix.brands[j].alias) {
			return len(ix.brands[i].alias) > len(ix.brands[j].alias)
		}
		return ix.brands[i].alias < ix.brands[j].alias
	})

	return ix
}

// Entries returns the catalog rows backing the index.
func (ix *Index) Entries() []*domain.CatalogEntry {
	return ix.entries
}

// FindBrand returns the canonical brand of the longest brand/alias
// spelling present in text, word-boundary matched. Multi-word brands
// are checked before their single-word prefixes by construction.
func (ix *Index) FindBrand(text string) (string, bool) {
	for _, b := range ix.brands {
		if b.pattern.MatchString(text) {
			return b.canonical, true
		}
	}
	return "", false
}

// Brands returns the distinct canonical brands present in text.
func (ix *Index) Brands(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, b := range ix.brands {
		if seen[b.canonical] {
			continue
		}
		if b.pattern.MatchString(text) {
			seen[b.canonical] = true
			out = append(out, b.canonical)
		}
	}
	return out
}

// RemoveBrand strips every spelling of a canonical brand from text.
// Longer spellings go first so "campfire audio" disappears before a
// bare "campfire" pass could leave "audio" behind.
func (ix *Index) RemoveBrand(text, canonical string) string {
	for _, b := range ix.brands {
		if b.canonical != canonical {
			continue
		}
		text = b.pattern.ReplaceAllString(text, " ")
	}
	return strings.Join(strings.Fields(text), " ")
}

// flexPattern compiles a case-insensitive word-boundary pattern that
// tolerates the spacing/hyphen variants sellers actually type:
// "HD 600" matches "HD600", "HD-600" and "HD 600", but not "HD6000".
func flexPattern(phrase string) *regexp.Regexp {
	words := strings.Fields(strings.ToLower(phrase))
	escaped := make([]string, len(words))
	for i, w := range words {
		escaped[i] = regexp.QuoteMeta(w)
	}
	body := strings.Join(escaped, `[\s-]*`)

	// \b misfires around non-word edge characters ("Pro+", "#1"), so
	// only anchor the sides that start/end on a word character.
	prefix, suffix := "", ""
	if isWordChar(phrase[0]) {
		prefix = `\b`
	}
	if isWordChar(phrase[len(phrase)-1]) {
		suffix = `\b`
	}
	return regexp.MustCompile(`(?i)` + prefix + body + suffix)
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_'
}
