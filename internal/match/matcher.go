// Package match scores listing text segments against the curated
// catalog. The scorer is a weighted-sum model with a brand hard gate,
// positional adjustments from the post's have/want structure, and
// penalties for generic marketing words and over-popular segments.
// It does no I/O; the catalog Index is built once per run and shared
// read-only.
package match

import (
	"regexp"
	"sort"
	"strings"

	"hifi-market-lab/internal/domain"
)

// Term weights. Brand is a hard gate: a zero brand term forces the
// total to zero regardless of name similarity.
const (
	weightBrand    = 0.4
	weightName     = 0.5
	weightCategory = 0.1

	// nameSoftGate caps the total when the name term is below it, so a
	// strong brand plus positional bonus can never clear the threshold
	// on its own.
	nameSoftGate = 0.5

	// Minimum share of a multi-word brand's words for partial credit.
	brandPartialShare = 0.7

	// Name word-overlap floor and scale ceiling.
	nameOverlapFloor = 0.8
	nameOverlapScale = 0.9

	shortNameExactLen = 3
)

// Tunables are the empirically tuned scoring constants, kept as
// configuration rather than hardcoded (their derivation is not
// documented anywhere; treat them as adjustable).
type Tunables struct {
	Threshold      float64            // acceptance threshold
	AmbiguityBand  float64            // top-two gap below which a match is ambiguous
	GenericCosts   map[string]float64 // per-word genericness cost
	GenericCap     float64            // cap on the summed genericness penalty
	ShortCompound  float64            // multiplier when both brand and name are short
	ShortLen       int                // max length counted as "short"
	ExclusiveAfter int                // candidates beyond this count incur the exclusivity penalty
	ExclusiveStep  float64            // penalty per extra candidate
	ExclusiveCap   float64            // cap on the exclusivity penalty
}

// DefaultTunables returns the tuned defaults.
func DefaultTunables() Tunables {
	costs := make(map[string]float64, len(defaultGenericCosts))
	for w, c := range defaultGenericCosts {
		costs[w] = c
	}
	return Tunables{
		Threshold:      0.7,
		AmbiguityBand:  0.15,
		GenericCosts:   costs,
		GenericCap:     0.4,
		ShortCompound:  1.5,
		ShortLen:       5,
		ExclusiveAfter: 4,
		ExclusiveStep:  0.05,
		ExclusiveCap:   0.2,
	}
}

// Context carries the listing-level text surrounding a segment. Name
// terms match inside the segment only; the surrounding spans serve the
// brand fallback and the positional adjustment.
type Context struct {
	Title      string
	ForSale    string // isolated for-sale span (includes the segment)
	Structured bool   // post carried explicit have/want structure
}

// Matcher scores segments against a catalog index.
type Matcher struct {
	index *Index
	cfg   Tunables
}

// NewMatcher creates a Matcher over an immutable catalog index.
func NewMatcher(index *Index, cfg Tunables) *Matcher {
	return &Matcher{index: index, cfg: cfg}
}

// scored pairs an entry with its computed score for ranking.
type scored struct {
	entry     *domain.CatalogEntry
	score     float64
	breakdown domain.ScoreBreakdown
}

// MatchSegment scores a segment against every catalog entry and returns
// a tagged result: the best entry at or above the threshold, flagged
// ambiguous when the runner-up is within the ambiguity band, or a
// rejection. Accessory-only segments are rejected before scoring.
func (m *Matcher) MatchSegment(segment string, ctx Context) domain.MatchResult {
	if reason, accessory := m.accessoryOnly(segment); accessory {
		return domain.MatchResult{Outcome: domain.MatchRejected, Reason: reason}
	}

	var candidates []scored
	for _, entry := range m.index.Entries() {
		score, bd := m.scoreEntry(segment, ctx, entry)
		if score >= m.cfg.Threshold {
			candidates = append(candidates, scored{entry: entry, score: score, breakdown: bd})
		}
	}

	// Exclusivity correction: a segment that lights up many entries is
	// probably generic text, so every candidate pays an escalating
	// penalty and the set is re-filtered.
	if len(candidates) > m.cfg.ExclusiveAfter {
		pen := m.cfg.ExclusiveStep * float64(len(candidates)-m.cfg.ExclusiveAfter)
		if pen > m.cfg.ExclusiveCap {
			pen = m.cfg.ExclusiveCap
		}
		kept := candidates[:0]
		for _, c := range candidates {
			c.score -= pen
			c.breakdown.ExclusivePen = pen
			if c.score >= m.cfg.Threshold {
				kept = append(kept, c)
			}
		}
		candidates = kept
	}

	if len(candidates) == 0 {
		return domain.MatchResult{Outcome: domain.MatchRejected, Reason: "no catalog entry above threshold"}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].entry.EntryID < candidates[j].entry.EntryID
	})

	best := candidates[0]
	mc := &domain.MatchCandidate{
		Entry:     best.entry,
		Score:     best.score,
		Breakdown: best.breakdown,
	}

	if len(candidates) > 1 && best.score-candidates[1].score < m.cfg.AmbiguityBand {
		mc.Ambiguous = true
		mc.RunnerUp = &domain.RunnerUp{
			EntryID: candidates[1].entry.EntryID,
			Score:   candidates[1].score,
		}
		return domain.MatchResult{Outcome: domain.MatchAmbiguous, Candidate: mc}
	}

	return domain.MatchResult{Outcome: domain.MatchAccepted, Candidate: mc}
}

func (m *Matcher) accessoryOnly(segment string) (string, bool) {
	return AccessoryOnly(segment, m.index)
}

// AccessoryOnly rejects text that clearly sells accessories, not gear:
// explicit "<accessory> only" phrasing, or accessory words with no gear
// keyword and no recognizable brand. Shared with candidate detection.
func AccessoryOnly(text string, ix *Index) (string, bool) {
	if accessoryOnlyPattern.MatchString(text) {
		return "accessory-only phrasing", true
	}

	lower := strings.ToLower(text)
	hasAccessory := false
	for _, w := range accessoryWords {
		if wordPresent(lower, w) {
			hasAccessory = true
			break
		}
	}
	if !hasAccessory {
		return "", false
	}
	for w := range gearKeywords {
		if wordPresent(lower, w) {
			return "", false
		}
	}
	if _, ok := ix.FindBrand(text); ok {
		return "", false
	}
	return "accessory words without gear keyword or brand", true
}

// placement records where a term was found relative to the post
// structure.
type placement struct {
	found   bool
	inSpan  bool // segment or for-sale span
	inTitle bool
}

func (m *Matcher) scoreEntry(segment string, ctx Context, entry *domain.CatalogEntry) (float64, domain.ScoreBreakdown) {
	var bd domain.ScoreBreakdown

	brandTerm, brandPlace := m.brandTerm(segment, ctx, entry)
	bd.BrandTerm = brandTerm
	if brandTerm == 0 {
		// Hard gate.
		return 0, bd
	}

	nameTerm, namePlace := m.nameTerm(segment, ctx, entry)
	bd.NameTerm = nameTerm

	bd.CategoryTerm = m.categoryTerm(segment, ctx, entry)

	bd.PositionAdj = m.positionAdj(segment, ctx, entry, brandPlace, namePlace)

	bd.GenericPen = m.genericPenalty(entry)

	score := weightBrand*brandTerm + weightName*nameTerm + weightCategory*bd.CategoryTerm
	score += bd.PositionAdj
	score -= bd.GenericPen

	// Name soft gate: without at least a half-credible name term the
	// total cannot reach acceptance.
	if nameTerm < nameSoftGate && score > nameSoftGate {
		score = nameSoftGate
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, bd
}

// brandTerm finds the entry's brand (canonical or alias) and scores it:
// full word-boundary match 1.0, partial multi-word match 0.7, absent 0.
// Unlike names, a brand may sit outside the segment: sellers state it
// once for several items ("Schiit Modi 3 + Magni 3").
func (m *Matcher) brandTerm(segment string, ctx Context, entry *domain.CatalogEntry) (float64, placement) {
	spellings := append([]string{entry.Brand}, entry.BrandAliases...)

	var place placement
	for _, sp := range spellings {
		sp = strings.TrimSpace(sp)
		if sp == "" {
			continue
		}
		p := flexPattern(sp)
		pl := locateBrand(p, segment, ctx)
		if pl.found {
			return 1.0, pl
		}
	}

	// Partial credit for multi-word brands with most words present.
	words := strings.Fields(strings.ToLower(entry.Brand))
	if len(words) > 1 {
		hits := 0
		for _, w := range words {
			pl := locateBrand(flexPattern(w), segment, ctx)
			if pl.found {
				hits++
				place = mergePlacement(place, pl)
			}
		}
		if float64(hits)/float64(len(words)) >= brandPartialShare {
			return 0.7, place
		}
	}

	return 0, placement{}
}

// nameTerm scores the product name: exact 1.0, variant alias 0.95,
// color/edition-normalized 0.9, else proportional word overlap scaled
// to [0,0.9]. A catalog name embedding a model number requires that
// number verbatim. Names of three characters or fewer match exact
// whole-word only.
func (m *Matcher) nameTerm(segment string, ctx Context, entry *domain.CatalogEntry) (float64, placement) {
	name := strings.TrimSpace(entry.Name)
	if name == "" {
		return 0, placement{}
	}

	exact := locate(flexPattern(name), segment, ctx)
	if exact.found {
		return 1.0, exact
	}

	if len(name) <= shortNameExactLen {
		// Too short for any fuzzy fallback.
		return 0, placement{}
	}

	for _, alias := range entry.NameAliases {
		alias = strings.TrimSpace(alias)
		if alias == "" {
			continue
		}
		if pl := locate(flexPattern(alias), segment, ctx); pl.found {
			return 0.95, pl
		}
	}

	// Color/edition-normalized comparison.
	normSeg := stripColorEdition(segment)
	normName := stripColorEdition(name)
	if normName != "" {
		if pl := locate(flexPattern(normName), normSeg, normCtx(ctx)); pl.found {
			return 0.9, pl
		}
	}

	// Model-number gate: an embedded model number must appear verbatim
	// in the segment.
	if num := modelNumber(name); num != "" && !numberPresent(segment, num) {
		return 0, placement{}
	}

	// Proportional word overlap over significant name words.
	words := significantNameWords(name)
	if len(words) == 0 {
		return 0, placement{}
	}
	hits := 0
	var place placement
	for _, w := range words {
		if pl := locate(flexPattern(w), segment, ctx); pl.found {
			hits++
			place = mergePlacement(place, pl)
		}
	}
	frac := float64(hits) / float64(len(words))
	if frac < nameOverlapFloor {
		return 0, placement{}
	}
	return nameOverlapScale * frac, place
}

// categoryTerm is 1.0 when any keyword of the entry's category appears
// near the segment.
func (m *Matcher) categoryTerm(segment string, ctx Context, entry *domain.CatalogEntry) float64 {
	text := strings.ToLower(segment + " " + ctx.ForSale + " " + ctx.Title)
	for _, kw := range categoryKeywords[entry.Category] {
		if wordPresent(text, kw) {
			return 1.0
		}
	}
	return 0
}

// positionAdj applies the structural placement adjustment plus the
// accessory-context penalty.
func (m *Matcher) positionAdj(segment string, ctx Context, entry *domain.CatalogEntry, brand, name placement) float64 {
	adj := 0.0

	if ctx.Structured {
		// Counter-offer mentions never reach this point: name terms are
		// segment-scoped, so a want-side entry fails the name gate.
		if brand.inSpan && name.inSpan {
			adj += 0.25
		}
	} else {
		switch {
		case brand.inTitle && name.inTitle:
			adj += 0.2
		case brand.inTitle || name.inTitle:
			adj += 0.1
		}
	}

	if precededByAccessory(segment, entry) || precededByAccessory(ctx.ForSale, entry) {
		adj -= 0.3
	}

	return adj
}

// genericPenalty sums the configured cost of marketing words appearing
// in the entry's brand or name, compounded when both strings are short,
// capped.
func (m *Matcher) genericPenalty(entry *domain.CatalogEntry) float64 {
	pen := 0.0
	for _, w := range strings.Fields(strings.ToLower(entry.Brand + " " + entry.Name)) {
		if cost, ok := m.cfg.GenericCosts[w]; ok {
			pen += cost
		}
	}
	if pen == 0 {
		return 0
	}
	if len(entry.Brand) <= m.cfg.ShortLen && len(entry.Name) <= m.cfg.ShortLen {
		pen *= m.cfg.ShortCompound
	}
	if pen > m.cfg.GenericCap {
		pen = m.cfg.GenericCap
	}
	return pen
}

// locate requires p inside the segment itself, so an entry mentioned
// elsewhere in the listing cannot lend its name to this segment. The
// surrounding spans only say where the hit sits.
func locate(p *regexp.Regexp, segment string, ctx Context) placement {
	if !p.MatchString(segment) {
		return placement{}
	}
	return placement{
		found:   true,
		inSpan:  ctx.ForSale == "" || p.MatchString(ctx.ForSale),
		inTitle: p.MatchString(ctx.Title),
	}
}

// locateBrand is locate with a fallback to the for-sale span, and to
// the title on unstructured posts. A structured post's title carries
// the want side, so the fallback skips it there; the counter-offer
// span never counts.
func locateBrand(p *regexp.Regexp, segment string, ctx Context) placement {
	if pl := locate(p, segment, ctx); pl.found {
		return pl
	}
	if p.MatchString(ctx.ForSale) {
		return placement{found: true, inSpan: true, inTitle: p.MatchString(ctx.Title)}
	}
	if !ctx.Structured && p.MatchString(ctx.Title) {
		return placement{found: true, inTitle: true}
	}
	return placement{}
}

func mergePlacement(a, b placement) placement {
	return placement{
		found:   a.found || b.found,
		inSpan:  a.inSpan || b.inSpan,
		inTitle: a.inTitle || b.inTitle,
	}
}

// precededByAccessory reports whether the entry's brand or name occurs
// in text immediately after an accessory-context word ("cable for
// HD600").
func precededByAccessory(text string, entry *domain.CatalogEntry) bool {
	for _, target := range []string{entry.Name, entry.Brand} {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		loc := flexPattern(target).FindStringIndex(text)
		if loc == nil {
			continue
		}
		before := strings.Fields(strings.ToLower(text[:loc[0]]))
		if len(before) == 0 {
			continue
		}
		lastTwo := before
		if len(before) > 2 {
			lastTwo = before[len(before)-2:]
		}
		for _, w := range lastTwo {
			for _, acc := range accessoryContext {
				if w == acc {
					return true
				}
			}
			for _, acc := range accessoryWords {
				if w == acc {
					return true
				}
			}
		}
	}
	return false
}

// modelNumber returns the first token of name carrying two or more
// digits, digits only ("HD 600" -> "600", "DX3 Pro+" -> "").
var modelNumberPattern = regexp.MustCompile(`\d{2,}`)

func modelNumber(name string) string {
	return modelNumberPattern.FindString(name)
}

// ModelNumberCount returns how many model-number tokens text carries.
// Candidate detection uses it to spot posts enumerating several items.
func ModelNumberCount(text string) int {
	return len(modelNumberPattern.FindAllString(text, -1))
}

// numberPresent reports whether num occurs in text without being part
// of a longer digit run ("600" is not present in "HD6000").
func numberPresent(text, num string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], num)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(num)
		leftOK := start == 0 || !isDigit(text[start-1])
		rightOK := end == len(text) || !isDigit(text[end])
		if leftOK && rightOK {
			return true
		}
		idx = start + 1
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func stripColorEdition(s string) string {
	words := strings.Fields(s)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if colorEditionWords[strings.ToLower(strings.Trim(w, ",()"))] {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// significantNameWords drops single-character tokens from a catalog
// name for the proportional-overlap comparison.
func significantNameWords(name string) []string {
	fields := strings.Fields(strings.ToLower(name))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) <= 1 {
			continue
		}
		out = append(out, f)
	}
	return out
}

// normCtx strips color/edition words from every span of a context.
func normCtx(ctx Context) Context {
	return Context{
		Title:      stripColorEdition(ctx.Title),
		ForSale:    stripColorEdition(ctx.ForSale),
		Structured: ctx.Structured,
	}
}

// wordPresent is a simple word-boundary containment check on
// already-lowercased text.
func wordPresent(text, word string) bool {
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

// DetectCategory infers the dominant category keyword present in text.
// dac_amp is checked first so combo phrasing is not misread as dac or
// amp alone; both dac and amp keywords present also implies a combo.
func DetectCategory(text string) (domain.Category, bool) {
	lower := strings.ToLower(text)

	for _, kw := range categoryKeywords[domain.CategoryDACAmp] {
		if wordPresent(lower, kw) {
			return domain.CategoryDACAmp, true
		}
	}

	var found []domain.Category
	for _, cat := range []domain.Category{domain.CategoryHeadphone, domain.CategoryIEM, domain.CategoryDAC, domain.CategoryAmp} {
		for _, kw := range categoryKeywords[cat] {
			if wordPresent(lower, kw) {
				found = append(found, cat)
				break
			}
		}
	}

	if len(found) == 0 {
		return "", false
	}
	if len(found) == 2 {
		hasDAC := found[0] == domain.CategoryDAC || found[1] == domain.CategoryDAC
		hasAmp := found[0] == domain.CategoryAmp || found[1] == domain.CategoryAmp
		if hasDAC && hasAmp {
			return domain.CategoryDACAmp, true
		}
	}
	return found[0], true
}

// CategoriesIn returns every category with a keyword present in text,
// for the validator's conflict check.
func CategoriesIn(text string) []domain.Category {
	lower := strings.ToLower(text)
	var out []domain.Category
	for _, cat := range []domain.Category{domain.CategoryHeadphone, domain.CategoryIEM, domain.CategoryDAC, domain.CategoryAmp, domain.CategoryDACAmp} {
		for _, kw := range categoryKeywords[cat] {
			if wordPresent(lower, kw) {
				out = append(out, cat)
				break
			}
		}
	}
	return out
}
