package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hifi-market-lab/internal/domain"
)

func testCatalog() []*domain.CatalogEntry {
	return []*domain.CatalogEntry{
		{EntryID: "sennheiser-hd600", Brand: "Sennheiser", Name: "HD 600", Category: domain.CategoryHeadphone, BrandAliases: []string{"senn"}},
		{EntryID: "sennheiser-hd650", Brand: "Sennheiser", Name: "HD 650", Category: domain.CategoryHeadphone, NameAliases: []string{"hd6xx"}},
		{EntryID: "focal-clear-mg", Brand: "Focal", Name: "Clear MG", Category: domain.CategoryHeadphone},
		{EntryID: "schiit-modi-3", Brand: "Schiit", Name: "Modi 3", Category: domain.CategoryDAC},
		{EntryID: "schiit-magni-3", Brand: "Schiit", Name: "Magni 3", Category: domain.CategoryAmp},
		{EntryID: "topping-dx3-pro-plus", Brand: "Topping", Name: "DX3 Pro+", Category: domain.CategoryDACAmp},
		{EntryID: "moondrop-blessing-2", Brand: "Moondrop", Name: "Blessing 2", Category: domain.CategoryIEM},
	}
}

func testMatcher(entries []*domain.CatalogEntry) *Matcher {
	return NewMatcher(NewIndex(entries), DefaultTunables())
}

func TestMatchSegment_ExactNotAmbiguous(t *testing.T) {
	m := testMatcher(testCatalog())

	res := m.MatchSegment("Sennheiser HD600", Context{
		Title:   "Sennheiser HD600 - $550 PayPal",
		ForSale: "Sennheiser HD600",
	})

	require.Equal(t, domain.MatchAccepted, res.Outcome)
	require.NotNil(t, res.Candidate)
	assert.Equal(t, "sennheiser-hd600", res.Candidate.Entry.EntryID)
	assert.False(t, res.Candidate.Ambiguous)
	assert.GreaterOrEqual(t, res.Candidate.Score, 0.7)
}

func TestMatchSegment_BrandHardGate(t *testing.T) {
	m := testMatcher(testCatalog())

	// A model number with no brand mention anywhere cannot match.
	res := m.MatchSegment("HD600", Context{
		Title:   "headphones for sale",
		ForSale: "HD600",
	})

	assert.Equal(t, domain.MatchRejected, res.Outcome)
}

func TestMatchSegment_NameSoftGate(t *testing.T) {
	m := testMatcher(testCatalog())

	// Brand plus category keyword alone stays below threshold.
	res := m.MatchSegment("Sennheiser headphones for sale", Context{
		ForSale: "Sennheiser headphones for sale",
	})

	assert.Equal(t, domain.MatchRejected, res.Outcome)
}

func TestMatchSegment_AccessoryOnlyRejected(t *testing.T) {
	m := testMatcher(testCatalog())

	res := m.MatchSegment("eartips (10 pairs)", Context{ForSale: "eartips (10 pairs)"})
	assert.Equal(t, domain.MatchRejected, res.Outcome)

	res = m.MatchSegment("balanced cable only, never used", Context{})
	assert.Equal(t, domain.MatchRejected, res.Outcome)
}

func TestMatchSegment_AccessoryForProductRejected(t *testing.T) {
	m := testMatcher(testCatalog())

	// "cable for HD600" sells the cable, not the HD600.
	res := m.MatchSegment("Custom cable for HD600", Context{
		Title: "Custom cable for HD600",
	})

	assert.Equal(t, domain.MatchRejected, res.Outcome)
}

func TestMatchSegment_CounterOfferNotMatched(t *testing.T) {
	m := testMatcher(testCatalog())

	// The want-side entry sits in the title but outside the for-sale
	// span; it must not match, and its brand must not leak in.
	ctx := Context{
		Title:      "[H] Focal Clear MG [W] Sennheiser HD600",
		ForSale:    "Focal Clear MG",
		Structured: true,
	}
	res := m.MatchSegment("Focal Clear MG", ctx)

	require.Equal(t, domain.MatchAccepted, res.Outcome)
	require.NotNil(t, res.Candidate)
	assert.Equal(t, "focal-clear-mg", res.Candidate.Entry.EntryID)
	assert.False(t, res.Candidate.Ambiguous)
}

func TestMatchSegment_EntryElsewhereInSpanNotMatched(t *testing.T) {
	m := testMatcher(testCatalog())

	// Both entries sit in the for-sale span, but each segment may only
	// resolve to the entry named inside it.
	ctx := Context{
		Title:   "Sennheiser HD600 + Focal Clear MG - $800",
		ForSale: "Sennheiser HD600 + Focal Clear MG",
	}

	res := m.MatchSegment("Sennheiser HD600", ctx)
	require.Equal(t, domain.MatchAccepted, res.Outcome)
	assert.Equal(t, "sennheiser-hd600", res.Candidate.Entry.EntryID)
	assert.False(t, res.Candidate.Ambiguous)

	res = m.MatchSegment("Focal Clear MG", ctx)
	require.Equal(t, domain.MatchAccepted, res.Outcome)
	assert.Equal(t, "focal-clear-mg", res.Candidate.Entry.EntryID)
	assert.False(t, res.Candidate.Ambiguous)
}

func TestMatchSegment_SharedBrandFromSpan(t *testing.T) {
	m := testMatcher(testCatalog())

	// One brand mention covers both items of a stack post.
	ctx := Context{
		Title:   "Schiit stack: Modi 3 + Magni 3",
		ForSale: "Schiit stack: Modi 3 + Magni 3",
	}

	res := m.MatchSegment("Magni 3", ctx)
	require.Equal(t, domain.MatchAccepted, res.Outcome)
	assert.Equal(t, "schiit-magni-3", res.Candidate.Entry.EntryID)
}

func TestMatchSegment_ModelNumberVerbatim(t *testing.T) {
	m := testMatcher(testCatalog())

	// HD6000 is not an HD 600; the embedded model number must appear
	// without extra digits attached.
	res := m.MatchSegment("Sennheiser HD6000", Context{
		ForSale: "Sennheiser HD6000",
	})

	assert.Equal(t, domain.MatchRejected, res.Outcome)
}

func TestMatchSegment_NameAlias(t *testing.T) {
	m := testMatcher(testCatalog())

	res := m.MatchSegment("Sennheiser HD6XX", Context{
		ForSale: "Sennheiser HD6XX",
	})

	require.Equal(t, domain.MatchAccepted, res.Outcome)
	require.NotNil(t, res.Candidate)
	assert.Equal(t, "sennheiser-hd650", res.Candidate.Entry.EntryID)
}

func TestMatchSegment_AmbiguousWithinBand(t *testing.T) {
	catalog := append(testCatalog(), &domain.CatalogEntry{
		EntryID: "schiit-magni-3-plus", Brand: "Schiit", Name: "Magni 3+", Category: domain.CategoryAmp,
	})
	m := testMatcher(catalog)

	// "Magni 3+" contains "Magni 3" on a word boundary, so both entries
	// score identically and the result must be flagged, not silently
	// resolved.
	res := m.MatchSegment("Schiit Magni 3+", Context{
		ForSale: "Schiit Magni 3+",
	})

	require.Equal(t, domain.MatchAmbiguous, res.Outcome)
	require.NotNil(t, res.Candidate)
	assert.True(t, res.Candidate.Ambiguous)
	require.NotNil(t, res.Candidate.RunnerUp)
	assert.InDelta(t, res.Candidate.Score, res.Candidate.RunnerUp.Score, 0.15)
}

func TestMatchSegment_ExclusivityPenalty(t *testing.T) {
	catalog := []*domain.CatalogEntry{
		{EntryID: "fiio-ka1", Brand: "Fiio", Name: "KA1", Category: domain.CategoryDAC},
		{EntryID: "fiio-ka2", Brand: "Fiio", Name: "KA2", Category: domain.CategoryDAC},
		{EntryID: "fiio-ka3", Brand: "Fiio", Name: "KA3", Category: domain.CategoryDAC},
		{EntryID: "fiio-ka5", Brand: "Fiio", Name: "KA5", Category: domain.CategoryDAC},
		{EntryID: "fiio-ka11", Brand: "Fiio", Name: "KA11", Category: domain.CategoryDAC},
		{EntryID: "fiio-ka13", Brand: "Fiio", Name: "KA13", Category: domain.CategoryDAC},
	}
	m := testMatcher(catalog)

	res := m.MatchSegment("Fiio KA1 KA2 KA3 KA5 KA11 KA13 dongle collection", Context{})

	// Six entries clear the threshold, so each pays 0.05*(6-4).
	require.NotNil(t, res.Candidate)
	assert.InDelta(t, 0.10, res.Candidate.Breakdown.ExclusivePen, 1e-9)
	assert.Equal(t, domain.MatchAmbiguous, res.Outcome)
}

func TestMatchSegment_StructuredSpanBonus(t *testing.T) {
	m := testMatcher(testCatalog())

	ctx := Context{
		ForSale:    "Moondrop Blessing 2, great iems",
		Structured: true,
	}
	res := m.MatchSegment("Moondrop Blessing 2", ctx)

	require.Equal(t, domain.MatchAccepted, res.Outcome)
	assert.InDelta(t, 0.25, res.Candidate.Breakdown.PositionAdj, 1e-9)
	assert.InDelta(t, 1.0, res.Candidate.Breakdown.CategoryTerm, 1e-9)
}

func TestDetectCategory(t *testing.T) {
	cases := []struct {
		text string
		want domain.Category
		ok   bool
	}{
		{"great dac/amp combo for desk", domain.CategoryDACAmp, true},
		{"planar headphone, open-back", domain.CategoryHeadphone, true},
		{"includes a dac and an amp", domain.CategoryDACAmp, true},
		{"selling my iems", domain.CategoryIEM, true},
		{"no gear words here", "", false},
	}
	for _, tc := range cases {
		got, ok := DetectCategory(tc.text)
		assert.Equal(t, tc.ok, ok, tc.text)
		if tc.ok {
			assert.Equal(t, tc.want, got, tc.text)
		}
	}
}

func TestStripColorEdition(t *testing.T) {
	assert.Equal(t, "HD 650", stripColorEdition("HD 650 black"))
	assert.Equal(t, "Clear MG", stripColorEdition("Clear MG Limited Edition"))
}

func TestFindBrand_LongestWins(t *testing.T) {
	ix := NewIndex([]*domain.CatalogEntry{
		{EntryID: "campfire-andromeda", Brand: "Campfire Audio", Name: "Andromeda", Category: domain.CategoryIEM, BrandAliases: []string{"campfire"}},
	})

	brand, ok := ix.FindBrand("WTS Campfire Audio Andromeda")
	require.True(t, ok)
	assert.Equal(t, "Campfire Audio", brand)
}
