package candidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hifi-market-lab/internal/domain"
	"hifi-market-lab/internal/match"
)

func testIndex() *match.Index {
	return match.NewIndex([]*domain.CatalogEntry{
		{EntryID: "sennheiser-hd600", Brand: "Sennheiser", Name: "HD 600", Category: domain.CategoryHeadphone},
		{EntryID: "focal-clear-mg", Brand: "Focal", Name: "Clear MG", Category: domain.CategoryHeadphone},
		{EntryID: "moondrop-aria", Brand: "Moondrop", Name: "Aria", Category: domain.CategoryIEM},
	})
}

func TestDetect_KnownBrandNewModel(t *testing.T) {
	d := NewDetector(testIndex())

	c, reason := d.Detect(domain.RawListing{
		Source:   "headfi",
		URL:      "https://example.com/p/1",
		Title:    "[WTS] Sennheiser HD 620S",
		Body:     "$299 shipped",
		PostedAt: 1000,
	})

	require.NotNil(t, c, reason)
	assert.Equal(t, "Sennheiser", c.Brand)
	assert.Equal(t, "HD 620S", c.Model)
	assert.Equal(t, "sennheiser|hd 620s", c.MergeKey())
	require.NotNil(t, c.MinPriceUSD)
	assert.Equal(t, 299, *c.MinPriceUSD)
	assert.Equal(t, domain.CandidatePending, c.Status)
	assert.Equal(t, 1, c.ListingCount)
	require.Len(t, c.ListingIDs, 1)
	assert.Equal(t, int64(1000), c.FirstSeenAt)
}

func TestDetect_NoBrand(t *testing.T) {
	d := NewDetector(testIndex())

	c, reason := d.Detect(domain.RawListing{
		Source: "headfi",
		URL:    "https://example.com/p/2",
		Title:  "[WTS] mystery vintage receiver",
	})

	assert.Nil(t, c)
	assert.Equal(t, "no known brand", reason)
}

func TestDetect_MultipleBrands(t *testing.T) {
	d := NewDetector(testIndex())

	c, reason := d.Detect(domain.RawListing{
		Source: "headfi",
		URL:    "https://example.com/p/3",
		Title:  "[WTS] Sennheiser and Focal gear lot",
	})

	assert.Nil(t, c)
	assert.Equal(t, "multiple brands", reason)
}

func TestDetect_AccessoryRejected(t *testing.T) {
	d := NewDetector(testIndex())

	c, reason := d.Detect(domain.RawListing{
		Source: "headfi",
		URL:    "https://example.com/p/4",
		Title:  "[WTS] Sennheiser cable only",
	})

	assert.Nil(t, c)
	assert.NotEmpty(t, reason)
}

func TestDetect_MultiItemRejected(t *testing.T) {
	d := NewDetector(testIndex())

	c, reason := d.Detect(domain.RawListing{
		Source: "headfi",
		URL:    "https://example.com/p/5",
		Title:  "[WTS] Moondrop Aria, Blessing 2, Starfield",
	})

	assert.Nil(t, c)
	assert.Equal(t, "multi-item listing", reason)
}

func TestDetect_SeparatedModelNumbersRejected(t *testing.T) {
	d := NewDetector(testIndex())

	// Only two segments, but one brand with three model numbers behind
	// a separator is still an enumeration, not one product.
	c, reason := d.Detect(domain.RawListing{
		Source: "headfi",
		URL:    "https://example.com/p/9",
		Title:  "[WTS] Sennheiser HD560S / HD599 HD58X",
	})

	assert.Nil(t, c)
	assert.Equal(t, "multi-item listing", reason)
}

func TestDetect_NoModelText(t *testing.T) {
	d := NewDetector(testIndex())

	c, reason := d.Detect(domain.RawListing{
		Source: "headfi",
		URL:    "https://example.com/p/6",
		Title:  "[WTS] Sennheiser",
	})

	assert.Nil(t, c)
	assert.Equal(t, "no usable model text", reason)
}

func TestDetect_CategoryAndRepRaiseQuality(t *testing.T) {
	d := NewDetector(testIndex())
	rep := 25

	c, reason := d.Detect(domain.RawListing{
		Source:    "headfi",
		URL:       "https://example.com/p/7",
		Title:     "[WTS] Moondrop Crinacle DUSK",
		Body:      "Excellent iems, $320 shipped",
		SellerRep: &rep,
		PostedAt:  2000,
	})

	require.NotNil(t, c, reason)
	require.NotNil(t, c.InferredCategory)
	assert.Equal(t, domain.CategoryIEM, *c.InferredCategory)
	assert.Equal(t, 85, c.QualityScore)
}

func TestDetect_BareTitleLowerQuality(t *testing.T) {
	d := NewDetector(testIndex())

	c, reason := d.Detect(domain.RawListing{
		Source: "headfi",
		URL:    "https://example.com/p/8",
		Title:  "[WTS] Focal Bathys",
	})

	require.NotNil(t, c, reason)
	assert.Equal(t, "Bathys", c.Model)
	assert.Nil(t, c.MinPriceUSD)
	assert.Equal(t, 40, c.QualityScore)
}
