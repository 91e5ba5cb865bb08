package price

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_DollarAmount(t *testing.T) {
	got := Extract("Sennheiser HD600 - $550 PayPal")
	require.NotNil(t, got)
	assert.Equal(t, 550, *got)
}

func TestExtract_TierOrdering(t *testing.T) {
	// Dollar-sign amount is a higher tier than "600 shipped"; the tier
	// decides before the within-tier amount heuristic does.
	got := Extract("asking $750, or 600 shipped for the beat-up pair")
	require.NotNil(t, got)
	assert.Equal(t, 750, *got)
}

func TestExtract_PrefersLowestWithinTier(t *testing.T) {
	// Two dollar amounts, no bundle cues: extras/shipping pollute the
	// higher number, so the lower wins.
	got := Extract("HD600 $550, or $620 with the custom cable")
	require.NotNil(t, got)
	assert.Equal(t, 550, *got)
}

func TestExtract_BundleCuePrefersHighest(t *testing.T) {
	got := Extract("HD600 $550, Modi $100, $600 for everything")
	require.NotNil(t, got)
	assert.Equal(t, 600, *got)
}

func TestExtract_Bounds(t *testing.T) {
	assert.Nil(t, Extract("selling stickers $5"))
	assert.Nil(t, Extract("my house, $250,000 obo"))

	got := Extract("$5 stickers included, headphone is $550")
	require.NotNil(t, got)
	assert.Equal(t, 550, *got)
}

func TestExtract_NoPrice(t *testing.T) {
	assert.Nil(t, Extract("WTB Sennheiser HD600, offers welcome"))
}

func TestExtract_AskingPhrase(t *testing.T) {
	got := Extract("Lyr 3, asking 350")
	require.NotNil(t, got)
	assert.Equal(t, 350, *got)
}

func TestExtract_USDSuffix(t *testing.T) {
	got := Extract("HD650 for 425 USD")
	require.NotNil(t, got)
	assert.Equal(t, 425, *got)
}

func TestExtract_CommaAmount(t *testing.T) {
	got := Extract("Focal Utopia $2,900 firm")
	require.NotNil(t, got)
	assert.Equal(t, 2900, *got)
}

func TestExtractWithOffer_OfferSpanWins(t *testing.T) {
	// Amount in the want/offer span outranks a dollar amount elsewhere.
	got := ExtractWithOffer("$350 PayPal", "[WTS] Lyr 3, retail $499. [W] $350 PayPal")
	require.NotNil(t, got)
	assert.Equal(t, 350, *got)
}

func TestExtractForComponent_LineRestricted(t *testing.T) {
	body := "Selling my desk setup:\nSennheiser HD600 - $250\nSchiit Modi 3 - $80"
	got := ExtractForComponent(body, "Sennheiser", "HD 600")
	require.NotNil(t, got)
	assert.Equal(t, 250, *got)

	got = ExtractForComponent(body, "Schiit", "Modi 3")
	require.NotNil(t, got)
	assert.Equal(t, 80, *got)
}

func TestExtractForComponent_FallbackWholeText(t *testing.T) {
	body := "everything must go, $550 takes it"
	got := ExtractForComponent(body, "Sennheiser", "HD 600")
	require.NotNil(t, got)
	assert.Equal(t, 550, *got)
}
