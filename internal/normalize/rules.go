package normalize

import "regexp"

// Rule is one step of the ordered cleanup battery. Rules are data, not
// control flow: they run in slice order and each replaces its matches
// with Replace.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Replace string
}

// CleanupRules is the ordered battery applied by Clean. Order matters:
// structural tags go first so region codes inside them are not left
// half-stripped, amounts go before trailing-phrase cleanup so "500
// shipped" collapses fully.
var CleanupRules = []Rule{
	// Listing-type tags: [WTS], [WTB], [WTT], [FS], [FT], [SOLD] and
	// their bare "WTS:" forms.
	{
		Name:    "listing-tags",
		Pattern: regexp.MustCompile(`(?i)\[(wts|wtb|wtt|fs|ft|fsot|sold|closed)\]|\b(wts|wtb|wtt|fsot)\b:?`),
		Replace: " ",
	},
	// Have/want markers themselves, once the span has been isolated.
	{
		Name:    "have-want-markers",
		Pattern: regexp.MustCompile(`(?i)\[(h|w)\]`),
		Replace: " ",
	},
	// Region codes: [USA-CA], [US-NY], [EU], [CAN], and bare CONUS.
	{
		Name:    "region-codes",
		Pattern: regexp.MustCompile(`\[(USA?|EU|UK|CAN|AUS|ASIA|WW)(-[A-Za-z]{2})?\]|\bCONUS\b`),
		Replace: " ",
	},
	// Currency amounts: $550, $1,234.56, 550 USD, 550 dollars.
	{
		Name:    "currency-amounts",
		Pattern: regexp.MustCompile(`(?i)\$\s?\d[\d,]*(\.\d{1,2})?|\b\d[\d,]*(\.\d{1,2})?\s?(usd|dollars?)\b`),
		Replace: " ",
	},
	// Payment rails and escrow jargon: PayPal G&S / F&F, Venmo, Zelle.
	{
		Name:    "payment-terms",
		Pattern: regexp.MustCompile(`(?i)\bpaypal\b|\bg\s?&\s?s\b|\bf\s?&\s?f\b|\bvenmo\b|\bzelle\b|\bcashapp\b|\bcash app\b`),
		Replace: " ",
	},
	// Trailing shipping/negotiation phrases: shipped, obo, firm, net.
	{
		Name:    "shipping-terms",
		Pattern: regexp.MustCompile(`(?i)\bshipped\b|\bshipping( included| extra)?\b|\bobo\b|\bor best offer\b|\bfirm\b|\bnet\b|\bfree ship\w*\b|\blocal pickup\b`),
		Replace: " ",
	},
	// Condition phrases that trail item names: like new, mint, 9/10, B-stock.
	{
		Name:    "condition-phrases",
		Pattern: regexp.MustCompile(`(?i)\blike new\b|\bmint( condition)?\b|\bexcellent( condition)?\b|\bgood condition\b|\bbarely used\b|\bb-?stock\b|\b\d{1,2}\s?/\s?10\b|\bnib\b|\bbnib\b|\bsealed\b`),
		Replace: " ",
	},
	// Orphaned punctuation and leftover brackets.
	{
		Name:    "orphan-punct",
		Pattern: regexp.MustCompile(`\[\s*\]|\(\s*\)|\s[-–—:;.,]+(\s|$)`),
		Replace: " ",
	},
	// Whitespace collapse runs last.
	{
		Name:    "whitespace",
		Pattern: regexp.MustCompile(`\s+`),
		Replace: " ",
	},
}

// segmentSeparators split bundle text into item segments.
// Bare "/" is handled separately so model numbers like "9/10" (already
// stripped above) or "DX3 Pro+" survive.
var segmentSeparators = regexp.MustCompile(`\s*,\s*|\s+\+\s+|\s+and\s+|\s+&\s+|\s+/\s+|/`)

// conditionPatterns map a detected condition label to its phrasing.
// Ordered: the first hit wins, so more specific phrases come first.
var conditionPatterns = []struct {
	Label   string
	Pattern *regexp.Regexp
}{
	{"new", regexp.MustCompile(`(?i)\bbnib\b|\bnib\b|\bsealed\b|\bbrand new\b`)},
	{"like_new", regexp.MustCompile(`(?i)\blike new\b|\bmint\b|\b(9|10)\s?/\s?10\b`)},
	{"good", regexp.MustCompile(`(?i)\bgood condition\b|\bexcellent\b|\b[7-8]\s?/\s?10\b`)},
	{"fair", regexp.MustCompile(`(?i)\bfair\b|\bworn\b|\bscratch\w*\b|\b[1-6]\s?/\s?10\b`)},
	{"b_stock", regexp.MustCompile(`(?i)\bb-?stock\b|\brefurb\w*\b`)},
}
