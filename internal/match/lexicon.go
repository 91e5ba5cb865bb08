package match

import (
	"regexp"

	"hifi-market-lab/internal/domain"
)

// categoryKeywords mark a segment as talking about a given equipment
// type. Used for the category scoring term, candidate category
// inference, and the validator's category-conflict check.
var categoryKeywords = map[domain.Category][]string{
	domain.CategoryHeadphone: {"headphone", "headphones", "cans", "over-ear", "on-ear", "open-back", "closed-back", "planar"},
	domain.CategoryIEM:       {"iem", "iems", "in-ear", "in-ears", "earphone", "earphones", "monitors", "ciem"},
	domain.CategoryDAC:       {"dac", "dacs", "converter"},
	domain.CategoryAmp:       {"amp", "amps", "amplifier", "headamp", "tube"},
	domain.CategoryDACAmp:    {"dac/amp", "dac-amp", "combo", "stack", "all-in-one"},
}

// gearKeywords is the union of category keywords; presence of any one
// keeps a segment out of the accessory-only rejection path.
var gearKeywords = func() map[string]bool {
	out := make(map[string]bool)
	for _, words := range categoryKeywords {
		for _, w := range words {
			out[w] = true
		}
	}
	return out
}()

// accessoryWords describe things sold alongside gear, not gear itself.
var accessoryWords = []string{
	"tips", "eartips", "ear-tips", "foam", "cable", "cables", "pads",
	"earpads", "ear-pads", "case", "stand", "adapter", "dongle",
	"filters", "nozzle", "headband", "box only",
}

// accessoryOnlyPattern catches explicit accessory-only phrasing such as
// "tips only" or "cable only".
var accessoryOnlyPattern = regexp.MustCompile(`(?i)\b(tips?|cables?|pads?|case|stand|adapter)\s+only\b`)

// accessoryContext are words that, immediately preceding a brand/name
// mention, signal the mention is about an accessory for that product
// ("cable for HD600", "pads for Focal Clear").
var accessoryContext = []string{
	"for", "fits", "fit", "compatible",
}

// defaultGenericCosts price common marketing words that inflate naive
// string matches. Values are empirically tuned; they are configuration,
// not contract (see DESIGN.md), and Tunables carries the live copy.
var defaultGenericCosts = map[string]float64{
	"pro":   0.10,
	"air":   0.15,
	"space": 0.15,
	"audio": 0.10,
	"plus":  0.10,
	"max":   0.15,
	"mini":  0.10,
	"one":   0.15,
}

// colorEditionWords are stripped before the color/edition-normalized
// name comparison ("HD 650 black" vs catalog "HD 650").
var colorEditionWords = map[string]bool{
	"black": true, "white": true, "silver": true, "red": true,
	"blue": true, "grey": true, "gray": true, "gold": true,
	"edition": true, "limited": true, "anniversary": true,
	"special": true, "se": true,
}
