package reporting

import (
	"fmt"
	"strings"
)

// RenderMarketCSV renders the market overview as a CSV string.
func RenderMarketCSV(rows []MarketRow) string {
	var sb strings.Builder

	sb.WriteString("component_id,brand,name,category,listings,available,ambiguous,")
	sb.WriteString("min_price_usd,median_price_usd,max_price_usd\n")

	for _, m := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%d,%d,%d,%d,%d,%d\n",
			m.ComponentID,
			csvField(m.Brand),
			csvField(m.Name),
			m.Category,
			m.Listings,
			m.Available,
			m.Ambiguous,
			m.MinPriceUSD,
			m.MedianPriceUSD,
			m.MaxPriceUSD,
		))
	}

	return sb.String()
}

// RenderCandidateCSV renders pending candidates as a CSV string.
func RenderCandidateCSV(rows []CandidateRow) string {
	var sb strings.Builder

	sb.WriteString("brand,model,category,listings,min_price_usd,max_price_usd,quality_score\n")

	for _, c := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%s,%s,%d\n",
			csvField(c.Brand),
			csvField(c.Model),
			c.Category,
			c.Listings,
			csvInt(c.MinPriceUSD),
			csvInt(c.MaxPriceUSD),
			c.QualityScore,
		))
	}

	return sb.String()
}

// csvField quotes a value when it contains a comma or quote.
func csvField(v string) string {
	if strings.ContainsAny(v, ",\"\n") {
		return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
	}
	return v
}

func csvInt(p *int) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%d", *p)
}
