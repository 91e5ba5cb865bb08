package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Listing Reconciliation Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	sb.WriteString("## Run Summary\n\n")
	if r.Run.RunID != "" {
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Run ID | %s |\n", r.Run.RunID))
		sb.WriteString(fmt.Sprintf("| Final State | %s |\n", r.Run.Final))
		sb.WriteString(fmt.Sprintf("| Dry Run | %t |\n", r.Run.DryRun))
		sb.WriteString(fmt.Sprintf("| Duration (s) | %d |\n", r.Run.FinishedAt-r.Run.StartedAt))
		sb.WriteString(fmt.Sprintf("| Listings Fetched | %d |\n", r.Run.TotalFetched))
		sb.WriteString(fmt.Sprintf("| Duplicates Removed | %d |\n", r.Run.DuplicatesRemoved))
		sb.WriteString(fmt.Sprintf("| Listings Expired | %d |\n", r.Run.Expired))
		sb.WriteString(fmt.Sprintf("| Listings Archived | %d |\n", r.Run.Archived))
		sb.WriteString("\n")

		if len(r.Run.Errors) > 0 {
			sb.WriteString("### Run Errors\n\n")
			for _, e := range r.Run.Errors {
				sb.WriteString(fmt.Sprintf("- %s\n", e))
			}
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString("No run recorded yet.\n\n")
	}

	sb.WriteString("## Sources\n\n")
	if len(r.Sources) > 0 {
		sb.WriteString("| Source | Fetched | Skipped | Matched | Bundles | Candidates | Rejected | Sold | Errors | Status |\n")
		sb.WriteString("|--------|---------|---------|---------|---------|------------|----------|------|--------|--------|\n")
		for _, s := range r.Sources {
			status := "ok"
			if s.Failed {
				status = "FAILED"
			}
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d | %d | %d | %d | %d | %s |\n",
				s.Source, s.Fetched, s.Skipped, s.Matched, s.Bundles,
				s.Candidates, s.Rejected, s.SoldUpdates, s.Errors, status))
		}
	} else {
		sb.WriteString("No source stats available.\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Market Overview\n\n")
	if len(r.Market) > 0 {
		sb.WriteString("| Component | Brand | Name | Category | Listings | Available | Ambiguous | Min | Median | Max |\n")
		sb.WriteString("|-----------|-------|------|----------|----------|-----------|-----------|-----|--------|-----|\n")
		for _, m := range r.Market {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d | %d | %d | $%d | $%d | $%d |\n",
				m.ComponentID, m.Brand, m.Name, m.Category, m.Listings,
				m.Available, m.Ambiguous, m.MinPriceUSD, m.MedianPriceUSD, m.MaxPriceUSD))
		}
	} else {
		sb.WriteString("No recent listings.\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Flagged Listings\n\n")
	if len(r.Flagged) > 0 {
		sb.WriteString("| Listing | Source | Title | Price | Action | Flags |\n")
		sb.WriteString("|---------|--------|-------|-------|--------|-------|\n")
		for _, f := range r.Flagged {
			price := "-"
			if f.PriceUSD != nil {
				price = fmt.Sprintf("$%d", *f.PriceUSD)
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s |\n",
				f.ListingID, f.Source, f.Title, price, f.Action,
				strings.Join(f.Flags, ", ")))
		}
	} else {
		sb.WriteString("No flagged listings in the window.\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Pending Catalog Candidates\n\n")
	if len(r.PendingCandidates) > 0 {
		sb.WriteString("| Brand | Model | Category | Sightings | Price Range | Quality |\n")
		sb.WriteString("|-------|-------|----------|-----------|-------------|--------|\n")
		for _, c := range r.PendingCandidates {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %s | %d |\n",
				c.Brand, c.Model, c.Category, c.Listings,
				priceRange(c.MinPriceUSD, c.MaxPriceUSD), c.QualityScore))
		}
	} else {
		sb.WriteString("No pending candidates.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func priceRange(min, max *int) string {
	switch {
	case min == nil && max == nil:
		return "-"
	case min != nil && max != nil && *min != *max:
		return fmt.Sprintf("$%d-$%d", *min, *max)
	case min != nil:
		return fmt.Sprintf("$%d", *min)
	default:
		return fmt.Sprintf("$%d", *max)
	}
}
