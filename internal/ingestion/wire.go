package ingestion

import "hifi-market-lab/internal/domain"

// wireListing is the JSON shape shared by the HTTP and WebSocket feeds.
type wireListing struct {
	Source    string            `json:"source,omitempty"`
	URL       string            `json:"url"`
	Title     string            `json:"title"`
	Body      string            `json:"body,omitempty"`
	Seller    string            `json:"seller,omitempty"`
	SellerRep *int              `json:"seller_rep,omitempty"`
	PostedAt  int64             `json:"posted_at"`
	PriceUSD  *int              `json:"price_usd,omitempty"`
	Sold      bool              `json:"sold,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// toDomain converts a wire row, stamping the adapter's source name when
// the feed omits its own.
func (w *wireListing) toDomain(fallbackSource string) *domain.RawListing {
	source := w.Source
	if source == "" {
		source = fallbackSource
	}
	return &domain.RawListing{
		Source:      source,
		URL:         w.URL,
		Title:       w.Title,
		Body:        w.Body,
		Seller:      w.Seller,
		SellerRep:   w.SellerRep,
		PostedAt:    w.PostedAt,
		PriceHint:   w.PriceUSD,
		SoldSignal:  w.Sold,
		RawMetadata: w.Metadata,
	}
}
