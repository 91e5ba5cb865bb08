package domain

// PriceObservation is one priced sighting of a catalog component,
// emitted per run for downstream analytics.
// Corresponds to price_observations table in ClickHouse.
type PriceObservation struct {
	RunID       string
	ComponentID string
	ListingID   string
	Source      string
	Condition   string
	PriceUSD    int
	ObservedAt  int64 // Unix timestamp in seconds
}
