package domain

// Category classifies a catalog entry by equipment type.
type Category string

const (
	CategoryHeadphone Category = "headphone"
	CategoryIEM       Category = "iem"
	CategoryDAC       Category = "dac"
	CategoryAmp       Category = "amp"
	CategoryDACAmp    Category = "dac_amp"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryHeadphone, CategoryIEM, CategoryDAC, CategoryAmp, CategoryDACAmp:
		return true
	}
	return false
}

// CatalogEntry is a curated, known audio-product record.
// Read-only to the pipeline; lifecycle owned by the curation workflow.
// Corresponds to catalog_entries table in PostgreSQL.
type CatalogEntry struct {
	EntryID      string            // PRIMARY KEY
	Brand        string            // canonical brand, e.g. "Sennheiser"
	Name         string            // canonical product name, e.g. "HD 600"
	Category     Category          // headphone | iem | dac | amp | dac_amp
	BrandAliases []string          // alternate brand spellings, e.g. "senn"
	NameAliases  []string          // product-variant aliases, e.g. "HD600", "HD-600"
	PriceNewUSD  *int              // reference new price (nullable)
	PriceUsedUSD *int              // reference used price (nullable)
	Specs        map[string]string // free-form spec key/values
	CreatedAt    int64             // record creation timestamp
}
