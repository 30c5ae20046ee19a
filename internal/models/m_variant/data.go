package m_variant

import (
	"time"

	"cloud.google.com/go/spanner"
)

// Data represents the database model for the product_variants table.
type Data struct {
	ProductID         string
	VariantID         string
	Position          int64
	Title             string
	OptionValues      []string
	SKU               spanner.NullString
	Barcode           spanner.NullString
	Price             spanner.NullString
	CompareAtPrice    spanner.NullString
	InventoryQuantity spanner.NullInt64
	Metafields        string // JSON object keyed by "namespace.key"
	UpdatedAt         time.Time
}
