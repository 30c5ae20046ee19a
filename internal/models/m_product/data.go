package m_product

import (
	"time"

	"cloud.google.com/go/spanner"
)

// Data represents the database model for the products table.
type Data struct {
	ProductID   string
	ProductType spanner.NullString
	Vendor      spanner.NullString
	Metafields  string // JSON object keyed by "namespace.key"
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
