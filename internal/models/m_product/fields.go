package m_product

// Field name constants for the products table.
// These provide type-safe field references and prevent typos.
const (
	TableName = "products"

	ProductID   = "product_id"
	ProductType = "product_type"
	Vendor      = "vendor"
	Metafields  = "metafields"
	Version     = "version"
	CreatedAt   = "created_at"
	UpdatedAt   = "updated_at"
)

// Columns lists every column in Data order.
var Columns = []string{ProductID, ProductType, Vendor, Metafields, Version, CreatedAt, UpdatedAt}
