package m_variant

// Field name constants for the product_variants table, interleaved in products.
const (
	TableName = "product_variants"

	ProductID         = "product_id"
	VariantID         = "variant_id"
	Position          = "position"
	Title             = "title"
	OptionValues      = "option_values"
	SKU               = "sku"
	Barcode           = "barcode"
	Price             = "price"
	CompareAtPrice    = "compare_at_price"
	InventoryQuantity = "inventory_quantity"
	Metafields        = "metafields"
	UpdatedAt         = "updated_at"
)

// Columns lists every column in Data order.
var Columns = []string{
	ProductID, VariantID, Position, Title, OptionValues, SKU, Barcode,
	Price, CompareAtPrice, InventoryQuantity, Metafields, UpdatedAt,
}
