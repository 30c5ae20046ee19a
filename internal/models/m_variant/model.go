package m_variant

import (
	"cloud.google.com/go/spanner"
)

// Model provides a facade for type-safe operations on the product_variants table.
type Model struct{}

// NewModel creates a new Model instance.
func NewModel() *Model {
	return &Model{}
}

// InsertMut creates a Spanner mutation for inserting a variant.
func (m *Model) InsertMut(data *Data) *spanner.Mutation {
	return spanner.InsertOrUpdate(
		TableName,
		Columns,
		[]interface{}{
			data.ProductID,
			data.VariantID,
			data.Position,
			data.Title,
			data.OptionValues,
			data.SKU,
			data.Barcode,
			data.Price,
			data.CompareAtPrice,
			data.InventoryQuantity,
			data.Metafields,
			spanner.CommitTimestamp,
		},
	)
}

// UpdateMut creates a Spanner mutation for updating specific variant fields.
func (m *Model) UpdateMut(productID, variantID string, updates map[string]interface{}) *spanner.Mutation {
	if len(updates) == 0 {
		return nil
	}

	updates[UpdatedAt] = spanner.CommitTimestamp

	columns := []string{ProductID, VariantID}
	values := []interface{}{productID, variantID}
	for col, val := range updates {
		columns = append(columns, col)
		values = append(values, val)
	}

	return spanner.Update(TableName, columns, values)
}
