package m_error_log

import (
	"cloud.google.com/go/spanner"
)

// Model provides a facade for type-safe operations on the shop_error_logs table.
type Model struct{}

// NewModel creates a new Model instance.
func NewModel() *Model {
	return &Model{}
}

// UpsertMut creates a Spanner mutation writing the whole log of a shop.
func (m *Model) UpsertMut(data *Data) *spanner.Mutation {
	return spanner.InsertOrUpdate(
		TableName,
		[]string{ShopID, Entries, Version, UpdatedAt},
		[]interface{}{data.ShopID, data.Entries, data.Version, spanner.CommitTimestamp},
	)
}

// Key returns the primary key of a shop's log.
func (m *Model) Key(shopID string) spanner.Key {
	return spanner.Key{shopID}
}
