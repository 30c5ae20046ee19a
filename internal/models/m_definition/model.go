package m_definition

import (
	"cloud.google.com/go/spanner"
)

// Model provides a facade for type-safe operations on the definitions table.
type Model struct{}

// NewModel creates a new Model instance.
func NewModel() *Model {
	return &Model{}
}

// InsertMut creates a Spanner mutation for inserting or replacing a definition.
func (m *Model) InsertMut(data *Data) *spanner.Mutation {
	return spanner.InsertOrUpdate(
		TableName,
		Columns,
		[]interface{}{
			data.DefinitionID,
			data.DefinitionType,
			data.Fields,
			data.ReferenceFields,
			spanner.CommitTimestamp,
		},
	)
}
