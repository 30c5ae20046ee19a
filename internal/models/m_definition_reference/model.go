package m_definition_reference

import (
	"cloud.google.com/go/spanner"
)

// Model provides a facade for type-safe operations on the definition_references table.
type Model struct{}

// NewModel creates a new Model instance.
func NewModel() *Model {
	return &Model{}
}

// InsertMut creates a Spanner mutation linking a referencer to a definition.
func (m *Model) InsertMut(data *Data) *spanner.Mutation {
	return spanner.InsertOrUpdate(
		TableName,
		[]string{DefinitionID, ReferencerID, ReferencerType, CreatedAt},
		[]interface{}{data.DefinitionID, data.ReferencerID, data.ReferencerType, spanner.CommitTimestamp},
	)
}
