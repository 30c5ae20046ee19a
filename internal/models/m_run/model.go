package m_run

import (
	"cloud.google.com/go/spanner"
)

// Model provides a facade for type-safe operations on the propagation_runs table.
type Model struct{}

// NewModel creates a new Model instance.
func NewModel() *Model {
	return &Model{}
}

// InsertMut creates a Spanner mutation for inserting a run.
func (m *Model) InsertMut(data *Data) *spanner.Mutation {
	return spanner.Insert(
		TableName,
		Columns,
		[]interface{}{
			data.RunID,
			data.DefinitionID,
			data.Category,
			data.State,
			data.Resolved,
			data.Applied,
			data.Rejected,
			data.Failed,
			data.Skipped,
			data.ErrorMessage,
			data.StartedAt,
			data.FinishedAt,
		},
	)
}
