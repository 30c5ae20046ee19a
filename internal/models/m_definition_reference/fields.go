package m_definition_reference

// Field name constants for the definition_references table. Rows are keyed by
// (definition_id, referencer_id), which is also the backlink pagination order.
const (
	TableName = "definition_references"

	DefinitionID   = "definition_id"
	ReferencerID   = "referencer_id"
	ReferencerType = "referencer_type"
	CreatedAt      = "created_at"
)
