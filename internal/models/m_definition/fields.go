package m_definition

// Field name constants for the definitions table.
const (
	TableName = "definitions"

	DefinitionID    = "definition_id"
	DefinitionType  = "definition_type"
	Fields          = "fields"
	ReferenceFields = "reference_fields"
	UpdatedAt       = "updated_at"
)

// Columns lists every column in Data order.
var Columns = []string{DefinitionID, DefinitionType, Fields, ReferenceFields, UpdatedAt}
