package m_definition_reference

import "time"

// Data represents the database model for the definition_references table.
type Data struct {
	DefinitionID   string
	ReferencerID   string
	ReferencerType string
	CreatedAt      time.Time
}
