package m_definition

import "time"

// Data represents the database model for the definitions table.
type Data struct {
	DefinitionID    string
	DefinitionType  string
	Fields          string // JSON object of field name to string or null
	ReferenceFields string // JSON object of field name to referenced definition id
	UpdatedAt       time.Time
}
