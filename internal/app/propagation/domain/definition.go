package domain

// Definition field names read by the rules.
const (
	FieldName              = "name"
	FieldProductType       = "productType"
	FieldAssortment        = "assortment"
	FieldSize              = "size"
	FieldD2CPrice          = "D2CPrice"
	FieldD2CCompareAtPrice = "D2CCompareAtPrice"
	FieldB2BPrice          = "B2BPrice"
	FieldB2BCompareAtPrice = "B2BCompareAtPrice"
	FieldB2BCount          = "b2b_count"
	FieldClearance         = "clearance"
	FieldCount             = "count"
)

// Definition is a shared, typed reference object. Fields holds raw values; a nil value is
// a JSON null. ReferenceFields maps a field to the id of the definition it references.
// Resolved is filled by the orchestrator with the referenced definitions a rule asked for.
type Definition struct {
	ID              string
	Type            string
	Fields          map[string]*string
	ReferenceFields map[string]string
	Resolved        map[string]Definition
}

// Value returns the raw value of a field, nil when absent or null.
func (d Definition) Value(field string) *string {
	if d.Fields == nil {
		return nil
	}
	return d.Fields[field]
}

// ReferenceID returns the id of the definition a field references.
func (d Definition) ReferenceID(field string) (string, bool) {
	id, ok := d.ReferenceFields[field]
	return id, ok && id != ""
}

// WithResolved returns a copy of d with ref attached under field.
func (d Definition) WithResolved(field string, ref Definition) Definition {
	resolved := make(map[string]Definition, len(d.Resolved)+1)
	for k, v := range d.Resolved {
		resolved[k] = v
	}
	resolved[field] = ref
	d.Resolved = resolved
	return d
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
