package domain

// ChangeTracker records which fields a change-set overwrites and with what value.
// A field set to nil is an explicit overwrite with null; an untracked field is left as is.
type ChangeTracker struct {
	values map[string]*string
	order  []string
}

// NewChangeTracker creates a new ChangeTracker.
func NewChangeTracker() *ChangeTracker {
	return &ChangeTracker{values: make(map[string]*string)}
}

// Set marks field as overwritten with value.
func (ct *ChangeTracker) Set(field string, value *string) {
	if _, seen := ct.values[field]; !seen {
		ct.order = append(ct.order, field)
	}
	ct.values[field] = value
}

// Get returns the new value of field and whether the field is overwritten.
func (ct *ChangeTracker) Get(field string) (*string, bool) {
	v, ok := ct.values[field]
	return v, ok
}

// Dirty checks if a field is overwritten.
func (ct *ChangeTracker) Dirty(field string) bool {
	_, ok := ct.values[field]
	return ok
}

// HasChanges returns true if any field is overwritten.
func (ct *ChangeTracker) HasChanges() bool {
	return len(ct.order) > 0
}

// DirtyFields returns the overwritten fields in the order they were first set.
func (ct *ChangeTracker) DirtyFields() []string {
	out := make([]string, len(ct.order))
	copy(out, ct.order)
	return out
}
