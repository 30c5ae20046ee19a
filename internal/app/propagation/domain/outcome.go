package domain

import "strings"

// OutcomeKind classifies the result of writing one change-set.
type OutcomeKind string

const (
	OutcomeApplied  OutcomeKind = "applied"
	OutcomeRejected OutcomeKind = "rejected"
	OutcomeFailed   OutcomeKind = "failed"
	// OutcomeSkipped means no change-set could be computed; nothing was written.
	OutcomeSkipped OutcomeKind = "skipped"
)

// UserError is a validation error reported by the catalog for a write.
type UserError struct {
	Field   []string
	Message string
}

// FieldPath joins the field path, "request" when the catalog gave none.
func (u UserError) FieldPath() string {
	if len(u.Field) == 0 {
		return RequestField
	}
	return strings.Join(u.Field, ".")
}

// Outcome of applying one change-set.
type Outcome struct {
	ProductID  string
	Kind       OutcomeKind
	UserErrors []UserError
	Err        error
}
