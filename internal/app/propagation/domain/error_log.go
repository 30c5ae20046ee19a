package domain

import (
	"errors"
	"fmt"
)

// RequestField is the field named in entries for failures not tied to a field.
const RequestField = "request"

// FormatEntry renders an error log entry: "[Brand Update] (gid://...) price - invalid".
func FormatEntry(c Category, definitionID, field, message string) string {
	return fmt.Sprintf("[%s Update] (%s) %s - %s", c.DisplayName(), definitionID, field, message)
}

// EntriesForOutcome renders the entries an outcome appends: one per user error when
// rejected, one for a failed or skipped product, none when applied.
func EntriesForOutcome(c Category, definitionID string, o Outcome) []string {
	switch o.Kind {
	case OutcomeRejected:
		if len(o.UserErrors) == 0 {
			return []string{FormatEntry(c, definitionID, RequestField, "update rejected without details")}
		}
		entries := make([]string, 0, len(o.UserErrors))
		for _, ue := range o.UserErrors {
			entries = append(entries, FormatEntry(c, definitionID, ue.FieldPath(), ue.Message))
		}
		return entries
	case OutcomeFailed, OutcomeSkipped:
		field, msg := RequestField, "unknown error"
		if o.Err != nil {
			msg = o.Err.Error()
			var te *TransformationError
			if errors.As(o.Err, &te) {
				field, msg = te.Field, te.Err.Error()
			}
		}
		return []string{FormatEntry(c, definitionID, field, msg)}
	default:
		return nil
	}
}
