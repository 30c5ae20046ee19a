package m_run

import (
	"time"

	"cloud.google.com/go/spanner"
)

// Data represents the database model for the propagation_runs table.
type Data struct {
	RunID        string
	DefinitionID string
	Category     string
	State        string
	Resolved     int64
	Applied      int64
	Rejected     int64
	Failed       int64
	Skipped      int64
	ErrorMessage spanner.NullString
	StartedAt    time.Time
	FinishedAt   time.Time
}
