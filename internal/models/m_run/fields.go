package m_run

// Field name constants for the propagation_runs table.
const (
	TableName = "propagation_runs"

	RunID        = "run_id"
	DefinitionID = "definition_id"
	Category     = "category"
	State        = "state"
	Resolved     = "resolved"
	Applied      = "applied"
	Rejected     = "rejected"
	Failed       = "failed"
	Skipped      = "skipped"
	ErrorMessage = "error_message"
	StartedAt    = "started_at"
	FinishedAt   = "finished_at"
)

// Columns lists every column in Data order.
var Columns = []string{
	RunID, DefinitionID, Category, State,
	Resolved, Applied, Rejected, Failed, Skipped,
	ErrorMessage, StartedAt, FinishedAt,
}
