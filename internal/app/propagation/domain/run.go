package domain

import "time"

// RunState is the state of one propagation run.
type RunState string

const (
	RunIdle       RunState = "idle"
	RunResolving  RunState = "resolving"
	RunProcessing RunState = "processing"
	RunDone       RunState = "done"
	RunAborted    RunState = "aborted"
	RunNoop       RunState = "noop"
)

// Terminal reports whether no further transition is possible.
func (s RunState) Terminal() bool {
	return s == RunDone || s == RunAborted || s == RunNoop
}

// Counts tallies product outcomes of a run.
type Counts struct {
	Resolved int
	Applied  int
	Rejected int
	Failed   int
	Skipped  int
}

// Record adds one outcome to the tally.
func (c *Counts) Record(k OutcomeKind) {
	switch k {
	case OutcomeApplied:
		c.Applied++
	case OutcomeRejected:
		c.Rejected++
	case OutcomeFailed:
		c.Failed++
	case OutcomeSkipped:
		c.Skipped++
	}
}

// Attempted is the number of products that reached an outcome.
func (c Counts) Attempted() int {
	return c.Applied + c.Rejected + c.Failed + c.Skipped
}

// Completion is the result of a propagation run.
type Completion struct {
	RunID        string
	DefinitionID string
	Category     string
	State        RunState
	Counts       Counts
	Err          error
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Run is a recorded propagation run.
type Run struct {
	RunID        string
	DefinitionID string
	Category     string
	State        RunState
	Counts       Counts
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// RunFromCompletion converts a completion into its history record.
func RunFromCompletion(c *Completion) *Run {
	r := &Run{
		RunID:        c.RunID,
		DefinitionID: c.DefinitionID,
		Category:     c.Category,
		State:        c.State,
		Counts:       c.Counts,
		StartedAt:    c.StartedAt,
		FinishedAt:   c.FinishedAt,
	}
	if c.Err != nil {
		r.ErrorMessage = c.Err.Error()
	}
	return r
}
