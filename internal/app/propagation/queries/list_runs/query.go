package list_runs

import (
	"context"

	"github.com/light-bringer/metasync-service/internal/app/propagation/contracts"
	"github.com/light-bringer/metasync-service/internal/app/propagation/domain"
)

// Request contains filtering parameters for listing runs.
type Request struct {
	DefinitionID string // Filter by definition ID
	State        string // Filter by terminal state ("done", "aborted", "noop")
	Limit        int    // Max number of runs to return (default: 50)
}

// Query handles the list runs query.
type Query struct {
	runs contracts.RunRepository
}

// NewQuery creates a new list runs query.
func NewQuery(runs contracts.RunRepository) *Query {
	return &Query{
		runs: runs,
	}
}

// Execute lists recorded runs, most recent first.
func (q *Query) Execute(ctx context.Context, req *Request) ([]*domain.Run, error) {
	if req.Limit <= 0 {
		req.Limit = 50 // Default limit
	}
	if req.Limit > 500 {
		req.Limit = 500 // Max limit
	}

	return q.runs.List(ctx, contracts.RunFilter{
		DefinitionID: req.DefinitionID,
		State:        req.State,
		Limit:        req.Limit,
	})
}
