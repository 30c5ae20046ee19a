package contracts

import (
	"context"
	"time"

	"github.com/light-bringer/metasync-service/internal/app/propagation/domain"
)

// RunFilter narrows a run history listing.
type RunFilter struct {
	DefinitionID string
	State        string
	Limit        int
}

// RunRepository stores the history of propagation runs.
type RunRepository interface {
	Save(ctx context.Context, run *domain.Run) error
	List(ctx context.Context, filter RunFilter) ([]*domain.Run, error)
	// DeleteFinishedBefore removes runs finished before cutoff, or only counts them on dryRun.
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time, dryRun bool) (int64, error)
}
