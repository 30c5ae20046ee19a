package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/light-bringer/metasync-service/internal/app/propagation/contracts"
	"github.com/light-bringer/metasync-service/internal/app/propagation/domain"
)

// FakeRunRepo is an in-memory contracts.RunRepository.
type FakeRunRepo struct {
	mu   sync.Mutex
	runs []*domain.Run

	SaveErr error
}

var _ contracts.RunRepository = (*FakeRunRepo)(nil)

// NewFakeRunRepo creates an empty run repository.
func NewFakeRunRepo() *FakeRunRepo {
	return &FakeRunRepo{}
}

func (r *FakeRunRepo) Save(ctx context.Context, run *domain.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveErr != nil {
		return r.SaveErr
	}
	cp := *run
	r.runs = append(r.runs, &cp)
	return nil
}

// List returns matching runs, most recent first.
func (r *FakeRunRepo) List(ctx context.Context, filter contracts.RunFilter) ([]*domain.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Run
	for i := len(r.runs) - 1; i >= 0; i-- {
		run := r.runs[i]
		if filter.DefinitionID != "" && run.DefinitionID != filter.DefinitionID {
			continue
		}
		if filter.State != "" && string(run.State) != filter.State {
			continue
		}
		out = append(out, run)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (r *FakeRunRepo) DeleteFinishedBefore(ctx context.Context, cutoff time.Time, dryRun bool) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.runs[:0:0]
	var n int64
	for _, run := range r.runs {
		if run.FinishedAt.Before(cutoff) {
			n++
			if dryRun {
				kept = append(kept, run)
			}
			continue
		}
		kept = append(kept, run)
	}
	r.runs = kept
	return n, nil
}

// Runs returns all saved runs in save order.
func (r *FakeRunRepo) Runs() []*domain.Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.Run(nil), r.runs...)
}
