package repo

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/spanner"
	"google.golang.org/api/iterator"

	"github.com/light-bringer/metasync-service/internal/app/propagation/contracts"
	"github.com/light-bringer/metasync-service/internal/app/propagation/domain"
	"github.com/light-bringer/metasync-service/internal/models/m_run"
	"github.com/light-bringer/metasync-service/internal/pkg/committer"
	"github.com/light-bringer/metasync-service/internal/pkg/query"
)

// RunRepo implements RunRepository for Spanner.
type RunRepo struct {
	client    *spanner.Client
	committer *committer.Committer
	model     *m_run.Model
}

var _ contracts.RunRepository = (*RunRepo)(nil)

// NewRunRepo creates a new RunRepo.
func NewRunRepo(client *spanner.Client, comm *committer.Committer) *RunRepo {
	return &RunRepo{
		client:    client,
		committer: comm,
		model:     m_run.NewModel(),
	}
}

// InsertMut creates a mutation for inserting a finished run.
func (r *RunRepo) InsertMut(run *domain.Run) *spanner.Mutation {
	return r.model.InsertMut(runToData(run))
}

// Save records a finished run.
func (r *RunRepo) Save(ctx context.Context, run *domain.Run) error {
	plan := committer.NewPlan()
	plan.Add(r.InsertMut(run))
	if err := r.committer.Apply(ctx, plan); err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.RunID, err)
	}
	return nil
}

// List returns runs matching filter, most recent first.
func (r *RunRepo) List(ctx context.Context, filter contracts.RunFilter) ([]*domain.Run, error) {
	stmt := listRunsQuery(filter).Build()

	iter := r.client.Single().Query(ctx, stmt)
	defer iter.Stop()

	var runs []*domain.Run
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate runs: %w", err)
		}

		var data m_run.Data
		if err := row.Columns(
			&data.RunID,
			&data.DefinitionID,
			&data.Category,
			&data.State,
			&data.Resolved,
			&data.Applied,
			&data.Rejected,
			&data.Failed,
			&data.Skipped,
			&data.ErrorMessage,
			&data.StartedAt,
			&data.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, dataToRun(&data))
	}
	return runs, nil
}

// DeleteFinishedBefore removes runs finished before cutoff with a partitioned DML delete,
// or counts them when dryRun is set.
func (r *RunRepo) DeleteFinishedBefore(ctx context.Context, cutoff time.Time, dryRun bool) (int64, error) {
	b := query.From(m_run.TableName).Where(query.Lt(m_run.FinishedAt, cutoff))

	if dryRun {
		iter := r.client.Single().Query(ctx, b.Count().Build())
		defer iter.Stop()
		row, err := iter.Next()
		if err != nil {
			return 0, fmt.Errorf("failed to count runs: %w", err)
		}
		var n int64
		if err := row.Columns(&n); err != nil {
			return 0, fmt.Errorf("failed to parse count: %w", err)
		}
		return n, nil
	}

	n, err := r.client.PartitionedUpdate(ctx, b.BuildDelete())
	if err != nil {
		return 0, fmt.Errorf("failed to delete runs: %w", err)
	}
	return n, nil
}

func listRunsQuery(filter contracts.RunFilter) *query.Builder {
	b := query.From(m_run.TableName).Select(m_run.Columns...)
	if filter.DefinitionID != "" {
		b = b.Where(query.Eq(m_run.DefinitionID, filter.DefinitionID))
	}
	if filter.State != "" {
		b = b.Where(query.Eq(m_run.State, filter.State))
	}
	b = b.OrderBy(m_run.StartedAt, query.Desc).OrderBy(m_run.RunID, query.Asc)
	if filter.Limit > 0 {
		b = b.Limit(int64(filter.Limit))
	}
	return b
}

func runToData(run *domain.Run) *m_run.Data {
	return &m_run.Data{
		RunID:        run.RunID,
		DefinitionID: run.DefinitionID,
		Category:     run.Category,
		State:        string(run.State),
		Resolved:     int64(run.Counts.Resolved),
		Applied:      int64(run.Counts.Applied),
		Rejected:     int64(run.Counts.Rejected),
		Failed:       int64(run.Counts.Failed),
		Skipped:      int64(run.Counts.Skipped),
		ErrorMessage: spanner.NullString{StringVal: run.ErrorMessage, Valid: run.ErrorMessage != ""},
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
	}
}

func dataToRun(data *m_run.Data) *domain.Run {
	return &domain.Run{
		RunID:        data.RunID,
		DefinitionID: data.DefinitionID,
		Category:     data.Category,
		State:        domain.RunState(data.State),
		Counts: domain.Counts{
			Resolved: int(data.Resolved),
			Applied:  int(data.Applied),
			Rejected: int(data.Rejected),
			Failed:   int(data.Failed),
			Skipped:  int(data.Skipped),
		},
		ErrorMessage: data.ErrorMessage.StringVal,
		StartedAt:    data.StartedAt,
		FinishedAt:   data.FinishedAt,
	}
}
