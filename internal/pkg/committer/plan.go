// Package committer collects Spanner mutations into a plan and applies them atomically.
//
// Repositories build mutations but never apply them; the caller gathers them into a
// CommitPlan and hands the plan to a Committer:
//
//	plan := committer.NewPlan()
//	plan.Add(runRepo.InsertMut(run))
//	return comm.Apply(ctx, plan)
//
// When mutations depend on a value read in the same transaction (the shared error log is
// read, appended to and written back), use ApplyWithReadWriteTransaction, or
// ApplyWithVersionCheck to guard a row by its version column.
package committer

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/spanner"
	"google.golang.org/grpc/codes"
)

// ErrVersionConflict is returned when a guarded row changed since it was read.
var ErrVersionConflict = errors.New("optimistic lock conflict")

// CommitPlan is an ordered collection of mutations applied in one transaction.
type CommitPlan struct {
	mutations []*spanner.Mutation
}

// NewPlan creates a new empty CommitPlan.
func NewPlan() *CommitPlan {
	return &CommitPlan{
		mutations: make([]*spanner.Mutation, 0),
	}
}

// Add adds a mutation to the plan. Nil mutations are ignored.
func (cp *CommitPlan) Add(mut *spanner.Mutation) {
	if mut != nil {
		cp.mutations = append(cp.mutations, mut)
	}
}

// AddMultiple adds multiple mutations to the plan.
func (cp *CommitPlan) AddMultiple(muts []*spanner.Mutation) {
	for _, mut := range muts {
		cp.Add(mut)
	}
}

// Mutations returns all collected mutations.
func (cp *CommitPlan) Mutations() []*spanner.Mutation {
	return cp.mutations
}

// IsEmpty returns true if the plan has no mutations.
func (cp *CommitPlan) IsEmpty() bool {
	return len(cp.mutations) == 0
}

// Count returns the number of mutations in the plan.
func (cp *CommitPlan) Count() int {
	return len(cp.mutations)
}

// VersionGuard identifies a row whose version column must still hold an expected value.
type VersionGuard struct {
	Table    string
	Key      spanner.Key
	Column   string
	Expected int64
}

// Committer executes CommitPlans against Spanner.
type Committer struct {
	client *spanner.Client
}

// NewCommitter creates a new Committer.
func NewCommitter(client *spanner.Client) *Committer {
	return &Committer{client: client}
}

// Apply executes the plan atomically.
func (c *Committer) Apply(ctx context.Context, plan *CommitPlan) error {
	if plan == nil || plan.IsEmpty() {
		return nil
	}

	if _, err := c.client.Apply(ctx, plan.Mutations()); err != nil {
		return fmt.Errorf("failed to apply commit plan: %w", err)
	}
	return nil
}

// ApplyWithReadWriteTransaction runs fn inside a read-write transaction. Spanner retries fn
// when the transaction aborts, so fn must not have side effects outside txn.
func (c *Committer) ApplyWithReadWriteTransaction(ctx context.Context, fn func(context.Context, *spanner.ReadWriteTransaction) error) error {
	if _, err := c.client.ReadWriteTransaction(ctx, fn); err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}

// ApplyWithVersionCheck applies the plan only if the guarded row still carries the expected
// version. A missing row is treated as version 0. Returns ErrVersionConflict otherwise.
func (c *Committer) ApplyWithVersionCheck(ctx context.Context, guard VersionGuard, plan *CommitPlan) error {
	if plan == nil || plan.IsEmpty() {
		return nil
	}

	_, err := c.client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		current, err := ReadVersion(ctx, txn, guard.Table, guard.Key, guard.Column)
		if err != nil {
			return err
		}
		if current != guard.Expected {
			return fmt.Errorf("%w: %s expected version %d, got %d", ErrVersionConflict, guard.Table, guard.Expected, current)
		}
		return txn.BufferWrite(plan.Mutations())
	})
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return err
		}
		return fmt.Errorf("failed to apply commit plan with version check: %w", err)
	}
	return nil
}

// ReadVersion reads an INT64 version column inside txn; a missing row reads as 0.
func ReadVersion(ctx context.Context, txn *spanner.ReadWriteTransaction, table string, key spanner.Key, column string) (int64, error) {
	row, err := txn.ReadRow(ctx, table, key, []string{column})
	if err != nil {
		if spanner.ErrCode(err) == codes.NotFound {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read %s version: %w", table, err)
	}

	var version spanner.NullInt64
	if err := row.Column(0, &version); err != nil {
		return 0, fmt.Errorf("failed to parse %s version: %w", table, err)
	}
	return version.Int64, nil
}
