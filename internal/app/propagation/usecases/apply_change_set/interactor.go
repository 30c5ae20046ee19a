package apply_change_set

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/light-bringer/metasync-service/internal/app/propagation/contracts"
	"github.com/light-bringer/metasync-service/internal/app/propagation/domain"
	"github.com/light-bringer/metasync-service/internal/pkg/obs"
	"github.com/light-bringer/metasync-service/internal/pkg/retry"
)

// Request contains one product's change-set and the run it belongs to.
type Request struct {
	DefinitionID string
	Category     domain.Category
	ProductID    string
	ChangeSet    *domain.ChangeSet
}

// Interactor writes change-sets and records failures in the shared error log.
type Interactor struct {
	catalog     contracts.Catalog
	errorLog    contracts.ErrorLog
	callTimeout time.Duration
	logger      *slog.Logger
	metrics     *obs.Metrics
}

// NewInteractor creates a new apply change-set interactor. errorLog should be the
// process-wide single writer.
func NewInteractor(
	catalog contracts.Catalog,
	errorLog contracts.ErrorLog,
	callTimeout time.Duration,
	logger *slog.Logger,
	metrics *obs.Metrics,
) *Interactor {
	return &Interactor{
		catalog:     catalog,
		errorLog:    errorLog,
		callTimeout: callTimeout,
		logger:      obs.OrNop(logger),
		metrics:     metrics,
	}
}

// Execute issues exactly one write for the change-set. The write is never retried.
// Rejected and failed outcomes are appended to the error log before returning.
func (i *Interactor) Execute(ctx context.Context, req *Request) domain.Outcome {
	outcome := domain.Outcome{ProductID: req.ProductID}

	if req.ChangeSet == nil {
		outcome.Kind = domain.OutcomeFailed
		outcome.Err = fmt.Errorf("change-set is required")
		i.LogFailure(ctx, req.Category, req.DefinitionID, outcome)
		return outcome
	}

	var result *contracts.WriteResult
	err := retry.Do(ctx, retry.Once(i.callTimeout), nil, func(ctx context.Context) error {
		var err error
		result, err = i.catalog.WriteProductChangeSet(ctx, req.ChangeSet)
		return err
	})

	switch {
	case err != nil:
		outcome.Kind = domain.OutcomeFailed
		outcome.Err = err
	case !result.Applied():
		outcome.Kind = domain.OutcomeRejected
		outcome.UserErrors = result.UserErrors
	default:
		outcome.Kind = domain.OutcomeApplied
	}

	if outcome.Kind != domain.OutcomeApplied {
		i.LogFailure(ctx, req.Category, req.DefinitionID, outcome)
	} else {
		i.metrics.ProductOutcome(ctx, string(req.Category), string(outcome.Kind))
	}
	return outcome
}

// LogFailure appends the entries for a non-applied outcome. A failed append is never
// returned to the caller: it is logged and counted instead.
func (i *Interactor) LogFailure(ctx context.Context, category domain.Category, definitionID string, outcome domain.Outcome) {
	i.metrics.ProductOutcome(ctx, string(category), string(outcome.Kind))

	entries := domain.EntriesForOutcome(category, definitionID, outcome)
	if len(entries) == 0 {
		return
	}

	i.logger.Warn("product not updated",
		"definition_id", definitionID,
		"category", string(category),
		"product_id", outcome.ProductID,
		"outcome", string(outcome.Kind),
		"entries", len(entries))

	// The run may be past its deadline; the failure must still be recorded.
	logCtx := context.WithoutCancel(ctx)
	if err := i.errorLog.Append(logCtx, entries...); err != nil {
		i.logger.Error("failed to record product failure in error log",
			"definition_id", definitionID,
			"product_id", outcome.ProductID,
			"lost_entries", entries,
			"error", err)
		i.metrics.ErrorLogWriteFailed(ctx, len(entries))
	}
}
