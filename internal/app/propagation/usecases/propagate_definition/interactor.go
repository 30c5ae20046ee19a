package propagate_definition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/light-bringer/metasync-service/internal/app/propagation/contracts"
	"github.com/light-bringer/metasync-service/internal/app/propagation/domain"
	"github.com/light-bringer/metasync-service/internal/app/propagation/queries/resolve_references"
	"github.com/light-bringer/metasync-service/internal/app/propagation/usecases/apply_change_set"
	"github.com/light-bringer/metasync-service/internal/pkg/clock"
	"github.com/light-bringer/metasync-service/internal/pkg/obs"
	"github.com/light-bringer/metasync-service/internal/pkg/retry"
)

// DefaultWorkers is the per-run cap on products processed concurrently.
const DefaultWorkers = 4

// Request identifies the edited definition.
type Request struct {
	DefinitionID string
	Category     string
}

// Config bounds a run.
type Config struct {
	Workers int
	// RunTimeout bounds a whole run; zero means none.
	RunTimeout time.Duration
	// Reads is the budget of every definition and product read.
	Reads retry.Budget
}

// Interactor propagates one definition to every product referencing it.
type Interactor struct {
	catalog    contracts.Catalog
	resolver   *resolve_references.Query
	dispatcher *apply_change_set.Interactor
	runs       contracts.RunRepository
	clock      clock.Clock
	cfg        Config
	logger     *slog.Logger
	metrics    *obs.Metrics
}

// NewInteractor creates a new propagate definition interactor. runs may be nil, in which
// case run history is not recorded.
func NewInteractor(
	catalog contracts.Catalog,
	resolver *resolve_references.Query,
	dispatcher *apply_change_set.Interactor,
	runs contracts.RunRepository,
	clock clock.Clock,
	cfg Config,
	logger *slog.Logger,
	metrics *obs.Metrics,
) *Interactor {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	return &Interactor{
		catalog:    catalog,
		resolver:   resolver,
		dispatcher: dispatcher,
		runs:       runs,
		clock:      clock,
		cfg:        cfg,
		logger:     obs.OrNop(logger),
		metrics:    metrics,
	}
}

// Execute runs idle → resolving → processing → done. A failure while resolving ends the
// run as aborted before any product is touched; an unknown category ends it as noop.
// Once processing starts every resolved product is attempted and per-product failures
// only reach the error log.
func (i *Interactor) Execute(ctx context.Context, req *Request) *domain.Completion {
	run := &domain.Completion{
		RunID:        uuid.New().String(),
		DefinitionID: req.DefinitionID,
		Category:     req.Category,
		State:        domain.RunIdle,
		StartedAt:    i.clock.Now(),
	}
	logger := i.logger.With("run_id", run.RunID, "definition_id", req.DefinitionID, "category", req.Category)

	if i.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.cfg.RunTimeout)
		defer cancel()
	}

	category, ok := domain.ParseCategory(req.Category)
	if !ok {
		logger.Info("category not propagated")
		return i.finish(ctx, logger, run, domain.RunNoop, nil)
	}
	rule, _ := domain.RuleFor(category)
	run.Category = string(category)

	i.transition(logger, run, domain.RunResolving)
	def, err := i.loadDefinition(ctx, logger, req.DefinitionID, rule)
	if err != nil {
		return i.finish(ctx, logger, run, domain.RunAborted, err)
	}
	productIDs, err := i.resolver.Execute(ctx, req.DefinitionID)
	if err != nil {
		return i.finish(ctx, logger, run, domain.RunAborted, err)
	}
	run.Counts.Resolved = len(productIDs)

	i.transition(logger, run, domain.RunProcessing)
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(i.cfg.Workers)
	for _, productID := range productIDs {
		productID := productID
		g.Go(func() error {
			outcome := i.processProduct(ctx, category, rule, def, productID)
			mu.Lock()
			run.Counts.Record(outcome.Kind)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return i.finish(ctx, logger, run, domain.RunDone, nil)
}

// loadDefinition fetches the definition and every definition its rule reads through a
// reference field. Only a failure to fetch the definition itself is a resolution failure; a
// reference that cannot be fetched stays unresolved and the rule skips each product with a
// transformation error, so the failure reaches the error log.
func (i *Interactor) loadDefinition(ctx context.Context, logger *slog.Logger, definitionID string, rule domain.Rule) (domain.Definition, error) {
	def, err := i.fetchDefinition(ctx, definitionID)
	if err != nil {
		return domain.Definition{}, &domain.ResolutionError{DefinitionID: definitionID, Cause: err}
	}

	for _, field := range rule.References() {
		refID, ok := def.ReferenceID(field)
		if !ok {
			continue
		}
		ref, err := i.fetchDefinition(ctx, refID)
		if err != nil {
			logger.Warn("referenced definition unavailable", "field", field, "reference_id", refID, "error", err)
			continue
		}
		def = def.WithResolved(field, ref)
	}
	return def, nil
}

func (i *Interactor) fetchDefinition(ctx context.Context, id string) (domain.Definition, error) {
	var def *domain.Definition
	err := retry.Do(ctx, i.cfg.Reads, contracts.RetryableRead, func(ctx context.Context) error {
		var err error
		def, err = i.catalog.FetchDefinition(ctx, id)
		return err
	})
	if err != nil {
		return domain.Definition{}, err
	}
	return *def, nil
}

// processProduct computes and applies the change-set of one product. It never returns an
// error: every failure becomes an outcome and, when not applied, error log entries.
func (i *Interactor) processProduct(ctx context.Context, category domain.Category, rule domain.Rule, def domain.Definition, productID string) domain.Outcome {
	var product *domain.ProductSnapshot
	err := retry.Do(ctx, i.cfg.Reads, contracts.RetryableRead, func(ctx context.Context) error {
		var err error
		product, err = i.catalog.FetchProduct(ctx, productID)
		return err
	})
	if err != nil {
		kind := domain.OutcomeFailed
		if errors.Is(err, domain.ErrProductNotFound) {
			kind = domain.OutcomeSkipped
		}
		outcome := domain.Outcome{ProductID: productID, Kind: kind, Err: fmt.Errorf("fetch product: %w", err)}
		i.dispatcher.LogFailure(ctx, category, def.ID, outcome)
		return outcome
	}

	cs, err := rule.ComputeChangeSet(def, *product)
	if err != nil {
		outcome := domain.Outcome{ProductID: productID, Kind: domain.OutcomeSkipped, Err: err}
		i.dispatcher.LogFailure(ctx, category, def.ID, outcome)
		return outcome
	}
	if cs.IsEmpty() {
		return domain.Outcome{ProductID: productID, Kind: domain.OutcomeApplied}
	}

	return i.dispatcher.Execute(ctx, &apply_change_set.Request{
		DefinitionID: def.ID,
		Category:     category,
		ProductID:    productID,
		ChangeSet:    cs,
	})
}

func (i *Interactor) transition(logger *slog.Logger, run *domain.Completion, to domain.RunState) {
	logger.Debug("run state changed", "from", string(run.State), "to", string(to))
	run.State = to
}

func (i *Interactor) finish(ctx context.Context, logger *slog.Logger, run *domain.Completion, state domain.RunState, err error) *domain.Completion {
	i.transition(logger, run, state)
	run.Err = err
	run.FinishedAt = i.clock.Now()

	attrs := []any{
		"state", string(state),
		"resolved", run.Counts.Resolved,
		"applied", run.Counts.Applied,
		"rejected", run.Counts.Rejected,
		"failed", run.Counts.Failed,
		"skipped", run.Counts.Skipped,
		"duration", run.FinishedAt.Sub(run.StartedAt),
	}
	if err != nil {
		logger.Error("propagation aborted", append(attrs, "error", err)...)
	} else {
		logger.Info("propagation finished", attrs...)
	}
	i.metrics.RunFinished(ctx, run.Category, string(state))

	if i.runs != nil {
		if saveErr := i.runs.Save(context.WithoutCancel(ctx), domain.RunFromCompletion(run)); saveErr != nil {
			logger.Error("failed to record run", "error", saveErr)
		}
	}
	return run
}
