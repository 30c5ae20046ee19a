// Package trigger turns fire-and-forget "definition updated" deliveries into propagation
// runs without letting the number of concurrent runs grow unbounded.
package trigger

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/light-bringer/metasync-service/internal/app/propagation/domain"
	"github.com/light-bringer/metasync-service/internal/app/propagation/usecases/propagate_definition"
	"github.com/light-bringer/metasync-service/internal/pkg/obs"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("trigger dispatcher is closed")

// DefaultMaxConcurrentRuns caps runs in flight across definitions.
const DefaultMaxConcurrentRuns = 2

// Propagator runs one propagation.
type Propagator interface {
	Execute(ctx context.Context, req *propagate_definition.Request) *domain.Completion
}

// Disposition says what Submit did with a delivery.
type Disposition string

const (
	// Started: a run for the definition was scheduled.
	Started Disposition = "started"
	// Coalesced: a run for the definition is in flight; one follow-up run is scheduled
	// after it, however many deliveries arrive meanwhile.
	Coalesced Disposition = "coalesced"
)

type pending struct {
	category string
	rerun    bool
}

// Dispatcher schedules runs in the background. Deliveries are at-least-once, so duplicates
// for a definition with a run in flight collapse into a single follow-up run that reads the
// latest definition values.
type Dispatcher struct {
	propagator Propagator
	sem        *semaphore.Weighted
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]*pending
	closed   bool
}

// NewDispatcher creates a dispatcher running at most maxRuns propagations at once.
func NewDispatcher(propagator Propagator, maxRuns int, logger *slog.Logger) *Dispatcher {
	if maxRuns <= 0 {
		maxRuns = DefaultMaxConcurrentRuns
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		propagator: propagator,
		sem:        semaphore.NewWeighted(int64(maxRuns)),
		logger:     obs.OrNop(logger),
		ctx:        ctx,
		cancel:     cancel,
		inflight:   make(map[string]*pending),
	}
}

// Submit schedules a propagation and returns without waiting for it.
func (d *Dispatcher) Submit(definitionID, category string) (Disposition, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return "", ErrClosed
	}
	if p, ok := d.inflight[definitionID]; ok {
		p.rerun = true
		p.category = category
		d.logger.Debug("delivery coalesced", "definition_id", definitionID)
		return Coalesced, nil
	}

	d.inflight[definitionID] = &pending{category: category}
	d.wg.Add(1)
	go d.run(definitionID)
	return Started, nil
}

// InFlight returns how many definitions have a run scheduled or running.
func (d *Dispatcher) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.inflight)
}

// Close stops accepting deliveries and waits for scheduled runs. When ctx ends first, the
// remaining runs are canceled and Close returns ctx.Err() once they have stopped.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) run(definitionID string) {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		p := d.inflight[definitionID]
		category := p.category
		p.rerun = false
		d.mu.Unlock()

		if err := d.acquire(); err != nil {
			d.mu.Lock()
			delete(d.inflight, definitionID)
			d.mu.Unlock()
			d.logger.Warn("run dropped on shutdown", "definition_id", definitionID)
			return
		}
		d.execute(definitionID, category)
		d.sem.Release(1)

		d.mu.Lock()
		if !p.rerun || d.ctx.Err() != nil {
			delete(d.inflight, definitionID)
			d.mu.Unlock()
			return
		}
		d.mu.Unlock()
	}
}

// acquire takes a run slot, failing once the dispatcher is canceled even if a slot
// became free at the same moment.
func (d *Dispatcher) acquire() error {
	if err := d.sem.Acquire(d.ctx, 1); err != nil {
		return err
	}
	if err := d.ctx.Err(); err != nil {
		d.sem.Release(1)
		return err
	}
	return nil
}

func (d *Dispatcher) execute(definitionID, category string) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("propagation panicked", "definition_id", definitionID, "panic", r)
		}
	}()
	d.propagator.Execute(d.ctx, &propagate_definition.Request{DefinitionID: definitionID, Category: category})
}
