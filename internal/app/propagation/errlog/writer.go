// Package errlog owns every append to the shared error log of this process.
package errlog

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/light-bringer/metasync-service/internal/app/propagation/contracts"
	"github.com/light-bringer/metasync-service/internal/pkg/obs"
)

// ErrClosed is returned by Append after Close.
var ErrClosed = errors.New("error log writer is closed")

// maxBatch caps how many queued appends are folded into one store write.
const maxBatch = 64

type appendReq struct {
	ctx     context.Context
	entries []string
	done    chan error
}

// Writer is the single writer in front of an ErrorLog. Appends from all workers and runs
// are queued and applied by one goroutine, in arrival order. Appends already queued when
// the goroutine picks up work are folded into one store write. The store itself must make
// Append atomic against other processes.
type Writer struct {
	store   contracts.ErrorLog
	timeout time.Duration
	logger  *slog.Logger

	queue chan appendReq
	stop  chan struct{}
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

var _ contracts.ErrorLog = (*Writer)(nil)

// NewWriter starts the writer goroutine. timeout bounds each store write; zero means none.
// Call Close to stop it.
func NewWriter(store contracts.ErrorLog, timeout time.Duration, logger *slog.Logger) *Writer {
	w := &Writer{
		store:   store,
		timeout: timeout,
		logger:  obs.OrNop(logger),
		queue:   make(chan appendReq, maxBatch),
		stop:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

// Append queues entries and waits until they are stored or ctx is done. Entries whose
// caller gave up waiting may still be written.
func (w *Writer) Append(ctx context.Context, entries ...string) error {
	if len(entries) == 0 {
		return nil
	}

	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return ErrClosed
	}
	req := appendReq{ctx: ctx, entries: entries, done: make(chan error, 1)}
	select {
	case w.queue <- req:
	case <-ctx.Done():
		w.mu.RUnlock()
		return ctx.Err()
	}
	w.mu.RUnlock()

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Entries reads through to the store.
func (w *Writer) Entries(ctx context.Context) ([]string, error) {
	return w.store.Entries(ctx)
}

// Clear reads through to the store.
func (w *Writer) Clear(ctx context.Context) error {
	return w.store.Clear(ctx)
}

// Close stops accepting appends, flushes the queue and waits for the writer goroutine.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.stop)
	w.mu.Unlock()

	w.wg.Wait()
}

func (w *Writer) loop() {
	defer w.wg.Done()
	for {
		select {
		case req := <-w.queue:
			w.flush(w.collect(req))
		case <-w.stop:
			// Senders hold the read lock while enqueueing, so nothing arrives after stop.
			for {
				select {
				case req := <-w.queue:
					w.flush(w.collect(req))
				default:
					return
				}
			}
		}
	}
}

// collect takes first plus whatever is already queued, up to maxBatch requests.
func (w *Writer) collect(first appendReq) []appendReq {
	batch := []appendReq{first}
	for len(batch) < maxBatch {
		select {
		case req := <-w.queue:
			batch = append(batch, req)
		default:
			return batch
		}
	}
	return batch
}

func (w *Writer) flush(batch []appendReq) {
	var entries []string
	for _, req := range batch {
		entries = append(entries, req.entries...)
	}

	// A batch carries entries of several callers, so no single caller's cancellation applies.
	ctx := context.WithoutCancel(batch[0].ctx)
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	err := w.store.Append(ctx, entries...)
	if err != nil {
		w.logger.Error("error log append failed",
			"entries", len(entries),
			"requests", len(batch),
			"error", err)
	}
	for _, req := range batch {
		req.done <- err
	}
}
