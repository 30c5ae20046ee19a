package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/light-bringer/metasync-service/internal/app/propagation/contracts"
)

// FakeErrorLog is an in-memory contracts.ErrorLog. Append is a plain read-modify-write
// with ReadWriteGap between the read and the write, so unserialized concurrent appends
// lose entries the same way an unconditional overwrite of a shared value would.
type FakeErrorLog struct {
	mu      sync.Mutex
	entries []string
	appends int

	ReadWriteGap time.Duration
	AppendErr    error
}

var _ contracts.ErrorLog = (*FakeErrorLog)(nil)

// NewFakeErrorLog creates a log holding the given entries.
func NewFakeErrorLog(entries ...string) *FakeErrorLog {
	return &FakeErrorLog{entries: append([]string(nil), entries...)}
}

func (l *FakeErrorLog) Entries(ctx context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...), nil
}

func (l *FakeErrorLog) Append(ctx context.Context, entries ...string) error {
	l.mu.Lock()
	if l.AppendErr != nil {
		l.mu.Unlock()
		return l.AppendErr
	}
	current := append([]string(nil), l.entries...)
	gap := l.ReadWriteGap
	l.mu.Unlock()

	if gap > 0 {
		time.Sleep(gap)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(current, entries...)
	l.appends++
	return nil
}

func (l *FakeErrorLog) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	return nil
}

// Appends returns how many store writes happened.
func (l *FakeErrorLog) Appends() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.appends
}
