package contracts

import "context"

// ErrorLog is the shop-wide, append-only failure log administrators read.
type ErrorLog interface {
	// Entries returns all entries, oldest first.
	Entries(ctx context.Context) ([]string, error)

	// Append adds entries atomically: concurrent appends never overwrite each other.
	Append(ctx context.Context, entries ...string) error

	// Clear empties the log.
	Clear(ctx context.Context) error
}
