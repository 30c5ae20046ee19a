package domain

import (
	"errors"
	"fmt"
)

// Domain errors as sentinel values
var (
	// Definition errors
	ErrDefinitionNotFound = errors.New("definition not found")
	ErrUnknownCategory    = errors.New("category is not propagated")

	// Product errors
	ErrProductNotFound  = errors.New("product not found")
	ErrDuplicateChannel = errors.New("more than one variant for channel")

	// Price errors
	ErrMalformedPrice = errors.New("price is not a valid JSON object")
	ErrMissingAmount  = errors.New("price has no amount")
	ErrInvalidAmount  = errors.New("price amount is not a decimal")
	ErrNegativePrice  = errors.New("price amount cannot be negative")

	// Resolution errors
	ErrCursorStalled = errors.New("backlink page has more results but no new cursor")
)

// TransformationError means a change-set could not be computed for one product.
// Field names the definition field (or "variants") that caused it.
type TransformationError struct {
	Field string
	Err   error
}

func (e *TransformationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *TransformationError) Unwrap() error {
	return e.Err
}

// ResolutionError aborts a run: the set of referencing products could not be determined.
type ResolutionError struct {
	DefinitionID string
	Cause        error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolution failed for %s: %v", e.DefinitionID, e.Cause)
}

func (e *ResolutionError) Unwrap() error {
	return e.Cause
}
