package list_error_log

import (
	"context"
	"fmt"
	"strings"

	"github.com/light-bringer/metasync-service/internal/app/propagation/contracts"
	"github.com/light-bringer/metasync-service/internal/app/propagation/domain"
)

// Request contains filtering parameters for listing error log entries.
type Request struct {
	Category     *string // Filter by category ("brand", "occasion", "category")
	DefinitionID *string // Filter by definition ID
	Limit        int     // Max number of entries to return (default: 100)
	Offset       int     // Entries to skip, newest first
}

// Result is one page of entries, newest first, and the number of matching entries.
type Result struct {
	Entries    []string
	TotalCount int
}

// Query handles the list error log query.
type Query struct {
	errorLog contracts.ErrorLog
}

// NewQuery creates a new list error log query.
func NewQuery(errorLog contracts.ErrorLog) *Query {
	return &Query{
		errorLog: errorLog,
	}
}

// Execute reads the log and returns the matching entries, newest first.
func (q *Query) Execute(ctx context.Context, req *Request) (*Result, error) {
	if req.Limit <= 0 {
		req.Limit = 100 // Default limit
	}
	if req.Limit > 1000 {
		req.Limit = 1000 // Max limit
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	var prefix string
	if req.Category != nil {
		c, ok := domain.ParseCategory(*req.Category)
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, *req.Category)
		}
		prefix = "[" + c.DisplayName() + " Update]"
	}
	var definitionTag string
	if req.DefinitionID != nil {
		definitionTag = "(" + *req.DefinitionID + ")"
	}

	all, err := q.errorLog.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read error log: %w", err)
	}

	var matched []string
	for i := len(all) - 1; i >= 0; i-- {
		entry := all[i]
		if prefix != "" && !strings.HasPrefix(entry, prefix) {
			continue
		}
		if definitionTag != "" && !strings.Contains(entry, definitionTag) {
			continue
		}
		matched = append(matched, entry)
	}

	result := &Result{TotalCount: len(matched)}
	if req.Offset >= len(matched) {
		return result, nil
	}
	end := req.Offset + req.Limit
	if end > len(matched) {
		end = len(matched)
	}
	result.Entries = matched[req.Offset:end]
	return result, nil
}
