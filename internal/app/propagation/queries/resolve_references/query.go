package resolve_references

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/light-bringer/metasync-service/internal/app/propagation/contracts"
	"github.com/light-bringer/metasync-service/internal/app/propagation/domain"
	"github.com/light-bringer/metasync-service/internal/pkg/obs"
	"github.com/light-bringer/metasync-service/internal/pkg/retry"
)

// Query resolves every product referencing a definition.
type Query struct {
	catalog  contracts.Catalog
	pageSize int
	budget   retry.Budget
	logger   *slog.Logger
}

// NewQuery creates a new resolve references query. pageSize is clamped to [1, 250].
func NewQuery(catalog contracts.Catalog, pageSize int, budget retry.Budget, logger *slog.Logger) *Query {
	if pageSize <= 0 || pageSize > contracts.MaxBacklinkPageSize {
		pageSize = contracts.MaxBacklinkPageSize
	}
	return &Query{
		catalog:  catalog,
		pageSize: pageSize,
		budget:   budget,
		logger:   obs.OrNop(logger),
	}
}

// Execute walks all backlink pages and returns the referencing product ids in catalog
// order, without duplicates. The full list is built before it is returned; any page
// failure yields a *domain.ResolutionError and no ids.
func (q *Query) Execute(ctx context.Context, definitionID string) ([]string, error) {
	if definitionID == "" {
		return nil, &domain.ResolutionError{DefinitionID: definitionID, Cause: fmt.Errorf("definition ID is required")}
	}

	var (
		ids    []string
		seen   = make(map[string]struct{})
		cursor string
		pages  int
	)
	for {
		var page *contracts.BacklinkPage
		err := retry.Do(ctx, q.budget, contracts.RetryableRead, func(ctx context.Context) error {
			var err error
			page, err = q.catalog.FetchBacklinkPage(ctx, definitionID, cursor, q.pageSize)
			return err
		})
		if err != nil {
			return nil, &domain.ResolutionError{
				DefinitionID: definitionID,
				Cause:        fmt.Errorf("backlink page %d: %w", pages+1, err),
			}
		}
		pages++

		for _, item := range page.Items {
			if item.ReferencerType != contracts.ReferencerProduct {
				continue
			}
			if _, dup := seen[item.ReferencerID]; dup {
				continue
			}
			seen[item.ReferencerID] = struct{}{}
			ids = append(ids, item.ReferencerID)
		}

		if !page.HasNextPage {
			break
		}
		if page.EndCursor == "" || page.EndCursor == cursor {
			return nil, &domain.ResolutionError{DefinitionID: definitionID, Cause: domain.ErrCursorStalled}
		}
		cursor = page.EndCursor
	}

	q.logger.Debug("references resolved",
		"definition_id", definitionID,
		"pages", pages,
		"products", len(ids))
	return ids, nil
}
