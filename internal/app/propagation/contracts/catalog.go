package contracts

import (
	"context"

	"github.com/light-bringer/metasync-service/internal/app/propagation/domain"
	"github.com/light-bringer/metasync-service/internal/pkg/retry"
)

// RetryableRead reports whether a failed catalog read is worth another attempt. Caller
// cancellation and a missing definition or product are final.
var RetryableRead = retry.Except(domain.ErrDefinitionNotFound, domain.ErrProductNotFound)

// ReferencerProduct is the referencer type of backlinks that point to products.
const ReferencerProduct = "Product"

// MaxBacklinkPageSize is the largest page the catalog serves.
const MaxBacklinkPageSize = 250

// Backlink is one object referencing a definition.
type Backlink struct {
	ReferencerID   string
	ReferencerType string
}

// BacklinkPage is one page of backlinks. EndCursor continues after the last item.
type BacklinkPage struct {
	Items       []Backlink
	EndCursor   string
	HasNextPage bool
}

// WriteResult is the catalog's answer to a change-set write.
type WriteResult struct {
	UserErrors []domain.UserError
}

// Applied reports whether the write was accepted.
func (r *WriteResult) Applied() bool {
	return r != nil && len(r.UserErrors) == 0
}

// Catalog is the platform owning definitions and products.
type Catalog interface {
	// FetchBacklinkPage returns the page after cursor ("" for the first page).
	FetchBacklinkPage(ctx context.Context, definitionID, cursor string, pageSize int) (*BacklinkPage, error)

	// FetchDefinition returns domain.ErrDefinitionNotFound when the definition does not exist.
	FetchDefinition(ctx context.Context, definitionID string) (*domain.Definition, error)

	// FetchProduct returns domain.ErrProductNotFound when the product does not exist.
	FetchProduct(ctx context.Context, productID string) (*domain.ProductSnapshot, error)

	// WriteProductChangeSet applies the whole change-set in one write with upsert semantics.
	// A non-nil error is a transport failure; validation problems come back as user errors.
	WriteProductChangeSet(ctx context.Context, cs *domain.ChangeSet) (*WriteResult, error)
}
