package resolve_references

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/metasync-service/internal/app/propagation/contracts"
	"github.com/light-bringer/metasync-service/internal/app/propagation/domain"
	"github.com/light-bringer/metasync-service/internal/pkg/retry"
	"github.com/light-bringer/metasync-service/tests/testutil"
)

func seedCatalog(n int) (*testutil.FakeCatalog, []string) {
	catalog := testutil.NewFakeCatalog()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("gid://shopify/Product/%d", i+1)
		catalog.AddProduct(domain.ProductSnapshot{ID: id}, "def-1")
		ids = append(ids, id)
	}
	return catalog, ids
}

func TestQuery_PageSizeInvariance(t *testing.T) {
	for _, n := range []int{0, 1, 7, 250, 251, 600} {
		for _, pageSize := range []int{1, 3, 50, 250} {
			t.Run(fmt.Sprintf("n=%d/page=%d", n, pageSize), func(t *testing.T) {
				catalog, want := seedCatalog(n)
				q := NewQuery(catalog, pageSize, retry.Once(0), nil)

				got, err := q.Execute(context.Background(), "def-1")
				require.NoError(t, err)
				if n == 0 {
					assert.Empty(t, got)
					return
				}
				assert.Equal(t, want, got)
			})
		}
	}
}

func TestQuery_SkipsNonProductReferencers(t *testing.T) {
	catalog, _ := seedCatalog(2)
	catalog.AddBacklink("def-1", contracts.Backlink{ReferencerID: "gid://shopify/Metaobject/5", ReferencerType: "Metaobject"})
	catalog.AddBacklink("def-1", contracts.Backlink{ReferencerID: "gid://shopify/Product/1", ReferencerType: contracts.ReferencerProduct})

	q := NewQuery(catalog, 1, retry.Once(0), nil)
	got, err := q.Execute(context.Background(), "def-1")

	require.NoError(t, err)
	assert.Equal(t, []string{"gid://shopify/Product/1", "gid://shopify/Product/2"}, got)
}

func TestQuery_PageFailureAbortsWithoutPartialResult(t *testing.T) {
	catalog, _ := seedCatalog(10)
	catalog.FailPage = 2
	catalog.BacklinkErr = errors.New("503 service unavailable")

	q := NewQuery(catalog, 3, retry.Once(0), nil)
	got, err := q.Execute(context.Background(), "def-1")

	assert.Nil(t, got)
	var re *domain.ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "def-1", re.DefinitionID)
	assert.ErrorIs(t, err, catalog.BacklinkErr)
}

func TestQuery_RetriesFailedPageWithinBudget(t *testing.T) {
	catalog, want := seedCatalog(5)
	catalog.FailPage = 1

	q := NewQuery(catalog, 2, retry.Budget{Attempts: 2}, nil)
	got, err := q.Execute(context.Background(), "def-1")

	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 4, catalog.PageCalls())
}

func TestQuery_DeletedDefinitionIsNotRetried(t *testing.T) {
	catalog, _ := seedCatalog(3)
	catalog.FailPage = 1
	catalog.BacklinkErr = domain.ErrDefinitionNotFound

	q := NewQuery(catalog, 2, retry.Budget{Attempts: 5}, nil)
	got, err := q.Execute(context.Background(), "def-1")

	assert.Nil(t, got)
	var re *domain.ResolutionError
	require.ErrorAs(t, err, &re)
	assert.ErrorIs(t, err, domain.ErrDefinitionNotFound)
	assert.Equal(t, 1, catalog.PageCalls())
}

type stalledCatalog struct {
	*testutil.FakeCatalog
}

func (stalledCatalog) FetchBacklinkPage(ctx context.Context, definitionID, cursor string, pageSize int) (*contracts.BacklinkPage, error) {
	return &contracts.BacklinkPage{
		Items:       []contracts.Backlink{{ReferencerID: "p1", ReferencerType: contracts.ReferencerProduct}},
		EndCursor:   "same",
		HasNextPage: true,
	}, nil
}

func TestQuery_StalledCursorIsResolutionFailure(t *testing.T) {
	q := NewQuery(stalledCatalog{testutil.NewFakeCatalog()}, 10, retry.Once(0), nil)

	_, err := q.Execute(context.Background(), "def-1")

	var re *domain.ResolutionError
	require.ErrorAs(t, err, &re)
	assert.ErrorIs(t, err, domain.ErrCursorStalled)
}

func TestNewQuery_ClampsPageSize(t *testing.T) {
	assert.Equal(t, contracts.MaxBacklinkPageSize, NewQuery(nil, 0, retry.Once(0), nil).pageSize)
	assert.Equal(t, contracts.MaxBacklinkPageSize, NewQuery(nil, 1000, retry.Once(0), nil).pageSize)
	assert.Equal(t, 20, NewQuery(nil, 20, retry.Once(0), nil).pageSize)
}
