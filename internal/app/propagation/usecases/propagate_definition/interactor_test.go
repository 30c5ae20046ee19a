package propagate_definition

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/metasync-service/internal/app/propagation/contracts"
	"github.com/light-bringer/metasync-service/internal/app/propagation/domain"
	"github.com/light-bringer/metasync-service/internal/app/propagation/errlog"
	"github.com/light-bringer/metasync-service/internal/app/propagation/queries/resolve_references"
	"github.com/light-bringer/metasync-service/internal/app/propagation/usecases/apply_change_set"
	"github.com/light-bringer/metasync-service/internal/pkg/retry"
	"github.com/light-bringer/metasync-service/tests/testutil"
)

type harness struct {
	catalog  *testutil.FakeCatalog
	store    *testutil.FakeErrorLog
	writer   *errlog.Writer
	runs     *testutil.FakeRunRepo
	pageSize int
	workers  int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		catalog:  testutil.NewFakeCatalog(),
		store:    testutil.NewFakeErrorLog(),
		runs:     testutil.NewFakeRunRepo(),
		pageSize: 2,
		workers:  3,
	}
	h.writer = errlog.NewWriter(h.store, time.Second, nil)
	t.Cleanup(h.writer.Close)
	return h
}

func (h *harness) interactor() *Interactor {
	resolver := resolve_references.NewQuery(h.catalog, h.pageSize, retry.Once(time.Second), nil)
	dispatcher := apply_change_set.NewInteractor(h.catalog, h.writer, time.Second, nil, nil)
	return NewInteractor(h.catalog, resolver, dispatcher, h.runs, testutil.NewMockClock(),
		Config{Workers: h.workers, Reads: retry.Once(time.Second)}, nil, nil)
}

func (h *harness) entries(t *testing.T) []string {
	t.Helper()
	entries, err := h.store.Entries(context.Background())
	require.NoError(t, err)
	return entries
}

func productID(n int) string {
	return fmt.Sprintf("gid://shopify/Product/%d", n)
}

func TestExecute_ScenarioBrandAllApplied(t *testing.T) {
	h := newHarness(t)
	h.catalog.AddDefinition(domain.Definition{ID: "brand#1", Type: "brand", Fields: map[string]*string{domain.FieldName: domain.StringPtr("Acme")}})
	for n := 1; n <= 3; n++ {
		h.catalog.AddProduct(domain.ProductSnapshot{ID: productID(n), Vendor: "Old"}, "brand#1")
	}

	run := h.interactor().Execute(context.Background(), &Request{DefinitionID: "brand#1", Category: "brand"})

	assert.Equal(t, domain.RunDone, run.State)
	assert.NoError(t, run.Err)
	assert.Equal(t, 3, run.Counts.Resolved)
	assert.Equal(t, 3, run.Counts.Applied)
	assert.Empty(t, h.entries(t))
	for n := 1; n <= 3; n++ {
		assert.Equal(t, "Acme", h.catalog.Product(productID(n)).Vendor)
	}
	assert.Len(t, h.catalog.Writes(), 3, "one write per product")
}

func TestExecute_ScenarioCategoryChannels(t *testing.T) {
	h := newHarness(t)
	h.catalog.AddDefinition(domain.Definition{ID: "category#9", Type: "category", Fields: map[string]*string{
		domain.FieldD2CPrice:   domain.StringPtr(`{"amount":"19.99"}`),
		domain.FieldAssortment: nil,
		domain.FieldB2BCount:   domain.StringPtr("5"),
	}})
	h.catalog.AddProduct(domain.ProductSnapshot{ID: productID(1), Variants: []domain.Variant{
		{ID: "v-d2c", OptionValues: []string{"D2C"}},
		{ID: "v-b2b", OptionValues: []string{"B2B"}},
	}}, "category#9")

	run := h.interactor().Execute(context.Background(), &Request{DefinitionID: "category#9", Category: "category"})
	require.Equal(t, domain.RunDone, run.State)
	assert.Equal(t, 1, run.Counts.Applied)

	product := h.catalog.Product(productID(1))
	require.Len(t, product.Variants, 2)
	d2c, b2b := product.Variants[0], product.Variants[1]

	require.NotNil(t, d2c.Price)
	assert.Equal(t, "19.99", *d2c.Price)
	assert.Equal(t, "1", *d2c.Metafields[domain.MetafieldKey("custom", "count")].Value)
	assert.Equal(t, "5", *b2b.Metafields[domain.MetafieldKey("custom", "count")].Value)
}

func TestExecute_ScenarioResolutionFailureAborts(t *testing.T) {
	h := newHarness(t)
	h.catalog.AddDefinition(domain.Definition{ID: "brand#1", Fields: map[string]*string{domain.FieldName: domain.StringPtr("Acme")}})
	h.catalog.AddProduct(domain.ProductSnapshot{ID: productID(1)}, "brand#1")
	h.catalog.FailPage = 1

	run := h.interactor().Execute(context.Background(), &Request{DefinitionID: "brand#1", Category: "brand"})

	assert.Equal(t, domain.RunAborted, run.State)
	var re *domain.ResolutionError
	assert.ErrorAs(t, run.Err, &re)
	assert.Empty(t, h.catalog.Writes())
	assert.Empty(t, h.entries(t))

	runs := h.runs.Runs()
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunAborted, runs[0].State)
	assert.NotEmpty(t, runs[0].ErrorMessage)
}

func TestExecute_ScenarioRejectedUpdateContinues(t *testing.T) {
	h := newHarness(t)
	h.workers = 1
	h.catalog.AddDefinition(domain.Definition{ID: "brand#1", Fields: map[string]*string{domain.FieldName: domain.StringPtr("Acme")}})
	for n := 1; n <= 3; n++ {
		h.catalog.AddProduct(domain.ProductSnapshot{ID: productID(n)}, "brand#1")
	}
	h.catalog.UserErrors[productID(1)] = []domain.UserError{{Field: []string{"price"}, Message: "invalid"}}

	run := h.interactor().Execute(context.Background(), &Request{DefinitionID: "brand#1", Category: "brand"})

	assert.Equal(t, domain.RunDone, run.State)
	assert.Equal(t, 1, run.Counts.Rejected)
	assert.Equal(t, 2, run.Counts.Applied)
	assert.Equal(t, []string{"[Brand Update] (brand#1) price - invalid"}, h.entries(t))
	assert.Equal(t, "Acme", h.catalog.Product(productID(2)).Vendor)
	assert.Equal(t, "Acme", h.catalog.Product(productID(3)).Vendor)
}

func TestExecute_FaultIsolation(t *testing.T) {
	h := newHarness(t)
	h.catalog.AddDefinition(domain.Definition{ID: "occ#1", Fields: map[string]*string{domain.FieldName: domain.StringPtr("Wedding")}})
	for n := 1; n <= 6; n++ {
		h.catalog.AddProduct(domain.ProductSnapshot{ID: productID(n)}, "occ#1")
	}
	h.catalog.WriteErrs[productID(2)] = errors.New("connection reset by peer")
	h.catalog.UserErrors[productID(4)] = []domain.UserError{
		{Field: []string{"metafields", "0", "value"}, Message: "is too long"},
		{Field: []string{"metafields", "0", "type"}, Message: "is invalid"},
	}
	h.catalog.ProductErrs[productID(6)] = domain.ErrProductNotFound

	run := h.interactor().Execute(context.Background(), &Request{DefinitionID: "occ#1", Category: "occasion"})

	assert.Equal(t, domain.RunDone, run.State)
	assert.Equal(t, domain.Counts{Resolved: 6, Applied: 3, Rejected: 1, Failed: 1, Skipped: 1}, run.Counts)
	assert.ElementsMatch(t, []string{
		"[Occasion Update] (occ#1) request - connection reset by peer",
		"[Occasion Update] (occ#1) metafields.0.value - is too long",
		"[Occasion Update] (occ#1) metafields.0.type - is invalid",
		"[Occasion Update] (occ#1) request - fetch product: product not found",
	}, h.entries(t))
	assert.Equal(t, []string{productID(1), productID(2), productID(3), productID(4), productID(5)}, h.catalog.WrittenProductIDs())
}

func TestExecute_TransformationFailureSkipsProduct(t *testing.T) {
	h := newHarness(t)
	h.catalog.AddDefinition(domain.Definition{ID: "category#1", Fields: map[string]*string{
		domain.FieldB2BPrice: domain.StringPtr(`{"amount": oops}`),
	}})
	h.catalog.AddProduct(domain.ProductSnapshot{ID: productID(1)}, "category#1")

	run := h.interactor().Execute(context.Background(), &Request{DefinitionID: "category#1", Category: "category"})

	assert.Equal(t, domain.RunDone, run.State)
	assert.Equal(t, 1, run.Counts.Skipped)
	assert.Empty(t, h.catalog.Writes())
	entries := h.entries(t)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0], "[Category Update] (category#1) B2BPrice - price is not a valid JSON object")
}

func TestExecute_ResolvesAssortmentReference(t *testing.T) {
	h := newHarness(t)
	h.catalog.AddDefinition(domain.Definition{ID: "assortment#2", Fields: map[string]*string{domain.FieldCount: domain.StringPtr("12")}})
	h.catalog.AddDefinition(domain.Definition{
		ID:              "category#1",
		ReferenceFields: map[string]string{domain.FieldAssortment: "assortment#2"},
	})
	h.catalog.AddProduct(domain.ProductSnapshot{ID: productID(1)}, "category#1")

	run := h.interactor().Execute(context.Background(), &Request{DefinitionID: "category#1", Category: "category"})

	require.Equal(t, domain.RunDone, run.State)
	mf := h.catalog.Product(productID(1)).Metafields[domain.MetafieldKey("custom", "assortment")]
	require.NotNil(t, mf.Value)
	assert.Equal(t, "12", *mf.Value)
}

func TestExecute_MissingAssortmentReferenceSkipsProducts(t *testing.T) {
	h := newHarness(t)
	h.catalog.AddDefinition(domain.Definition{
		ID:              "category#9",
		Type:            "category",
		ReferenceFields: map[string]string{domain.FieldAssortment: "gid://assort/404"},
	})
	h.catalog.AddProduct(domain.ProductSnapshot{ID: productID(1)}, "category#9")
	h.catalog.AddProduct(domain.ProductSnapshot{ID: productID(2)}, "category#9")

	run := h.interactor().Execute(context.Background(), &Request{DefinitionID: "category#9", Category: "category"})

	assert.Equal(t, domain.RunDone, run.State)
	assert.NoError(t, run.Err)
	assert.Equal(t, 2, run.Counts.Resolved)
	assert.Equal(t, 2, run.Counts.Skipped)
	assert.Empty(t, h.catalog.Writes())
	entries := h.entries(t)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "[Category Update] (category#9) assortment - definition not found", e)
	}
}

func TestExecute_MissingDefinitionAborts(t *testing.T) {
	h := newHarness(t)
	h.catalog.AddProduct(domain.ProductSnapshot{ID: productID(1)}, "brand#404")

	run := h.interactor().Execute(context.Background(), &Request{DefinitionID: "brand#404", Category: "brand"})

	assert.Equal(t, domain.RunAborted, run.State)
	assert.ErrorIs(t, run.Err, domain.ErrDefinitionNotFound)
	assert.Zero(t, h.catalog.PageCalls())
	assert.Empty(t, h.catalog.Writes())
}

func TestExecute_UnknownCategoryIsNoop(t *testing.T) {
	h := newHarness(t)
	h.catalog.AddProduct(domain.ProductSnapshot{ID: productID(1)}, "collection#1")

	run := h.interactor().Execute(context.Background(), &Request{DefinitionID: "collection#1", Category: "collection"})

	assert.Equal(t, domain.RunNoop, run.State)
	assert.NoError(t, run.Err)
	assert.Zero(t, h.catalog.PageCalls())
	assert.Empty(t, h.entries(t))
}

func TestExecute_InterleavedRunsKeepAllFailures(t *testing.T) {
	h := newHarness(t)
	h.store.ReadWriteGap = 5 * time.Millisecond

	for _, def := range []string{"brand#1", "brand#2"} {
		h.catalog.AddDefinition(domain.Definition{ID: def, Fields: map[string]*string{domain.FieldName: domain.StringPtr(def)}})
	}
	for n := 1; n <= 4; n++ {
		h.catalog.AddProduct(domain.ProductSnapshot{ID: productID(n)}, "brand#1")
		h.catalog.AddProduct(domain.ProductSnapshot{ID: productID(10 + n)}, "brand#2")
	}
	h.catalog.UserErrors[productID(2)] = []domain.UserError{{Field: []string{"vendor"}, Message: "locked"}}
	h.catalog.UserErrors[productID(13)] = []domain.UserError{{Field: []string{"vendor"}, Message: "locked"}}

	interactor := h.interactor()
	var wg sync.WaitGroup
	for _, def := range []string{"brand#1", "brand#2"} {
		wg.Add(1)
		go func(def string) {
			defer wg.Done()
			run := interactor.Execute(context.Background(), &Request{DefinitionID: def, Category: "brand"})
			assert.Equal(t, domain.RunDone, run.State)
		}(def)
	}
	wg.Wait()

	assert.ElementsMatch(t, []string{
		"[Brand Update] (brand#1) vendor - locked",
		"[Brand Update] (brand#2) vendor - locked",
	}, h.entries(t))
	assert.Len(t, h.runs.Runs(), 2)
}

func TestExecute_ResolvedProductsAreSnapshotted(t *testing.T) {
	h := newHarness(t)
	h.pageSize = 1
	h.catalog.AddDefinition(domain.Definition{ID: "brand#1", Fields: map[string]*string{domain.FieldName: domain.StringPtr("Acme")}})
	h.catalog.AddProduct(domain.ProductSnapshot{ID: productID(1)}, "brand#1")
	h.catalog.AddBacklink("brand#1", contracts.Backlink{ReferencerID: "gid://shopify/Collection/1", ReferencerType: "Collection"})

	run := h.interactor().Execute(context.Background(), &Request{DefinitionID: "brand#1", Category: "brand"})

	assert.Equal(t, 1, run.Counts.Resolved)
	assert.Equal(t, 2, h.catalog.PageCalls())
	assert.Equal(t, []string{productID(1)}, h.catalog.WrittenProductIDs())
}
