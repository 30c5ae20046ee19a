//go:build integration

package integration

import (
	"context"
	"fmt"
	"testing"

	"cloud.google.com/go/spanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/metasync-service/internal/app/propagation/contracts"
	"github.com/light-bringer/metasync-service/internal/app/propagation/domain"
	"github.com/light-bringer/metasync-service/internal/app/propagation/repo"
	"github.com/light-bringer/metasync-service/internal/pkg/committer"
	"github.com/light-bringer/metasync-service/tests/testutil"
)

func seedCatalog(t *testing.T, client *spanner.Client, defs []domain.Definition, products []domain.ProductSnapshot, links map[string][]string) *repo.CatalogRepo {
	t.Helper()

	comm := committer.NewCommitter(client)
	catalog := repo.NewCatalogRepo(client, comm)
	plan := committer.NewPlan()
	for _, def := range defs {
		mut, err := catalog.DefinitionMut(def)
		require.NoError(t, err)
		plan.Add(mut)
	}
	for _, p := range products {
		muts, err := catalog.ProductMuts(p)
		require.NoError(t, err)
		plan.AddMultiple(muts)
	}
	for defID, productIDs := range links {
		for _, id := range productIDs {
			plan.Add(catalog.BacklinkMut(defID, contracts.Backlink{ReferencerID: id, ReferencerType: contracts.ReferencerProduct}))
		}
	}
	require.NoError(t, comm.Apply(context.Background(), plan))
	return catalog
}

func TestCatalogRepository_FetchDefinition(t *testing.T) {
	client, cleanup := testutil.SetupSpannerTest(t)
	defer cleanup()

	def := testutil.CategoryDefinition("def-category")
	catalog := seedCatalog(t, client, []domain.Definition{def}, nil, nil)

	got, err := catalog.FetchDefinition(context.Background(), "def-category")
	require.NoError(t, err)
	assert.Equal(t, string(domain.CategoryCategory), got.Type)
	assert.Equal(t, "750ml", *got.Value(domain.FieldSize))
	assert.Nil(t, got.Value(domain.FieldB2BCompareAtPrice), "null fields survive storage")

	_, err = catalog.FetchDefinition(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrDefinitionNotFound)
}

func TestCatalogRepository_BacklinkPaging(t *testing.T) {
	client, cleanup := testutil.SetupSpannerTest(t)
	defer cleanup()

	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		ids = append(ids, fmt.Sprintf("product-%d", i))
	}
	catalog := seedCatalog(t, client, []domain.Definition{testutil.BrandDefinition("def-brand", "Acme")}, nil, map[string][]string{"def-brand": ids})

	ctx := context.Background()
	var seen []string
	cursor := ""
	for {
		page, err := catalog.FetchBacklinkPage(ctx, "def-brand", cursor, 2)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(page.Items), 2)
		for _, item := range page.Items {
			seen = append(seen, item.ReferencerID)
		}
		if !page.HasNextPage {
			break
		}
		cursor = page.EndCursor
	}
	assert.Equal(t, ids, seen)
}

func TestCatalogRepository_WriteProductChangeSet(t *testing.T) {
	client, cleanup := testutil.SetupSpannerTest(t)
	defer cleanup()

	product := testutil.ChannelProduct("product-1")
	catalog := seedCatalog(t, client, nil, []domain.ProductSnapshot{product}, nil)
	ctx := context.Background()

	t.Run("applies product and variant changes", func(t *testing.T) {
		cs := domain.NewChangeSet(product.ID)
		cs.SetField(domain.ProductFieldVendor, domain.StringPtr("Acme"))
		cs.SetMetafield(product.Metafields, domain.MetafieldNamespace, domain.MetafieldSize, domain.MetafieldTypeText, domain.StringPtr("750ml"))
		vc := domain.NewVariantChange(product.Variants[0])
		vc.SetPrice(domain.StringPtr("20.00"))
		cs.AddVariant(vc)

		res, err := catalog.WriteProductChangeSet(ctx, cs)
		require.NoError(t, err)
		assert.Empty(t, res.UserErrors)

		got, err := catalog.FetchProduct(ctx, product.ID)
		require.NoError(t, err)
		assert.Equal(t, "Acme", got.Vendor)
		mf, ok := got.Metafield(domain.MetafieldNamespace, domain.MetafieldSize)
		require.True(t, ok)
		assert.Equal(t, "750ml", *mf.Value)
		assert.NotEmpty(t, mf.ID)
		require.NotNil(t, got.Variants[0].Price)
		assert.Equal(t, "20.00", *got.Variants[0].Price)
	})

	t.Run("rejects invalid values and writes nothing", func(t *testing.T) {
		cs := domain.NewChangeSet(product.ID)
		cs.SetField(domain.ProductFieldVendor, domain.StringPtr("Other"))
		vc := domain.NewVariantChange(product.Variants[1])
		vc.SetPrice(domain.StringPtr("-1"))
		cs.AddVariant(vc)

		res, err := catalog.WriteProductChangeSet(ctx, cs)
		require.NoError(t, err)
		require.Len(t, res.UserErrors, 1)
		assert.Equal(t, "variants.0.price", res.UserErrors[0].FieldPath())

		got, err := catalog.FetchProduct(ctx, product.ID)
		require.NoError(t, err)
		assert.Equal(t, "Acme", got.Vendor)
	})

	t.Run("unknown product is a user error", func(t *testing.T) {
		res, err := catalog.WriteProductChangeSet(ctx, domain.NewChangeSet("missing"))
		require.NoError(t, err)
		require.Len(t, res.UserErrors, 1)
		assert.Equal(t, "id", res.UserErrors[0].FieldPath())
	})
}
