package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"cloud.google.com/go/spanner"

	"github.com/light-bringer/metasync-service/internal/app/propagation/contracts"
	"github.com/light-bringer/metasync-service/internal/app/propagation/domain"
	"github.com/light-bringer/metasync-service/internal/app/propagation/repo"
	"github.com/light-bringer/metasync-service/internal/config"
	"github.com/light-bringer/metasync-service/internal/pkg/committer"
)

func main() {
	defaultDB := os.Getenv("SPANNER_DATABASE")
	if defaultDB == "" {
		defaultDB = config.Default().SpannerDatabase
	}
	dbFlag := flag.String("database", defaultDB, "Spanner database of the dev catalog")
	products := flag.Int("products", 3, "number of demo products")
	flag.Parse()

	if err := seed(context.Background(), *dbFlag, *products); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}

func seed(ctx context.Context, db string, n int) error {
	client, err := spanner.NewClient(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to create Spanner client: %w", err)
	}
	defer client.Close()

	comm := committer.NewCommitter(client)
	catalog := repo.NewCatalogRepo(client, comm)
	plan := committer.NewPlan()

	assortment := domain.Definition{
		ID:     "gid://metasync/Definition/assortment-6",
		Type:   "assortment",
		Fields: map[string]*string{domain.FieldCount: domain.StringPtr("6")},
	}
	category := domain.Definition{
		ID:   "gid://metasync/Definition/category-red-wine",
		Type: string(domain.CategoryCategory),
		Fields: map[string]*string{
			domain.FieldProductType:       domain.StringPtr("Red Wine"),
			domain.FieldAssortment:        domain.StringPtr(assortment.ID),
			domain.FieldSize:              domain.StringPtr("750ml"),
			domain.FieldD2CPrice:          domain.StringPtr(`{"amount":"20.00","currency_code":"EUR"}`),
			domain.FieldD2CCompareAtPrice: domain.StringPtr(`{"amount":"24.00","currency_code":"EUR"}`),
			domain.FieldB2BPrice:          domain.StringPtr(`{"amount":"14.50","currency_code":"EUR"}`),
			domain.FieldB2BCompareAtPrice: nil,
			domain.FieldB2BCount:          domain.StringPtr("12"),
			domain.FieldClearance:         domain.StringPtr("false"),
		},
		ReferenceFields: map[string]string{domain.FieldAssortment: assortment.ID},
	}
	brand := domain.Definition{
		ID:     "gid://metasync/Definition/brand-acme",
		Type:   string(domain.CategoryBrand),
		Fields: map[string]*string{domain.FieldName: domain.StringPtr("Acme Vineyards")},
	}

	for _, def := range []domain.Definition{assortment, category, brand} {
		mut, err := catalog.DefinitionMut(def)
		if err != nil {
			return err
		}
		plan.Add(mut)
	}

	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("gid://metasync/Product/%d", i)
		muts, err := catalog.ProductMuts(domain.ProductSnapshot{
			ID: id,
			Variants: []domain.Variant{
				{ID: fmt.Sprintf("gid://metasync/ProductVariant/%d1", i), Title: "D2C", OptionValues: []string{"D2C"}},
				{ID: fmt.Sprintf("gid://metasync/ProductVariant/%d2", i), Title: "B2B", OptionValues: []string{"B2B"}},
			},
		})
		if err != nil {
			return err
		}
		plan.AddMultiple(muts)
		for _, def := range []domain.Definition{category, brand} {
			plan.Add(catalog.BacklinkMut(def.ID, contracts.Backlink{ReferencerID: id, ReferencerType: contracts.ReferencerProduct}))
		}
	}

	if err := comm.Apply(ctx, plan); err != nil {
		return err
	}
	log.Printf("Seeded %d mutations", plan.Count())
	fmt.Println("Now trigger a propagation:")
	fmt.Printf("  go run ./cmd/propagate -definition %s -category category run\n", category.ID)
	fmt.Printf("  curl -X POST localhost:8080/api/v1/propagate -d '{\"definition_id\":%q,\"category\":\"brand\"}'\n", brand.ID)
	return nil
}
