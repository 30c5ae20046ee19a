package testutil

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/spanner"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/metasync-service/internal/app/propagation/domain"
	"github.com/light-bringer/metasync-service/internal/models/m_run"
)

// CategoryDefinition builds a category definition with both channel prices set.
func CategoryDefinition(id string) domain.Definition {
	return domain.Definition{
		ID:   id,
		Type: string(domain.CategoryCategory),
		Fields: map[string]*string{
			domain.FieldProductType:       domain.StringPtr("Wine"),
			domain.FieldSize:              domain.StringPtr("750ml"),
			domain.FieldD2CPrice:          domain.StringPtr(`{"amount":"20.00","currency_code":"EUR"}`),
			domain.FieldD2CCompareAtPrice: domain.StringPtr(`{"amount":"25.00","currency_code":"EUR"}`),
			domain.FieldB2BPrice:          domain.StringPtr(`{"amount":"15.00","currency_code":"EUR"}`),
			domain.FieldB2BCompareAtPrice: nil,
			domain.FieldB2BCount:          domain.StringPtr("6"),
			domain.FieldClearance:         domain.StringPtr("false"),
		},
		ReferenceFields: map[string]string{},
	}
}

// BrandDefinition builds a brand definition.
func BrandDefinition(id, name string) domain.Definition {
	return domain.Definition{
		ID:     id,
		Type:   string(domain.CategoryBrand),
		Fields: map[string]*string{domain.FieldName: domain.StringPtr(name)},
	}
}

// ChannelProduct builds a product with one D2C and one B2B variant.
func ChannelProduct(id string) domain.ProductSnapshot {
	return domain.ProductSnapshot{
		ID:         id,
		Metafields: map[string]domain.Metafield{},
		Variants: []domain.Variant{
			{ID: id + "-d2c", Title: "D2C", OptionValues: []string{"D2C"}, Metafields: map[string]domain.Metafield{}},
			{ID: id + "-b2b", Title: "B2B", OptionValues: []string{"B2B"}, Metafields: map[string]domain.Metafield{}},
		},
	}
}

// CreateTestRun inserts a finished run directly in the database.
func CreateTestRun(t *testing.T, client *spanner.Client, definitionID string, state domain.RunState, finishedAt time.Time) string {
	t.Helper()

	runID := uuid.New().String()
	model := m_run.NewModel()
	data := &m_run.Data{
		RunID:        runID,
		DefinitionID: definitionID,
		Category:     string(domain.CategoryBrand),
		State:        string(state),
		StartedAt:    finishedAt.Add(-time.Minute),
		FinishedAt:   finishedAt,
	}

	_, err := client.Apply(context.Background(), []*spanner.Mutation{model.InsertMut(data)})
	require.NoError(t, err, "failed to create test run")
	return runID
}
