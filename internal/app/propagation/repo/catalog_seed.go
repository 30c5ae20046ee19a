package repo

import (
	"fmt"

	"cloud.google.com/go/spanner"

	"github.com/light-bringer/metasync-service/internal/app/propagation/contracts"
	"github.com/light-bringer/metasync-service/internal/app/propagation/domain"
	"github.com/light-bringer/metasync-service/internal/models/m_definition"
	"github.com/light-bringer/metasync-service/internal/models/m_definition_reference"
	"github.com/light-bringer/metasync-service/internal/models/m_product"
	"github.com/light-bringer/metasync-service/internal/models/m_variant"
)

// DefinitionMut creates a mutation storing def.
func (r *CatalogRepo) DefinitionMut(def domain.Definition) (*spanner.Mutation, error) {
	fields := def.Fields
	if fields == nil {
		fields = map[string]*string{}
	}
	encodedFields, err := encodeJSON(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode definition fields: %w", err)
	}
	refs := def.ReferenceFields
	if refs == nil {
		refs = map[string]string{}
	}
	encodedRefs, err := encodeJSON(refs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode definition references: %w", err)
	}
	return r.definitions.InsertMut(&m_definition.Data{
		DefinitionID:    def.ID,
		DefinitionType:  def.Type,
		Fields:          encodedFields,
		ReferenceFields: encodedRefs,
	}), nil
}

// ProductMuts creates the mutations storing a product and its variants.
func (r *CatalogRepo) ProductMuts(p domain.ProductSnapshot) ([]*spanner.Mutation, error) {
	metafields, err := encodeMetafields(p.Metafields)
	if err != nil {
		return nil, err
	}
	muts := []*spanner.Mutation{r.products.InsertMut(&m_product.Data{
		ProductID:   p.ID,
		ProductType: spanner.NullString{StringVal: p.ProductType, Valid: p.ProductType != ""},
		Vendor:      spanner.NullString{StringVal: p.Vendor, Valid: p.Vendor != ""},
		Metafields:  metafields,
	})}

	for i, v := range p.Variants {
		vmf, err := encodeMetafields(v.Metafields)
		if err != nil {
			return nil, err
		}
		data := &m_variant.Data{
			ProductID:      p.ID,
			VariantID:      v.ID,
			Position:       int64(i + 1),
			Title:          v.Title,
			OptionValues:   v.OptionValues,
			SKU:            spanner.NullString{StringVal: v.SKU, Valid: v.SKU != ""},
			Barcode:        spanner.NullString{StringVal: v.Barcode, Valid: v.Barcode != ""},
			Price:          toNullString(v.Price),
			CompareAtPrice: toNullString(v.CompareAtPrice),
			Metafields:     vmf,
		}
		if v.InventoryQuantity != nil {
			data.InventoryQuantity = spanner.NullInt64{Int64: *v.InventoryQuantity, Valid: true}
		}
		muts = append(muts, r.variants.InsertMut(data))
	}
	return muts, nil
}

// BacklinkMut creates a mutation linking a referencer to a definition.
func (r *CatalogRepo) BacklinkMut(definitionID string, b contracts.Backlink) *spanner.Mutation {
	return r.references.InsertMut(&m_definition_reference.Data{
		DefinitionID:   definitionID,
		ReferencerID:   b.ReferencerID,
		ReferencerType: b.ReferencerType,
	})
}
