package repo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"cloud.google.com/go/spanner"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"

	"github.com/light-bringer/metasync-service/internal/app/propagation/contracts"
	"github.com/light-bringer/metasync-service/internal/app/propagation/domain"
	"github.com/light-bringer/metasync-service/internal/models/m_definition"
	"github.com/light-bringer/metasync-service/internal/models/m_definition_reference"
	"github.com/light-bringer/metasync-service/internal/models/m_product"
	"github.com/light-bringer/metasync-service/internal/models/m_variant"
	"github.com/light-bringer/metasync-service/internal/pkg/committer"
	"github.com/light-bringer/metasync-service/internal/pkg/query"
)

// CatalogRepo implements contracts.Catalog on Spanner tables. Backlinks are paged by
// keyset on referencer_id, so the cursor stays valid while rows are added or removed.
type CatalogRepo struct {
	client         *spanner.Client
	committer      *committer.Committer
	definitions    *m_definition.Model
	references     *m_definition_reference.Model
	products       *m_product.Model
	variants       *m_variant.Model
	newMetafieldID func() string
}

var _ contracts.Catalog = (*CatalogRepo)(nil)

// NewCatalogRepo creates a new CatalogRepo.
func NewCatalogRepo(client *spanner.Client, comm *committer.Committer) *CatalogRepo {
	return &CatalogRepo{
		client:      client,
		committer:   comm,
		definitions: m_definition.NewModel(),
		references:  m_definition_reference.NewModel(),
		products:    m_product.NewModel(),
		variants:    m_variant.NewModel(),
		newMetafieldID: func() string {
			return "gid://metasync/Metafield/" + uuid.New().String()
		},
	}
}

// FetchBacklinkPage reads one page of referencers after cursor, the last referencer id
// of the previous page.
func (r *CatalogRepo) FetchBacklinkPage(ctx context.Context, definitionID, cursor string, pageSize int) (*contracts.BacklinkPage, error) {
	stmt := backlinkPageQuery(definitionID, cursor, pageSize).Build()

	iter := r.client.Single().Query(ctx, stmt)
	defer iter.Stop()

	page := &contracts.BacklinkPage{}
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate backlinks: %w", err)
		}
		var b contracts.Backlink
		if err := row.Columns(&b.ReferencerID, &b.ReferencerType); err != nil {
			return nil, fmt.Errorf("failed to scan backlink: %w", err)
		}
		page.Items = append(page.Items, b)
	}

	// One extra row was requested to learn whether another page exists.
	if len(page.Items) > pageSize {
		page.Items = page.Items[:pageSize]
		page.HasNextPage = true
	}
	if n := len(page.Items); n > 0 {
		page.EndCursor = page.Items[n-1].ReferencerID
	} else {
		page.EndCursor = cursor
	}
	return page, nil
}

func backlinkPageQuery(definitionID, cursor string, pageSize int) *query.Builder {
	b := query.From(m_definition_reference.TableName).
		Select(m_definition_reference.ReferencerID, m_definition_reference.ReferencerType).
		Where(query.Eq(m_definition_reference.DefinitionID, definitionID))
	if cursor != "" {
		b = b.Where(query.Gt(m_definition_reference.ReferencerID, cursor))
	}
	return b.OrderBy(m_definition_reference.ReferencerID, query.Asc).Limit(int64(pageSize) + 1)
}

// FetchDefinition loads a definition.
func (r *CatalogRepo) FetchDefinition(ctx context.Context, definitionID string) (*domain.Definition, error) {
	row, err := r.client.Single().ReadRow(ctx, m_definition.TableName, spanner.Key{definitionID}, m_definition.Columns)
	if err != nil {
		if spanner.ErrCode(err) == codes.NotFound {
			return nil, domain.ErrDefinitionNotFound
		}
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}

	var data m_definition.Data
	if err := row.Columns(&data.DefinitionID, &data.DefinitionType, &data.Fields, &data.ReferenceFields, &data.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse definition: %w", err)
	}

	fields, err := decodeFields(data.Fields)
	if err != nil {
		return nil, err
	}
	refs, err := decodeReferences(data.ReferenceFields)
	if err != nil {
		return nil, err
	}
	return &domain.Definition{
		ID:              data.DefinitionID,
		Type:            data.DefinitionType,
		Fields:          fields,
		ReferenceFields: refs,
	}, nil
}

// reader is implemented by both read-only and read-write transactions.
type reader interface {
	ReadRow(ctx context.Context, table string, key spanner.Key, columns []string) (*spanner.Row, error)
	Read(ctx context.Context, table string, keys spanner.KeySet, columns []string) *spanner.RowIterator
}

// FetchProduct loads a product and its variants from one snapshot.
func (r *CatalogRepo) FetchProduct(ctx context.Context, productID string) (*domain.ProductSnapshot, error) {
	txn := r.client.ReadOnlyTransaction()
	defer txn.Close()

	product, _, err := r.readProduct(ctx, txn, productID)
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (r *CatalogRepo) readProduct(ctx context.Context, txn reader, productID string) (*domain.ProductSnapshot, int64, error) {
	row, err := txn.ReadRow(ctx, m_product.TableName, spanner.Key{productID}, m_product.Columns)
	if err != nil {
		if spanner.ErrCode(err) == codes.NotFound {
			return nil, 0, domain.ErrProductNotFound
		}
		return nil, 0, fmt.Errorf("failed to read product: %w", err)
	}

	var data m_product.Data
	if err := row.Columns(&data.ProductID, &data.ProductType, &data.Vendor, &data.Metafields, &data.Version, &data.CreatedAt, &data.UpdatedAt); err != nil {
		return nil, 0, fmt.Errorf("failed to parse product: %w", err)
	}
	metafields, err := decodeMetafields(data.Metafields)
	if err != nil {
		return nil, 0, err
	}

	product := &domain.ProductSnapshot{
		ID:          data.ProductID,
		ProductType: data.ProductType.StringVal,
		Vendor:      data.Vendor.StringVal,
		Metafields:  metafields,
	}

	iter := txn.Read(ctx, m_variant.TableName, spanner.Key{productID}.AsPrefix(), m_variant.Columns)
	defer iter.Stop()
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to iterate variants: %w", err)
		}
		v, err := scanVariant(row)
		if err != nil {
			return nil, 0, err
		}
		product.Variants = append(product.Variants, v)
	}
	return product, data.Version, nil
}

func scanVariant(row *spanner.Row) (domain.Variant, error) {
	var data m_variant.Data
	if err := row.Columns(
		&data.ProductID,
		&data.VariantID,
		&data.Position,
		&data.Title,
		&data.OptionValues,
		&data.SKU,
		&data.Barcode,
		&data.Price,
		&data.CompareAtPrice,
		&data.InventoryQuantity,
		&data.Metafields,
		&data.UpdatedAt,
	); err != nil {
		return domain.Variant{}, fmt.Errorf("failed to parse variant: %w", err)
	}
	metafields, err := decodeMetafields(data.Metafields)
	if err != nil {
		return domain.Variant{}, err
	}

	v := domain.Variant{
		ID:             data.VariantID,
		Title:          data.Title,
		OptionValues:   data.OptionValues,
		SKU:            data.SKU.StringVal,
		Barcode:        data.Barcode.StringVal,
		Price:          nullStringPtr(data.Price),
		CompareAtPrice: nullStringPtr(data.CompareAtPrice),
		Metafields:     metafields,
	}
	if data.InventoryQuantity.Valid {
		q := data.InventoryQuantity.Int64
		v.InventoryQuantity = &q
	}
	return v, nil
}

// WriteProductChangeSet validates and applies the change-set in one read-write transaction.
// Validation problems are returned as user errors and nothing is written.
func (r *CatalogRepo) WriteProductChangeSet(ctx context.Context, cs *domain.ChangeSet) (*contracts.WriteResult, error) {
	result := &contracts.WriteResult{}

	err := r.committer.ApplyWithReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		// The transaction body can run more than once.
		result.UserErrors = nil

		product, version, err := r.readProduct(ctx, txn, cs.ProductID)
		if errors.Is(err, domain.ErrProductNotFound) {
			result.UserErrors = []domain.UserError{{Field: []string{"id"}, Message: "Product does not exist"}}
			return nil
		}
		if err != nil {
			return err
		}

		muts, userErrors, err := r.changeSetMuts(product, version, cs)
		if err != nil {
			return err
		}
		if len(userErrors) > 0 {
			result.UserErrors = userErrors
			return nil
		}
		return txn.BufferWrite(muts)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *CatalogRepo) changeSetMuts(product *domain.ProductSnapshot, version int64, cs *domain.ChangeSet) ([]*spanner.Mutation, []domain.UserError, error) {
	var userErrors []domain.UserError
	userErrors = append(userErrors, validateMetafields(cs.Metafields, "metafields")...)

	type variantUpdate struct {
		variant domain.Variant
		change  *domain.VariantChange
	}
	var updates []variantUpdate
	for i, vc := range cs.Variants {
		path := []string{"variants", strconv.Itoa(i)}
		v, ok := matchVariant(product.Variants, vc)
		if !ok {
			userErrors = append(userErrors, domain.UserError{Field: append(path, "id"), Message: "Product variant does not exist"})
			continue
		}
		for _, field := range vc.Fields() {
			amount, _ := vc.Field(field)
			if msg := validateAmount(amount); msg != "" {
				userErrors = append(userErrors, domain.UserError{Field: append(append([]string{}, path...), field), Message: msg})
			}
		}
		for _, ue := range validateMetafields(vc.Metafields, "metafields") {
			ue.Field = append(append([]string{}, path...), ue.Field...)
			userErrors = append(userErrors, ue)
		}
		updates = append(updates, variantUpdate{variant: v, change: vc})
	}
	if len(userErrors) > 0 {
		return nil, userErrors, nil
	}

	var muts []*spanner.Mutation

	productUpdates := map[string]interface{}{m_product.Version: version + 1}
	if v, ok := cs.Field(domain.ProductFieldProductType); ok {
		productUpdates[m_product.ProductType] = toNullString(v)
	}
	if v, ok := cs.Field(domain.ProductFieldVendor); ok {
		productUpdates[m_product.Vendor] = toNullString(v)
	}
	if len(cs.Metafields) > 0 {
		encoded, err := encodeMetafields(r.mergeMetafields(product.Metafields, cs.Metafields))
		if err != nil {
			return nil, nil, err
		}
		productUpdates[m_product.Metafields] = encoded
	}
	muts = append(muts, r.products.UpdateMut(product.ID, productUpdates))

	for _, u := range updates {
		variantUpdates := make(map[string]interface{})
		if v, ok := u.change.Field(domain.VariantFieldPrice); ok {
			variantUpdates[m_variant.Price] = toNullString(v)
		}
		if v, ok := u.change.Field(domain.VariantFieldCompareAtPrice); ok {
			variantUpdates[m_variant.CompareAtPrice] = toNullString(v)
		}
		if len(u.change.Metafields) > 0 {
			encoded, err := encodeMetafields(r.mergeMetafields(u.variant.Metafields, u.change.Metafields))
			if err != nil {
				return nil, nil, err
			}
			variantUpdates[m_variant.Metafields] = encoded
		}
		if mut := r.variants.UpdateMut(product.ID, u.variant.ID, variantUpdates); mut != nil {
			muts = append(muts, mut)
		}
	}
	return muts, nil, nil
}

// mergeMetafields upserts changes by namespace and key; metafields not named are kept.
func (r *CatalogRepo) mergeMetafields(existing map[string]domain.Metafield, changes []domain.MetafieldChange) map[string]domain.Metafield {
	out := make(map[string]domain.Metafield, len(existing)+len(changes))
	for k, m := range existing {
		out[k] = m
	}
	for _, mc := range changes {
		key := domain.MetafieldKey(mc.Namespace, mc.Key)
		id := mc.ID
		if prev, ok := out[key]; ok && id == "" {
			id = prev.ID
		}
		if id == "" {
			id = r.newMetafieldID()
		}
		out[key] = domain.Metafield{ID: id, Namespace: mc.Namespace, Key: mc.Key, Type: mc.Type, Value: mc.Value}
	}
	return out
}

// matchVariant finds the target by id, falling back to the channel option value.
func matchVariant(variants []domain.Variant, vc *domain.VariantChange) (domain.Variant, bool) {
	for _, v := range variants {
		if vc.ID != "" && v.ID == vc.ID {
			return v, true
		}
	}
	if vc.Channel == domain.ChannelNone {
		return domain.Variant{}, false
	}
	for _, v := range variants {
		if v.Channel() == vc.Channel {
			return v, true
		}
	}
	return domain.Variant{}, false
}

func validateAmount(amount *string) string {
	if amount == nil {
		return ""
	}
	d, err := decimal.NewFromString(*amount)
	if err != nil {
		return "is invalid"
	}
	if d.IsNegative() {
		return "must be greater than or equal to 0"
	}
	return ""
}

func validateMetafields(changes []domain.MetafieldChange, prefix string) []domain.UserError {
	var userErrors []domain.UserError
	for i, mc := range changes {
		if mc.Value == nil {
			continue
		}
		var msg string
		switch mc.Type {
		case domain.MetafieldTypeInteger:
			if _, err := strconv.ParseInt(*mc.Value, 10, 64); err != nil {
				msg = "Value must be an integer."
			}
		case domain.MetafieldTypeBoolean:
			if *mc.Value != "true" && *mc.Value != "false" {
				msg = "Value must be true or false."
			}
		}
		if msg != "" {
			userErrors = append(userErrors, domain.UserError{Field: []string{prefix, strconv.Itoa(i), "value"}, Message: msg})
		}
	}
	return userErrors
}

func toNullString(s *string) spanner.NullString {
	if s == nil {
		return spanner.NullString{}
	}
	return spanner.NullString{StringVal: *s, Valid: true}
}

func nullStringPtr(ns spanner.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.StringVal
	return &s
}
