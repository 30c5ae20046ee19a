package shopify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/light-bringer/metasync-service/internal/app/propagation/contracts"
	"github.com/light-bringer/metasync-service/internal/app/propagation/domain"
)

// ErrVariantCursorStalled means the variants connection reported more pages without a new cursor.
var ErrVariantCursorStalled = errors.New("variants page has more results but no new cursor")

const (
	maxProductMetafields = 250
	maxVariants          = 100
	maxVariantMetafields = 50
	metaobjectReference  = "metaobject_reference"
)

const backlinksQuery = `query Backlinks($id: ID!, $first: Int!, $after: String) {
  metaobject(id: $id) {
    referencedBy(first: $first, after: $after) {
      nodes { referencer { __typename ... on Node { id } } }
      pageInfo { hasNextPage endCursor }
    }
  }
}`

const definitionQuery = `query Definition($id: ID!) {
  metaobject(id: $id) {
    id
    type
    fields { key type value reference { __typename ... on Metaobject { id } } }
  }
}`

const variantFields = `nodes {
        id title sku barcode price compareAtPrice inventoryQuantity
        selectedOptions { name value }
        metafields(first: $variantMetafields) { nodes { id namespace key type value } }
      }
      pageInfo { hasNextPage endCursor }`

const productQuery = `query Product($id: ID!, $metafields: Int!, $variants: Int!, $variantMetafields: Int!) {
  product(id: $id) {
    id
    productType
    vendor
    metafields(first: $metafields) { nodes { id namespace key type value } }
    variants(first: $variants) {
      ` + variantFields + `
    }
  }
}`

// productVariantsQuery continues the variants connection of a product past its first page.
const productVariantsQuery = `query ProductVariants($id: ID!, $variants: Int!, $after: String!, $variantMetafields: Int!) {
  product(id: $id) {
    variants(first: $variants, after: $after) {
      ` + variantFields + `
    }
  }
}`

// Gateway implements contracts.Catalog on the Admin API.
type Gateway struct {
	client *Client
}

// NewGateway creates a new catalog gateway.
func NewGateway(client *Client) *Gateway {
	return &Gateway{client: client}
}

type pageInfo struct {
	HasNextPage bool    `json:"hasNextPage"`
	EndCursor   *string `json:"endCursor"`
}

type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
	Code    string   `json:"code,omitempty"`
}

type metafieldNode struct {
	ID        string  `json:"id"`
	Namespace string  `json:"namespace"`
	Key       string  `json:"key"`
	Type      string  `json:"type"`
	Value     *string `json:"value"`
}

type metafieldConnection struct {
	Nodes []metafieldNode `json:"nodes"`
}

type variantNode struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	SKU               string  `json:"sku"`
	Barcode           string  `json:"barcode"`
	Price             *string `json:"price"`
	CompareAtPrice    *string `json:"compareAtPrice"`
	InventoryQuantity *int64  `json:"inventoryQuantity"`
	SelectedOptions   []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"selectedOptions"`
	Metafields metafieldConnection `json:"metafields"`
}

type variantConnection struct {
	Nodes    []variantNode `json:"nodes"`
	PageInfo pageInfo      `json:"pageInfo"`
}

// FetchBacklinkPage returns one page of the metaobject's referencedBy connection.
func (g *Gateway) FetchBacklinkPage(ctx context.Context, definitionID, cursor string, pageSize int) (*contracts.BacklinkPage, error) {
	if pageSize <= 0 || pageSize > contracts.MaxBacklinkPageSize {
		pageSize = contracts.MaxBacklinkPageSize
	}
	vars := map[string]interface{}{"id": definitionID, "first": pageSize}
	if cursor != "" {
		vars["after"] = cursor
	}

	var data struct {
		Metaobject *struct {
			ReferencedBy struct {
				Nodes []struct {
					Referencer struct {
						TypeName string `json:"__typename"`
						ID       string `json:"id"`
					} `json:"referencer"`
				} `json:"nodes"`
				PageInfo pageInfo `json:"pageInfo"`
			} `json:"referencedBy"`
		} `json:"metaobject"`
	}
	if err := g.client.Do(ctx, backlinksQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("failed to fetch backlinks: %w", err)
	}
	if data.Metaobject == nil {
		return nil, domain.ErrDefinitionNotFound
	}

	conn := data.Metaobject.ReferencedBy
	page := &contracts.BacklinkPage{
		Items:       make([]contracts.Backlink, 0, len(conn.Nodes)),
		HasNextPage: conn.PageInfo.HasNextPage,
	}
	if conn.PageInfo.EndCursor != nil {
		page.EndCursor = *conn.PageInfo.EndCursor
	}
	for _, n := range conn.Nodes {
		page.Items = append(page.Items, contracts.Backlink{
			ReferencerID:   n.Referencer.ID,
			ReferencerType: n.Referencer.TypeName,
		})
	}
	return page, nil
}

// FetchDefinition reads a metaobject and its fields.
func (g *Gateway) FetchDefinition(ctx context.Context, definitionID string) (*domain.Definition, error) {
	var data struct {
		Metaobject *struct {
			ID     string `json:"id"`
			Type   string `json:"type"`
			Fields []struct {
				Key       string  `json:"key"`
				Type      string  `json:"type"`
				Value     *string `json:"value"`
				Reference *struct {
					TypeName string `json:"__typename"`
					ID       string `json:"id"`
				} `json:"reference"`
			} `json:"fields"`
		} `json:"metaobject"`
	}
	if err := g.client.Do(ctx, definitionQuery, map[string]interface{}{"id": definitionID}, &data); err != nil {
		return nil, fmt.Errorf("failed to fetch definition: %w", err)
	}
	if data.Metaobject == nil {
		return nil, domain.ErrDefinitionNotFound
	}

	mo := data.Metaobject
	def := &domain.Definition{
		ID:              mo.ID,
		Type:            mo.Type,
		Fields:          make(map[string]*string, len(mo.Fields)),
		ReferenceFields: make(map[string]string),
	}
	for _, f := range mo.Fields {
		def.Fields[f.Key] = f.Value
		switch {
		case f.Reference != nil && f.Reference.ID != "":
			def.ReferenceFields[f.Key] = f.Reference.ID
		case f.Type == metaobjectReference && f.Value != nil:
			def.ReferenceFields[f.Key] = *f.Value
		}
	}
	return def, nil
}

// FetchProduct reads a product, its metafields and every page of its variants.
func (g *Gateway) FetchProduct(ctx context.Context, productID string) (*domain.ProductSnapshot, error) {
	var data struct {
		Product *struct {
			ID          string              `json:"id"`
			ProductType string              `json:"productType"`
			Vendor      string              `json:"vendor"`
			Metafields  metafieldConnection `json:"metafields"`
			Variants    variantConnection   `json:"variants"`
		} `json:"product"`
	}
	vars := map[string]interface{}{
		"id":                productID,
		"metafields":        maxProductMetafields,
		"variants":          maxVariants,
		"variantMetafields": maxVariantMetafields,
	}
	if err := g.client.Do(ctx, productQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}
	if data.Product == nil {
		return nil, domain.ErrProductNotFound
	}

	p := data.Product
	snap := &domain.ProductSnapshot{
		ID:          p.ID,
		ProductType: p.ProductType,
		Vendor:      p.Vendor,
		Metafields:  toMetafields(p.Metafields),
		Variants:    make([]domain.Variant, 0, len(p.Variants.Nodes)),
	}
	snap.Variants = appendVariants(snap.Variants, p.Variants.Nodes)

	variants, err := g.remainingVariants(ctx, productID, p.Variants.PageInfo)
	if err != nil {
		return nil, err
	}
	snap.Variants = append(snap.Variants, variants...)
	return snap, nil
}

// remainingVariants follows the variants connection after the first page. A page that
// claims more results without advancing the cursor is an error, so a product is never
// propagated with part of its variants.
func (g *Gateway) remainingVariants(ctx context.Context, productID string, page pageInfo) ([]domain.Variant, error) {
	var out []domain.Variant
	cursor := ""
	for page.HasNextPage {
		if page.EndCursor == nil || *page.EndCursor == "" || *page.EndCursor == cursor {
			return nil, fmt.Errorf("failed to fetch variants of %s: %w", productID, ErrVariantCursorStalled)
		}
		cursor = *page.EndCursor

		var data struct {
			Product *struct {
				Variants variantConnection `json:"variants"`
			} `json:"product"`
		}
		vars := map[string]interface{}{
			"id":                productID,
			"variants":          maxVariants,
			"after":             cursor,
			"variantMetafields": maxVariantMetafields,
		}
		if err := g.client.Do(ctx, productVariantsQuery, vars, &data); err != nil {
			return nil, fmt.Errorf("failed to fetch variants: %w", err)
		}
		if data.Product == nil {
			return nil, domain.ErrProductNotFound
		}
		out = appendVariants(out, data.Product.Variants.Nodes)
		page = data.Product.Variants.PageInfo
	}
	return out, nil
}

func appendVariants(dst []domain.Variant, nodes []variantNode) []domain.Variant {
	for _, v := range nodes {
		options := make([]string, 0, len(v.SelectedOptions))
		for _, o := range v.SelectedOptions {
			options = append(options, o.Value)
		}
		dst = append(dst, domain.Variant{
			ID:                v.ID,
			Title:             v.Title,
			OptionValues:      options,
			SKU:               v.SKU,
			Barcode:           v.Barcode,
			Price:             v.Price,
			CompareAtPrice:    v.CompareAtPrice,
			InventoryQuantity: v.InventoryQuantity,
			Metafields:        toMetafields(v.Metafields),
		})
	}
	return dst
}

// WriteProductChangeSet sends the product update, the variant bulk update and the deletion
// of nulled metafields as aliased mutations of one document.
func (g *Gateway) WriteProductChangeSet(ctx context.Context, cs *domain.ChangeSet) (*contracts.WriteResult, error) {
	doc, vars := buildWriteDocument(cs)
	if doc == "" {
		return &contracts.WriteResult{}, nil
	}

	var data map[string]struct {
		UserErrors []userError `json:"userErrors"`
	}
	if err := g.client.Do(ctx, doc, vars, &data); err != nil {
		return nil, fmt.Errorf("failed to write change-set: %w", err)
	}

	result := &contracts.WriteResult{}
	for _, alias := range []string{"product", "variants", "cleared"} {
		payload, ok := data[alias]
		if !ok {
			continue
		}
		for _, ue := range payload.UserErrors {
			result.UserErrors = append(result.UserErrors, domain.UserError{Field: ue.Field, Message: ue.Message})
		}
	}
	return result, nil
}

func buildWriteDocument(cs *domain.ChangeSet) (string, map[string]interface{}) {
	var (
		params []string
		body   []string
		vars   = make(map[string]interface{})
		clears []map[string]interface{}
	)

	product := map[string]interface{}{"id": cs.ProductID}
	for _, field := range cs.Fields() {
		v, _ := cs.Field(field)
		product[field] = v
	}
	setMetafields, cleared := splitMetafields(cs.ProductID, cs.Metafields)
	clears = append(clears, cleared...)
	if len(setMetafields) > 0 {
		product["metafields"] = setMetafields
	}
	if len(product) > 1 {
		params = append(params, "$product: ProductUpdateInput!")
		body = append(body, `product: productUpdate(product: $product) { userErrors { field message } }`)
		vars["product"] = product
	}

	variants := make([]map[string]interface{}, 0, len(cs.Variants))
	for _, vc := range cs.Variants {
		in := map[string]interface{}{"id": vc.ID}
		for _, field := range vc.Fields() {
			v, _ := vc.Field(field)
			in[field] = v
		}
		set, cl := splitMetafields(vc.ID, vc.Metafields)
		clears = append(clears, cl...)
		if len(set) > 0 {
			in["metafields"] = set
		}
		if len(in) > 1 {
			variants = append(variants, in)
		}
	}
	if len(variants) > 0 {
		params = append(params, "$productId: ID!", "$variants: [ProductVariantsBulkInput!]!")
		body = append(body, `variants: productVariantsBulkUpdate(productId: $productId, variants: $variants) { userErrors { field message } }`)
		vars["productId"] = cs.ProductID
		vars["variants"] = variants
	}

	if len(clears) > 0 {
		params = append(params, "$cleared: [MetafieldIdentifierInput!]!")
		body = append(body, `cleared: metafieldsDelete(metafields: $cleared) { userErrors { field message } }`)
		vars["cleared"] = clears
	}

	if len(body) == 0 {
		return "", nil
	}
	doc := fmt.Sprintf("mutation PropagateChangeSet(%s) {\n  %s\n}", strings.Join(params, ", "), strings.Join(body, "\n  "))
	return doc, vars
}

// splitMetafields separates values to set from nulls. The API has no null metafield value,
// so a null is written through as a deletion of the metafield.
func splitMetafields(ownerID string, changes []domain.MetafieldChange) ([]map[string]interface{}, []map[string]interface{}) {
	var set, cleared []map[string]interface{}
	for _, mc := range changes {
		if mc.Value == nil {
			cleared = append(cleared, map[string]interface{}{
				"ownerId":   ownerID,
				"namespace": mc.Namespace,
				"key":       mc.Key,
			})
			continue
		}
		in := map[string]interface{}{"value": *mc.Value}
		if mc.ID != "" {
			in["id"] = mc.ID
		} else {
			in["namespace"] = mc.Namespace
			in["key"] = mc.Key
			in["type"] = mc.Type
		}
		set = append(set, in)
	}
	return set, cleared
}

func toMetafields(conn metafieldConnection) map[string]domain.Metafield {
	out := make(map[string]domain.Metafield, len(conn.Nodes))
	for _, n := range conn.Nodes {
		out[domain.MetafieldKey(n.Namespace, n.Key)] = domain.Metafield{
			ID:        n.ID,
			Namespace: n.Namespace,
			Key:       n.Key,
			Type:      n.Type,
			Value:     n.Value,
		}
	}
	return out
}

var _ contracts.Catalog = (*Gateway)(nil)
