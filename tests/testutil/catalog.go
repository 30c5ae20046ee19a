package testutil

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/light-bringer/metasync-service/internal/app/propagation/contracts"
	"github.com/light-bringer/metasync-service/internal/app/propagation/domain"
)

// FakeCatalog is an in-memory contracts.Catalog. Writes are applied to the stored
// snapshots so tests can assert on the resulting product state.
type FakeCatalog struct {
	mu sync.Mutex

	definitions map[string]domain.Definition
	products    map[string]*domain.ProductSnapshot
	backlinks   map[string][]contracts.Backlink

	// FailPage makes the n-th backlink page request (1-based, across all calls) fail.
	FailPage    int
	BacklinkErr error
	// DefinitionErr is returned by every FetchDefinition call when set.
	DefinitionErr error
	// ProductErrs, WriteErrs and UserErrors are keyed by product id.
	ProductErrs map[string]error
	WriteErrs   map[string]error
	UserErrors  map[string][]domain.UserError

	pageCalls int
	writes    []*domain.ChangeSet
}

var _ contracts.Catalog = (*FakeCatalog)(nil)

// NewFakeCatalog creates an empty catalog.
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		definitions: make(map[string]domain.Definition),
		products:    make(map[string]*domain.ProductSnapshot),
		backlinks:   make(map[string][]contracts.Backlink),
		ProductErrs: make(map[string]error),
		WriteErrs:   make(map[string]error),
		UserErrors:  make(map[string][]domain.UserError),
	}
}

// AddDefinition stores a definition.
func (c *FakeCatalog) AddDefinition(def domain.Definition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.definitions[def.ID] = def
}

// AddProduct stores a product and links it as a referencer of each definition id.
func (c *FakeCatalog) AddProduct(p domain.ProductSnapshot, definitionIDs ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := p
	c.products[p.ID] = &cp
	for _, id := range definitionIDs {
		c.backlinks[id] = append(c.backlinks[id], contracts.Backlink{ReferencerID: p.ID, ReferencerType: contracts.ReferencerProduct})
	}
}

// AddBacklink links an arbitrary referencer to a definition.
func (c *FakeCatalog) AddBacklink(definitionID string, b contracts.Backlink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backlinks[definitionID] = append(c.backlinks[definitionID], b)
}

// Product returns a copy of the stored product.
func (c *FakeCatalog) Product(id string) domain.ProductSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.products[id]; ok {
		return *p
	}
	return domain.ProductSnapshot{}
}

// Writes returns the change-sets written so far, in order.
func (c *FakeCatalog) Writes() []*domain.ChangeSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*domain.ChangeSet, len(c.writes))
	copy(out, c.writes)
	return out
}

// WrittenProductIDs returns the ids of products written so far, sorted.
func (c *FakeCatalog) WrittenProductIDs() []string {
	var ids []string
	for _, cs := range c.Writes() {
		ids = append(ids, cs.ProductID)
	}
	sort.Strings(ids)
	return ids
}

// PageCalls returns how many backlink pages were requested.
func (c *FakeCatalog) PageCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pageCalls
}

func (c *FakeCatalog) FetchBacklinkPage(ctx context.Context, definitionID, cursor string, pageSize int) (*contracts.BacklinkPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pageCalls++
	if c.FailPage > 0 && c.pageCalls == c.FailPage {
		if c.BacklinkErr != nil {
			return nil, c.BacklinkErr
		}
		return nil, fmt.Errorf("backlink page unavailable")
	}

	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor %q", cursor)
		}
		start = n
	}

	all := c.backlinks[definitionID]
	if start > len(all) {
		start = len(all)
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}

	items := make([]contracts.Backlink, end-start)
	copy(items, all[start:end])
	return &contracts.BacklinkPage{
		Items:       items,
		EndCursor:   strconv.Itoa(end),
		HasNextPage: end < len(all),
	}, nil
}

func (c *FakeCatalog) FetchDefinition(ctx context.Context, definitionID string) (*domain.Definition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.DefinitionErr != nil {
		return nil, c.DefinitionErr
	}
	def, ok := c.definitions[definitionID]
	if !ok {
		return nil, domain.ErrDefinitionNotFound
	}
	return &def, nil
}

func (c *FakeCatalog) FetchProduct(ctx context.Context, productID string) (*domain.ProductSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ProductErrs[productID]; err != nil {
		return nil, err
	}
	p, ok := c.products[productID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (c *FakeCatalog) WriteProductChangeSet(ctx context.Context, cs *domain.ChangeSet) (*contracts.WriteResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writes = append(c.writes, cs)
	if err := c.WriteErrs[cs.ProductID]; err != nil {
		return nil, err
	}
	if ue := c.UserErrors[cs.ProductID]; len(ue) > 0 {
		return &contracts.WriteResult{UserErrors: ue}, nil
	}

	p, ok := c.products[cs.ProductID]
	if !ok {
		return &contracts.WriteResult{UserErrors: []domain.UserError{{Field: []string{"id"}, Message: "Product does not exist"}}}, nil
	}
	applyChangeSet(p, cs)
	return &contracts.WriteResult{}, nil
}

func applyChangeSet(p *domain.ProductSnapshot, cs *domain.ChangeSet) {
	if v, ok := cs.Field(domain.ProductFieldVendor); ok {
		p.Vendor = deref(v)
	}
	if v, ok := cs.Field(domain.ProductFieldProductType); ok {
		p.ProductType = deref(v)
	}
	p.Metafields = applyMetafields(p.Metafields, cs.Metafields)

	for _, vc := range cs.Variants {
		for i := range p.Variants {
			v := &p.Variants[i]
			if v.ID != vc.ID {
				continue
			}
			if price, ok := vc.Field(domain.VariantFieldPrice); ok {
				v.Price = price
			}
			if price, ok := vc.Field(domain.VariantFieldCompareAtPrice); ok {
				v.CompareAtPrice = price
			}
			v.Metafields = applyMetafields(v.Metafields, vc.Metafields)
		}
	}
}

func applyMetafields(existing map[string]domain.Metafield, changes []domain.MetafieldChange) map[string]domain.Metafield {
	out := make(map[string]domain.Metafield, len(existing)+len(changes))
	for k, v := range existing {
		out[k] = v
	}
	for _, mc := range changes {
		key := domain.MetafieldKey(mc.Namespace, mc.Key)
		id := mc.ID
		if id == "" {
			id = "fake-" + key
		}
		out[key] = domain.Metafield{ID: id, Namespace: mc.Namespace, Key: mc.Key, Type: mc.Type, Value: mc.Value}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
