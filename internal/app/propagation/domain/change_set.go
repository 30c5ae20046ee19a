package domain

// Product-level fields a change-set can overwrite.
const (
	ProductFieldProductType = "productType"
	ProductFieldVendor      = "vendor"
)

// Variant-level fields a change-set can overwrite.
const (
	VariantFieldPrice          = "price"
	VariantFieldCompareAtPrice = "compareAtPrice"
)

// Metafield namespace and types written by the rules.
const (
	MetafieldNamespace = "custom"

	MetafieldTypeText    = "single_line_text_field"
	MetafieldTypeInteger = "number_integer"
	MetafieldTypeBoolean = "boolean"
)

// Metafield keys written by the rules.
const (
	MetafieldOccasion   = "occasion"
	MetafieldAssortment = "assortment"
	MetafieldSize       = "size"
	MetafieldClearance  = "clearance"
	MetafieldCount      = "count"
)

// MetafieldChange overwrites one metafield. ID is set when the metafield already exists.
type MetafieldChange struct {
	ID        string
	Namespace string
	Key       string
	Type      string
	Value     *string
}

// ChangeSet is everything one propagation writes to one product. It is never persisted.
type ChangeSet struct {
	ProductID  string
	Metafields []MetafieldChange
	Variants   []*VariantChange

	fields *ChangeTracker
}

// NewChangeSet creates an empty change-set for a product.
func NewChangeSet(productID string) *ChangeSet {
	return &ChangeSet{ProductID: productID, fields: NewChangeTracker()}
}

// SetField overwrites a top-level product field.
func (cs *ChangeSet) SetField(field string, value *string) {
	cs.fields.Set(field, value)
}

// Field returns the new value of a product field and whether it is overwritten.
func (cs *ChangeSet) Field(field string) (*string, bool) {
	return cs.fields.Get(field)
}

// Fields returns the overwritten product fields in order.
func (cs *ChangeSet) Fields() []string {
	return cs.fields.DirtyFields()
}

// SetMetafield overwrites a product metafield, reusing the id and type of an existing one.
func (cs *ChangeSet) SetMetafield(existing map[string]Metafield, namespace, key, typ string, value *string) {
	cs.Metafields = append(cs.Metafields, metafieldChange(existing, namespace, key, typ, value))
}

// AddVariant appends a variant overwrite. Variants with no changes are dropped.
func (cs *ChangeSet) AddVariant(vc *VariantChange) {
	if vc == nil || !vc.HasChanges() {
		return
	}
	cs.Variants = append(cs.Variants, vc)
}

// IsEmpty reports whether applying the change-set would write nothing.
func (cs *ChangeSet) IsEmpty() bool {
	return !cs.fields.HasChanges() && len(cs.Metafields) == 0 && len(cs.Variants) == 0
}

// Metafield returns the change for namespace.key, if any.
func (cs *ChangeSet) Metafield(namespace, key string) (MetafieldChange, bool) {
	return findMetafield(cs.Metafields, namespace, key)
}

// VariantByChannel returns the change targeting the variant of channel c.
func (cs *ChangeSet) VariantByChannel(c Channel) (*VariantChange, bool) {
	for _, vc := range cs.Variants {
		if vc.Channel == c {
			return vc, true
		}
	}
	return nil, false
}

// VariantChange overwrites one variant, identified by its channel option value.
// ID is carried along because most platforms address variants by id on write.
type VariantChange struct {
	ID          string
	OptionValue string
	Channel     Channel
	Metafields  []MetafieldChange

	fields   *ChangeTracker
	existing map[string]Metafield
}

// NewVariantChange starts a change targeting v.
func NewVariantChange(v Variant) *VariantChange {
	return &VariantChange{
		ID:          v.ID,
		OptionValue: v.OptionValue(),
		Channel:     v.Channel(),
		fields:      NewChangeTracker(),
		existing:    v.Metafields,
	}
}

// SetPrice overwrites the variant price.
func (vc *VariantChange) SetPrice(amount *string) {
	vc.fields.Set(VariantFieldPrice, amount)
}

// SetCompareAtPrice overwrites the variant compare-at price.
func (vc *VariantChange) SetCompareAtPrice(amount *string) {
	vc.fields.Set(VariantFieldCompareAtPrice, amount)
}

// Field returns the new value of a variant field and whether it is overwritten.
func (vc *VariantChange) Field(field string) (*string, bool) {
	return vc.fields.Get(field)
}

// Fields returns the overwritten variant fields in order.
func (vc *VariantChange) Fields() []string {
	return vc.fields.DirtyFields()
}

// SetMetafield overwrites a variant metafield.
func (vc *VariantChange) SetMetafield(namespace, key, typ string, value *string) {
	vc.Metafields = append(vc.Metafields, metafieldChange(vc.existing, namespace, key, typ, value))
}

// Metafield returns the change for namespace.key, if any.
func (vc *VariantChange) Metafield(namespace, key string) (MetafieldChange, bool) {
	return findMetafield(vc.Metafields, namespace, key)
}

// HasChanges reports whether the variant change writes anything.
func (vc *VariantChange) HasChanges() bool {
	return vc.fields.HasChanges() || len(vc.Metafields) > 0
}

func metafieldChange(existing map[string]Metafield, namespace, key, typ string, value *string) MetafieldChange {
	mc := MetafieldChange{Namespace: namespace, Key: key, Type: typ, Value: value}
	if m, ok := existing[MetafieldKey(namespace, key)]; ok {
		mc.ID = m.ID
		if m.Type != "" {
			mc.Type = m.Type
		}
	}
	return mc
}

func findMetafield(changes []MetafieldChange, namespace, key string) (MetafieldChange, bool) {
	for _, mc := range changes {
		if mc.Namespace == namespace && mc.Key == key {
			return mc, true
		}
	}
	return MetafieldChange{}, false
}
