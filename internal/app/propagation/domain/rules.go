package domain

// Rule computes the change-set a definition implies for one product. Implementations are
// pure: everything they read is on the definition or the snapshot.
type Rule interface {
	Category() Category
	// References lists definition fields that point to other definitions the rule reads.
	// The caller fetches them and attaches them with Definition.WithResolved.
	References() []string
	ComputeChangeSet(def Definition, product ProductSnapshot) (*ChangeSet, error)
}

var rules = map[Category]Rule{
	CategoryBrand:    brandRule{},
	CategoryOccasion: occasionRule{},
	CategoryCategory: categoryRule{},
}

// RuleFor returns the rule of a propagated category.
func RuleFor(c Category) (Rule, bool) {
	r, ok := rules[c]
	return r, ok
}

// DefaultAssortment is used when a category definition does not reference an assortment.
const DefaultAssortment = "1"

type brandRule struct{}

func (brandRule) Category() Category   { return CategoryBrand }
func (brandRule) References() []string { return nil }

func (brandRule) ComputeChangeSet(def Definition, product ProductSnapshot) (*ChangeSet, error) {
	cs := NewChangeSet(product.ID)
	vendor := ""
	if name := def.Value(FieldName); name != nil {
		vendor = *name
	}
	cs.SetField(ProductFieldVendor, &vendor)
	return cs, nil
}

type occasionRule struct{}

func (occasionRule) Category() Category   { return CategoryOccasion }
func (occasionRule) References() []string { return nil }

func (occasionRule) ComputeChangeSet(def Definition, product ProductSnapshot) (*ChangeSet, error) {
	cs := NewChangeSet(product.ID)
	cs.SetMetafield(product.Metafields, MetafieldNamespace, MetafieldOccasion, MetafieldTypeText, def.Value(FieldName))
	return cs, nil
}

type categoryRule struct{}

func (categoryRule) Category() Category   { return CategoryCategory }
func (categoryRule) References() []string { return []string{FieldAssortment} }

type channelPricing struct {
	price          *string
	compareAtPrice *string
	count          *string
}

func (categoryRule) ComputeChangeSet(def Definition, product ProductSnapshot) (*ChangeSet, error) {
	if err := product.CheckChannels(); err != nil {
		return nil, &TransformationError{Field: "variants", Err: err}
	}

	assortment, err := assortmentValue(def)
	if err != nil {
		return nil, err
	}

	d2c, err := pricing(def, FieldD2CPrice, FieldD2CCompareAtPrice)
	if err != nil {
		return nil, err
	}
	d2c.count = assortment

	b2b, err := pricing(def, FieldB2BPrice, FieldB2BCompareAtPrice)
	if err != nil {
		return nil, err
	}
	b2b.count = def.Value(FieldB2BCount)

	cs := NewChangeSet(product.ID)
	cs.SetField(ProductFieldProductType, def.Value(FieldProductType))
	cs.SetMetafield(product.Metafields, MetafieldNamespace, MetafieldAssortment, MetafieldTypeInteger, assortment)
	cs.SetMetafield(product.Metafields, MetafieldNamespace, MetafieldSize, MetafieldTypeText, def.Value(FieldSize))

	clearance := def.Value(FieldClearance)
	for _, v := range product.Variants {
		vc := NewVariantChange(v)
		vc.SetMetafield(MetafieldNamespace, MetafieldClearance, MetafieldTypeBoolean, clearance)

		var p *channelPricing
		switch vc.Channel {
		case ChannelD2C:
			p = &d2c
		case ChannelB2B:
			p = &b2b
		}
		if p != nil {
			vc.SetPrice(p.price)
			vc.SetCompareAtPrice(p.compareAtPrice)
			vc.SetMetafield(MetafieldNamespace, MetafieldCount, MetafieldTypeInteger, p.count)
		}
		cs.AddVariant(vc)
	}
	return cs, nil
}

// assortmentValue is the count of the referenced assortment definition, or the default
// when the field references nothing.
func assortmentValue(def Definition) (*string, error) {
	refID, ok := def.ReferenceID(FieldAssortment)
	if !ok {
		return StringPtr(DefaultAssortment), nil
	}
	ref, ok := def.Resolved[FieldAssortment]
	if !ok || ref.ID != refID {
		return nil, &TransformationError{Field: FieldAssortment, Err: ErrDefinitionNotFound}
	}
	return ref.Value(FieldCount), nil
}

func pricing(def Definition, priceField, compareAtField string) (channelPricing, error) {
	price, err := ParseAmount(def.Value(priceField))
	if err != nil {
		return channelPricing{}, &TransformationError{Field: priceField, Err: err}
	}
	compareAt, err := ParseAmount(def.Value(compareAtField))
	if err != nil {
		return channelPricing{}, &TransformationError{Field: compareAtField, Err: err}
	}
	return channelPricing{price: price, compareAtPrice: compareAt}, nil
}
