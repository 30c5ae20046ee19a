package domain

import (
	"fmt"
	"strings"
)

// Channel is the sales channel a variant serves, taken from its selected option value.
type Channel string

const (
	ChannelNone Channel = ""
	ChannelD2C  Channel = "D2C"
	ChannelB2B  Channel = "B2B"
)

// Metafield is a namespaced value attached to a product or variant.
type Metafield struct {
	ID        string
	Namespace string
	Key       string
	Type      string
	Value     *string
}

// MetafieldKey builds the map key used for metafield lookups.
func MetafieldKey(namespace, key string) string {
	return namespace + "." + key
}

// Variant is one purchasable option of a product.
type Variant struct {
	ID                string
	Title             string
	OptionValues      []string
	SKU               string
	Barcode           string
	Price             *string
	CompareAtPrice    *string
	InventoryQuantity *int64
	Metafields        map[string]Metafield
}

// Channel matches the selected option values, then the title, case-insensitively
// against "D2C" and "B2B".
func (v Variant) Channel() Channel {
	for _, value := range v.OptionValues {
		if c := channelOf(value); c != ChannelNone {
			return c
		}
	}
	return channelOf(v.Title)
}

// OptionValue is the option value that identified the channel, or the first option value.
func (v Variant) OptionValue() string {
	for _, value := range v.OptionValues {
		if channelOf(value) != ChannelNone {
			return value
		}
	}
	if len(v.OptionValues) > 0 {
		return v.OptionValues[0]
	}
	return v.Title
}

func channelOf(s string) Channel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(ChannelD2C):
		return ChannelD2C
	case string(ChannelB2B):
		return ChannelB2B
	default:
		return ChannelNone
	}
}

// ProductSnapshot is the current state of a product as read from the catalog.
type ProductSnapshot struct {
	ID          string
	ProductType string
	Vendor      string
	Metafields  map[string]Metafield
	Variants    []Variant
}

// Metafield looks up a product metafield.
func (p ProductSnapshot) Metafield(namespace, key string) (Metafield, bool) {
	m, ok := p.Metafields[MetafieldKey(namespace, key)]
	return m, ok
}

// CheckChannels enforces at most one variant per channel.
func (p ProductSnapshot) CheckChannels() error {
	seen := make(map[Channel]string, 2)
	for _, v := range p.Variants {
		c := v.Channel()
		if c == ChannelNone {
			continue
		}
		if prev, dup := seen[c]; dup {
			return fmt.Errorf("%w: %s on variants %s and %s", ErrDuplicateChannel, c, prev, v.ID)
		}
		seen[c] = v.ID
	}
	return nil
}
