package domain

import "strings"

// Category is the type of a shared definition. The set is closed: only categories with a
// registered Rule are propagated.
type Category string

const (
	CategoryBrand    Category = "brand"
	CategoryOccasion Category = "occasion"
	CategoryCategory Category = "category"
)

// ParseCategory normalizes a raw definition type. The boolean is false for categories the
// engine does not propagate.
func ParseCategory(raw string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := rules[c]
	return c, ok
}

// DisplayName is the capitalized form used in error log entries ("Brand").
func (c Category) DisplayName() string {
	s := string(c)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (c Category) String() string {
	return string(c)
}
