package menu

import (
	"sort"
	"strings"
)

const (
	CategoryAll    = "All"
	CategoryVeg    = "Veg"
	CategoryNonVeg = "Non-Veg"

	// SizeRegular is preselected when an item offers it.
	SizeRegular = "regular"
)

// Item is a menu entry as served by GET /api/v1/menu.
type Item struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Price       float64            `json:"price"`
	Category    string             `json:"category,omitempty"`
	Categories  []string           `json:"categories,omitempty"`
	Size        string             `json:"size,omitempty"`
	IsVeg       *bool              `json:"is_veg,omitempty"`
	ImageURL    string             `json:"image_url,omitempty"`
	SizePrices  map[string]float64 `json:"size_prices,omitempty"`
}

// Sizes returns the sizes the item can be ordered in, sorted.
func (i Item) Sizes() []string {
	sizes := make([]string, 0, len(i.SizePrices))
	for size := range i.SizePrices {
		sizes = append(sizes, size)
	}
	sort.Strings(sizes)
	return sizes
}

// HasSizes reports whether the item is priced per size.
func (i Item) HasSizes() bool {
	return len(i.SizePrices) > 0
}

// DefaultSize is "regular" when offered, otherwise the first size, or ""
// for items without size pricing.
func (i Item) DefaultSize() string {
	if !i.HasSizes() {
		return ""
	}
	if _, ok := i.SizePrices[SizeRegular]; ok {
		return SizeRegular
	}
	return i.Sizes()[0]
}

// PriceFor returns the price for size, falling back to the base price.
func (i Item) PriceFor(size string) float64 {
	if size != "" {
		if p, ok := i.SizePrices[size]; ok && p != 0 {
			return p
		}
	}
	return i.Price
}

// Veg reports whether the item is explicitly marked vegetarian.
func (i Item) Veg() bool {
	return i.IsVeg != nil && *i.IsVeg
}

// InCategory matches the single category field or the categories list.
func (i Item) InCategory(category string) bool {
	if i.Category == category {
		return true
	}
	for _, c := range i.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Categories builds the browse list: All, Veg and Non-Veg when present, then
// the sorted union of every item's categories.
func Categories(items []Item) []string {
	seen := make(map[string]struct{})
	var hasVeg, hasNonVeg bool
	for _, item := range items {
		if c := strings.TrimSpace(item.Category); c != "" {
			seen[c] = struct{}{}
		}
		for _, c := range item.Categories {
			if c = strings.TrimSpace(c); c != "" {
				seen[c] = struct{}{}
			}
		}
		if item.Veg() {
			hasVeg = true
		} else {
			hasNonVeg = true
		}
	}

	unique := make([]string, 0, len(seen))
	for c := range seen {
		unique = append(unique, c)
	}
	sort.Strings(unique)

	result := []string{CategoryAll}
	if hasVeg {
		result = append(result, CategoryVeg)
	}
	if hasNonVeg {
		result = append(result, CategoryNonVeg)
	}
	return append(result, unique...)
}

// Filter returns the items shown under category.
func Filter(items []Item, category string) []Item {
	if category == "" || category == CategoryAll {
		return items
	}
	var result []Item
	for _, item := range items {
		var match bool
		switch category {
		case CategoryVeg:
			match = item.Veg()
		case CategoryNonVeg:
			match = !item.Veg()
		default:
			match = item.InCategory(category)
		}
		if match {
			result = append(result, item)
		}
	}
	return result
}
