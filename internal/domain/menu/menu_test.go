package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func boolPtr(b bool) *bool { return &b }

func testItems() []Item {
	return []Item{
		{ID: 1, Name: "Latte", Price: 3.5, Category: "coffee", Categories: []string{"coffee", "hot-drinks"}, IsVeg: boolPtr(true),
			SizePrices: map[string]float64{"small": 2.99, "regular": 3.99, "large": 4.99}},
		{ID: 2, Name: "Bacon Roll", Price: 5, Category: " food ", IsVeg: boolPtr(false)},
		{ID: 3, Name: "Iced Tea", Price: 2.5, Categories: []string{"cold-drinks", ""}},
	}
}

// ============================================
// Pricing Tests
// ============================================

func TestItem_PriceFor(t *testing.T) {
	item := testItems()[0]

	tests := []struct {
		name     string
		size     string
		expected float64
	}{
		{"regular size", "regular", 3.99},
		{"large size", "large", 4.99},
		{"unknown size falls back to base", "huge", 3.5},
		{"no size falls back to base", "", 3.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, item.PriceFor(tt.size))
		})
	}
}

func TestItem_DefaultSize(t *testing.T) {
	items := testItems()

	assert.Equal(t, "regular", items[0].DefaultSize())
	assert.Equal(t, "", items[1].DefaultSize())

	noRegular := Item{SizePrices: map[string]float64{"medium": 3, "large": 4}}
	assert.Equal(t, "large", noRegular.DefaultSize())
}

func TestItem_Sizes(t *testing.T) {
	assert.Equal(t, []string{"large", "regular", "small"}, testItems()[0].Sizes())
	assert.Empty(t, testItems()[1].Sizes())
}

// ============================================
// Category Tests
// ============================================

func TestCategories(t *testing.T) {
	assert.Equal(t,
		[]string{"All", "Veg", "Non-Veg", "coffee", "cold-drinks", "food", "hot-drinks"},
		Categories(testItems()))
}

func TestCategories_OnlyVeg(t *testing.T) {
	items := []Item{{ID: 1, IsVeg: boolPtr(true), Category: "tea"}}
	assert.Equal(t, []string{"All", "Veg", "tea"}, Categories(items))
}

func TestCategories_Empty(t *testing.T) {
	assert.Equal(t, []string{"All"}, Categories(nil))
}

func TestFilter(t *testing.T) {
	items := testItems()

	tests := []struct {
		name     string
		category string
		expected []int64
	}{
		{"all", "All", []int64{1, 2, 3}},
		{"empty means all", "", []int64{1, 2, 3}},
		{"veg", "Veg", []int64{1}},
		{"non-veg includes unset", "Non-Veg", []int64{2, 3}},
		{"single category field", "coffee", []int64{1}},
		{"categories list", "cold-drinks", []int64{3}},
		{"no match", "dessert", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ids []int64
			for _, item := range Filter(items, tt.category) {
				ids = append(ids, item.ID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}
