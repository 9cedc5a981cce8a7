package catalog

import (
	"slices"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/apna-store/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func dec(v int64) *decimal.Decimal { return ptr(decimal.NewFromInt(v)) }

func TestApplyFilters_TwoProductExample(t *testing.T) {
	products := []domain.Product{
		{ID: 1, Price: decimal.NewFromInt(100), Rating: 4},
		{ID: 2, Price: decimal.NewFromInt(50), Rating: 5},
	}

	t.Run("price_low", func(t *testing.T) {
		got := ids(ApplyFilters(products, Filter{Sort: SortPriceLow}))
		if !slices.Equal(got, []int{2, 1}) {
			t.Errorf("expected [2 1], got %v", got)
		}
	})

	t.Run("rating", func(t *testing.T) {
		got := ids(ApplyFilters(products, Filter{Sort: SortRating}))
		if !slices.Equal(got, []int{2, 1}) {
			t.Errorf("expected [2 1], got %v", got)
		}
	})

	t.Run("price range", func(t *testing.T) {
		got := ids(ApplyFilters(products, Filter{Price: &PriceRange{Min: dec(60), Max: dec(200)}}))
		if !slices.Equal(got, []int{1}) {
			t.Errorf("expected [1], got %v", got)
		}
	})
}

func TestApplyFilters_Criteria(t *testing.T) {
	products := testProducts()

	tests := []struct {
		name   string
		filter Filter
		want   []int
	}{
		{"empty filter keeps source order", Filter{}, []int{1, 2, 3, 4}},
		{"category is case-insensitive", Filter{Category: ptr("CLOTHING")}, []int{1, 4}},
		{"price bounds are inclusive", Filter{Price: &PriceRange{Min: dec(999), Max: dec(4599)}}, []int{1, 2, 4}},
		{"open upper bound", Filter{Price: &PriceRange{Min: dec(4000)}}, []int{2, 3}},
		{"brand membership", Filter{Brands: []string{"Sony", "Nike"}}, []int{2, 3}},
		{"size intersection", Filter{Sizes: []string{"XS", "9"}}, []int{2, 4}},
		{"size filter drops products without sizes", Filter{Sizes: []string{"L"}}, []int{1}},
		{"color intersection", Filter{Colors: []string{"Black"}}, []int{2, 3}},
		{"minimum rating", Filter{MinRating: ptr(4.5)}, []int{2, 3}},
		{"zero rating is skipped", Filter{MinRating: ptr(0.0)}, []int{1, 2, 3, 4}},
		{"free text", Filter{Query: ptr("shirt")}, []int{1, 3, 4}},
		{"criteria combine with AND", Filter{Category: ptr("clothing"), Query: ptr("shirt"), MinRating: ptr(4.0)}, []int{1}},
		{"price_high", Filter{Sort: SortPriceHigh}, []int{3, 2, 4, 1}},
		{"newest", Filter{Sort: SortNewest}, []int{4, 3, 2, 1}},
		{"relevance keeps order", Filter{Sort: SortRelevance, Colors: []string{"Black", "White"}}, []int{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(ApplyFilters(products, tt.filter))
			if !slices.Equal(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestApplyFilters_StableSort(t *testing.T) {
	products := []domain.Product{
		{ID: 1, Price: decimal.NewFromInt(10), Rating: 4},
		{ID: 2, Price: decimal.NewFromInt(10), Rating: 5},
		{ID: 3, Price: decimal.NewFromInt(5), Rating: 4},
	}

	got := ids(ApplyFilters(products, Filter{Sort: SortPriceLow}))
	if !slices.Equal(got, []int{3, 1, 2}) {
		t.Errorf("expected [3 1 2], got %v", got)
	}

	got = ids(ApplyFilters(products, Filter{Sort: SortRating}))
	if !slices.Equal(got, []int{2, 1, 3}) {
		t.Errorf("expected [2 1 3], got %v", got)
	}
}

func TestApplyFilters_Idempotent(t *testing.T) {
	filters := []Filter{
		{Sort: SortPriceLow},
		{Sort: SortRating, Colors: []string{"Black", "White"}},
		{Category: ptr("clothing"), Sort: SortPriceHigh},
		{Query: ptr("s"), MinRating: ptr(4.0), Sort: SortNewest},
	}

	for _, f := range filters {
		once := ApplyFilters(testProducts(), f)
		twice := ApplyFilters(once, f)
		if !slices.Equal(ids(once), ids(twice)) {
			t.Errorf("filter %+v not idempotent: %v then %v", f, ids(once), ids(twice))
		}
	}
}

func TestApplyFilters_DoesNotMutateInput(t *testing.T) {
	products := testProducts()

	out := ApplyFilters(products, Filter{Sort: SortNewest})
	out[0].Sizes[0] = "changed"

	if got := ids(products); !slices.Equal(got, []int{1, 2, 3, 4}) {
		t.Errorf("input reordered: %v", got)
	}
	if products[3].Sizes[0] != "M" {
		t.Errorf("input shares sizes with output: %v", products[3].Sizes)
	}
}
