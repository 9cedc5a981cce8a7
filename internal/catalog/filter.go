package catalog

import (
	"cmp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/apna-store/internal/domain"
)

type SortKey string

const (
	SortRelevance SortKey = "relevance"
	SortPriceLow  SortKey = "price_low"
	SortPriceHigh SortKey = "price_high"
	SortRating    SortKey = "rating"
	SortNewest    SortKey = "newest"
)

func (k SortKey) Valid() bool {
	switch k {
	case "", SortRelevance, SortPriceLow, SortPriceHigh, SortRating, SortNewest:
		return true
	}
	return false
}

// PriceRange bounds are inclusive; a nil bound is open.
type PriceRange struct {
	Min *decimal.Decimal
	Max *decimal.Decimal
}

func (r PriceRange) contains(price decimal.Decimal) bool {
	if r.Min != nil && price.LessThan(*r.Min) {
		return false
	}
	if r.Max != nil && price.GreaterThan(*r.Max) {
		return false
	}
	return true
}

// Filter is a set of user-selected criteria. A nil pointer or an empty set
// disables that criterion. A MinRating of zero is treated as unset.
type Filter struct {
	Category  *string
	Price     *PriceRange
	Brands    []string
	Sizes     []string
	Colors    []string
	MinRating *float64
	Query     *string
	Sort      SortKey
}

// ApplyFilters narrows products by every set criterion, in a fixed order,
// then sorts the survivors stably by f.Sort. The input is left untouched
// and the result holds deep copies. Applying the same filter to its own
// output returns the same list.
func ApplyFilters(products []domain.Product, f Filter) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if f.matches(p) {
			out = append(out, p.Clone())
		}
	}
	sortProducts(out, f.Sort)
	return out
}

func (f Filter) matches(p domain.Product) bool {
	if f.Category != nil && !strings.EqualFold(p.Category, *f.Category) {
		return false
	}
	if f.Price != nil && !f.Price.contains(p.Price) {
		return false
	}
	if len(f.Brands) > 0 && !slices.Contains(f.Brands, p.Brand) {
		return false
	}
	if len(f.Sizes) > 0 && !intersects(p.Sizes, f.Sizes) {
		return false
	}
	if len(f.Colors) > 0 && !intersects(p.Colors, f.Colors) {
		return false
	}
	if f.MinRating != nil && *f.MinRating > 0 && p.Rating < *f.MinRating {
		return false
	}
	if f.Query != nil && !matchesText(p, *f.Query) {
		return false
	}
	return true
}

func intersects(have, want []string) bool {
	for _, v := range have {
		if slices.Contains(want, v) {
			return true
		}
	}
	return false
}

func sortProducts(ps []domain.Product, key SortKey) {
	var less func(a, b domain.Product) int
	switch key {
	case SortPriceLow:
		less = func(a, b domain.Product) int { return a.Price.Cmp(b.Price) }
	case SortPriceHigh:
		less = func(a, b domain.Product) int { return b.Price.Cmp(a.Price) }
	case SortRating:
		less = func(a, b domain.Product) int { return cmp.Compare(b.Rating, a.Rating) }
	case SortNewest:
		less = func(a, b domain.Product) int { return cmp.Compare(b.ID, a.ID) }
	default:
		return
	}
	slices.SortStableFunc(ps, less)
}
