package domain

import (
	"slices"

	"github.com/shopspring/decimal"
)

// Product is catalog reference data. It is never mutated after the catalog
// is built; readers work on copies obtained through Clone.
type Product struct {
	ID            int              `json:"Id"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Brand         string           `json:"brand"`
	Category      string           `json:"category"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	Rating        float64          `json:"rating"`
	Reviews       int              `json:"reviews"`
	InStock       bool             `json:"inStock"`
	Image         string           `json:"image"`
	Images        []string         `json:"images,omitempty"`
	Sizes         []string         `json:"sizes,omitempty"`
	Colors        []string         `json:"colors,omitempty"`
	Tags          []string         `json:"tags,omitempty"`
	Featured      bool             `json:"featured"`
}

// Clone returns a deep copy of p.
func (p Product) Clone() Product {
	c := p
	if p.OriginalPrice != nil {
		op := *p.OriginalPrice
		c.OriginalPrice = &op
	}
	c.Images = slices.Clone(p.Images)
	c.Sizes = slices.Clone(p.Sizes)
	c.Colors = slices.Clone(p.Colors)
	c.Tags = slices.Clone(p.Tags)
	return c
}

// CloneProducts deep-copies every product in ps.
func CloneProducts(ps []Product) []Product {
	out := make([]Product, len(ps))
	for i, p := range ps {
		out[i] = p.Clone()
	}
	return out
}
