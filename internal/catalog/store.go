package catalog

import (
	"fmt"
	"slices"
	"strings"

	"github.com/joao-fontenele/apna-store/internal/domain"
)

var ErrProductNotFound = fmt.Errorf("product %w", domain.ErrNotFound)

const featuredLimit = 8

// Store answers read-only queries over a fixed product list. The list is
// copied on construction and every query hands out deep copies, so callers
// can never reach the store's own records.
type Store struct {
	products []domain.Product
}

func NewStore(products []domain.Product) *Store {
	return &Store{products: domain.CloneProducts(products)}
}

func (s *Store) All() []domain.Product {
	return domain.CloneProducts(s.products)
}

func (s *Store) Get(id int) (domain.Product, error) {
	for _, p := range s.products {
		if p.ID == id {
			return p.Clone(), nil
		}
	}
	return domain.Product{}, fmt.Errorf("%w: %d", ErrProductNotFound, id)
}

func (s *Store) ByCategory(category string) []domain.Product {
	return s.collect(func(p domain.Product) bool {
		return strings.EqualFold(p.Category, category)
	})
}

// Search matches query against name and description. An empty category
// leaves the result unrestricted.
func (s *Store) Search(query, category string) []domain.Product {
	return s.collect(func(p domain.Product) bool {
		if !matchesText(p, query) {
			return false
		}
		return category == "" || strings.EqualFold(p.Category, category)
	})
}

func (s *Store) Featured() []domain.Product {
	out := make([]domain.Product, 0, featuredLimit)
	for _, p := range s.products {
		if len(out) == featuredLimit {
			break
		}
		if p.Featured {
			out = append(out, p.Clone())
		}
	}
	return out
}

// Filter runs the advanced filter pipeline over the whole catalog.
func (s *Store) Filter(f Filter) []domain.Product {
	return ApplyFilters(s.products, f)
}

// Categories lists distinct categories in the order they first appear.
func (s *Store) Categories() []string {
	var out []string
	for _, p := range s.products {
		if !slices.Contains(out, p.Category) {
			out = append(out, p.Category)
		}
	}
	return out
}

func (s *Store) Brands() []string {
	var out []string
	for _, p := range s.products {
		if p.Brand != "" && !slices.Contains(out, p.Brand) {
			out = append(out, p.Brand)
		}
	}
	slices.Sort(out)
	return out
}

func (s *Store) Colors() []string {
	var out []string
	for _, p := range s.products {
		for _, c := range p.Colors {
			if !slices.Contains(out, c) {
				out = append(out, c)
			}
		}
	}
	slices.Sort(out)
	return out
}

func (s *Store) Sizes() []string {
	var out []string
	for _, p := range s.products {
		for _, size := range p.Sizes {
			if !slices.Contains(out, size) {
				out = append(out, size)
			}
		}
	}
	SortSizes(out)
	return out
}

func (s *Store) collect(keep func(domain.Product) bool) []domain.Product {
	out := []domain.Product{}
	for _, p := range s.products {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	return out
}

func matchesText(p domain.Product, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Description), q)
}
