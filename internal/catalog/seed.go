package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/joao-fontenele/apna-store/internal/domain"
)

//go:embed seed/products.json
var seedProducts []byte

// SeedProducts decodes the catalog bundled with the binary.
func SeedProducts() ([]domain.Product, error) {
	var products []domain.Product
	if err := json.Unmarshal(seedProducts, &products); err != nil {
		return nil, fmt.Errorf("decode seed products: %w", err)
	}
	return products, nil
}
