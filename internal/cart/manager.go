package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/apna-store/internal/domain"
)

const (
	keyPrefix = "apna-store:cart:v1:"

	// MaxQuantity bounds the quantity of a single line item.
	MaxQuantity = 999
)

var (
	ErrInvalidQuantity  = fmt.Errorf("quantity must be between 1 and %d", MaxQuantity)
	ErrLineItemNotFound = fmt.Errorf("cart line item %w", domain.ErrNotFound)
)

// Key is the storage key holding the cart of a session.
func Key(sessionID string) string {
	return keyPrefix + sessionID
}

// Manager is the authoritative cart of one session. Every mutation writes
// the complete line-item list back to storage before it becomes visible,
// so a failed write leaves the cart as it was.
type Manager struct {
	mu      sync.Mutex
	storage Storage
	key     string
	items   []domain.LineItem
	logger  *slog.Logger
}

// Load rehydrates the cart of sessionID. A missing entry is an empty cart,
// and so is an entry that cannot be decoded.
func Load(ctx context.Context, storage Storage, sessionID string, logger *slog.Logger) (*Manager, error) {
	m := &Manager{
		storage: storage,
		key:     Key(sessionID),
		items:   []domain.LineItem{},
		logger:  logger,
	}

	data, err := storage.Load(ctx, m.key)
	if errors.Is(err, ErrNoCart) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	var items []domain.LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		logger.Warn("discarding unreadable cart", "key", m.key, "error", err)
		return m, nil
	}
	m.items = normalize(items)

	return m, nil
}

// normalize drops entries that break the line-item invariants: quantities
// below one are removed and repeated product ids are merged.
func normalize(items []domain.LineItem) []domain.LineItem {
	out := make([]domain.LineItem, 0, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			continue
		}
		item.Quantity = min(item.Quantity, MaxQuantity)
		if i := indexOf(out, item.ProductID); i >= 0 {
			out[i].Quantity = min(out[i].Quantity+item.Quantity, MaxQuantity)
			continue
		}
		out = append(out, item)
	}
	return out
}

func indexOf(items []domain.LineItem, productID int) int {
	return slices.IndexFunc(items, func(item domain.LineItem) bool {
		return item.ProductID == productID
	})
}

// Add puts quantity units of product in the cart. A product already in the
// cart keeps its original snapshot and only gains quantity. The resulting
// line may not exceed MaxQuantity.
func (m *Manager) Add(ctx context.Context, product domain.Product, quantity int) error {
	if quantity < 1 || quantity > MaxQuantity {
		return ErrInvalidQuantity
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	items := slices.Clone(m.items)
	if i := indexOf(items, product.ID); i >= 0 {
		if items[i].Quantity > MaxQuantity-quantity {
			return ErrInvalidQuantity
		}
		items[i].Quantity += quantity
	} else {
		items = append(items, domain.NewLineItem(product, quantity))
	}

	return m.commit(ctx, items)
}

// UpdateQuantity sets the quantity of a line item. A quantity of zero or
// less removes the item.
func (m *Manager) UpdateQuantity(ctx context.Context, productID, quantity int) error {
	if quantity <= 0 {
		return m.Remove(ctx, productID)
	}
	if quantity > MaxQuantity {
		return ErrInvalidQuantity
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := indexOf(m.items, productID)
	if i < 0 {
		return fmt.Errorf("%w: product %d", ErrLineItemNotFound, productID)
	}

	items := slices.Clone(m.items)
	items[i].Quantity = quantity

	return m.commit(ctx, items)
}

func (m *Manager) Remove(ctx context.Context, productID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := slices.DeleteFunc(slices.Clone(m.items), func(item domain.LineItem) bool {
		return item.ProductID == productID
	})

	return m.commit(ctx, items)
}

// Clear empties the cart and deletes its stored entry.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.storage.Delete(ctx, m.key); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	m.items = []domain.LineItem{}
	return nil
}

func (m *Manager) commit(ctx context.Context, items []domain.LineItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := m.storage.Save(ctx, m.key, data); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	m.items = items
	return nil
}

// Items returns a copy of the line items in insertion order.
func (m *Manager) Items() []domain.LineItem {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.items)
}

func (m *Manager) Total() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()

	total, _ := domain.SumItems(m.items)
	return total
}

// ItemCount is the number of units in the cart, not the number of lines.
func (m *Manager) ItemCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, count := domain.SumItems(m.items)
	return count
}

func (m *Manager) IsEmpty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.items) == 0
}
