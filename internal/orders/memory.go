package orders

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/joao-fontenele/apna-store/internal/domain"
)

// MemoryStore keeps orders in process. It backs the storefront when no
// database is configured.
type MemoryStore struct {
	mu     sync.Mutex
	orders []domain.Order
	tokens map[string]int
	now    func() time.Time
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	o := buildOptions(opts)

	s := &MemoryStore{
		orders: make([]domain.Order, 0, len(o.seed)),
		tokens: make(map[string]int, len(o.seed)),
		now:    o.now,
	}
	for _, order := range o.seed {
		s.tokens[order.OrderID] = len(s.orders)
		s.orders = append(s.orders, order.Clone())
	}
	return s
}

func (s *MemoryStore) Create(_ context.Context, input domain.OrderInput) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	order := newOrder(input, now)

	maxID := 0
	for _, o := range s.orders {
		maxID = max(maxID, o.ID)
	}
	order.ID = maxID + 1

	millis := now.UnixMilli()
	for {
		order.OrderID = orderToken(millis)
		if _, taken := s.tokens[order.OrderID]; !taken {
			break
		}
		millis++
	}

	s.tokens[order.OrderID] = len(s.orders)
	s.orders = append(s.orders, order)
	return order.Clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, ref string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.tokens[ref]; ok {
		return s.orders[i].Clone(), nil
	}
	if id, err := strconv.Atoi(ref); err == nil {
		for _, o := range s.orders {
			if o.ID == id {
				return o.Clone(), nil
			}
		}
	}
	return domain.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, ref)
}

func (s *MemoryStore) List(_ context.Context) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		list = append(list, o.Clone())
	}
	slices.SortStableFunc(list, func(a, b domain.Order) int {
		if c := b.OrderDate.Compare(a.OrderDate); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return list, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, orderID string, status domain.OrderStatus) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.tokens[orderID]
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	s.orders[i].Status = status
	return s.orders[i].Clone(), nil
}
