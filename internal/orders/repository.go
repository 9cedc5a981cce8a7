package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joao-fontenele/apna-store/internal/domain"
)

var (
	ErrOrderNotFound = fmt.Errorf("order %w", domain.ErrNotFound)
	ErrInvalidStatus = errors.New("invalid order status")
)

// Repository stores placed orders. Get accepts either the numeric Id or the
// orderId token; UpdateStatus only accepts the token.
type Repository interface {
	Create(ctx context.Context, input domain.OrderInput) (domain.Order, error)
	Get(ctx context.Context, ref string) (domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error)
}

type Option func(*options)

type options struct {
	now  func() time.Time
	seed []domain.Order
}

// WithClock replaces time.Now as the source of order dates.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithOrders preloads the in-memory store. It has no effect on Postgres.
func WithOrders(orders ...domain.Order) Option {
	return func(o *options) { o.seed = append(o.seed, orders...) }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func orderToken(millis int64) string {
	return fmt.Sprintf("RL%d", millis)
}

func newOrder(input domain.OrderInput, now time.Time) domain.Order {
	items := make([]domain.LineItem, len(input.Items))
	copy(items, input.Items)

	return domain.Order{
		Items:             items,
		Total:             input.Total,
		Status:            domain.OrderStatusPlaced,
		ShippingAddress:   input.ShippingAddress,
		OrderDate:         now,
		EstimatedDelivery: now.Add(domain.DeliveryWindow),
	}
}
