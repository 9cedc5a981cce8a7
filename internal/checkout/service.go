package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/apna-store/internal/cart"
	"github.com/joao-fontenele/apna-store/internal/domain"
	"github.com/joao-fontenele/apna-store/internal/orders"
)

var ErrEmptyCart = errors.New("cart is empty")

// ValidationError lists the shipping address fields that were left blank.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// EventPublisher announces placed orders. The storefront runs without one
// when no broker is configured.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event domain.OrderPlacedEvent) error
}

type Service struct {
	orders    orders.Repository
	publisher EventPublisher
	logger    *slog.Logger
	placed    metric.Int64Counter
}

func NewService(repo orders.Repository, publisher EventPublisher, logger *slog.Logger) (*Service, error) {
	placed, err := otel.Meter("apna-store/checkout").Int64Counter("orders.placed",
		metric.WithDescription("Orders placed through checkout"),
	)
	if err != nil {
		return nil, err
	}

	return &Service{
		orders:    repo,
		publisher: publisher,
		logger:    logger,
		placed:    placed,
	}, nil
}

// Quote prices the cart including the delivery fee.
func Quote(c *cart.Manager) domain.Quote {
	return domain.NewQuote(c.Total())
}

func validateAddress(addr domain.ShippingAddress) error {
	required := []struct {
		name  string
		value string
	}{
		{"name", addr.Name},
		{"phone", addr.Phone},
		{"address", addr.Address},
		{"city", addr.City},
		{"state", addr.State},
		{"pincode", addr.Pincode},
	}

	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// PlaceOrder turns the cart into an order, empties the cart and publishes an
// order.placed event. Once the order is stored, failures to clear the cart or
// publish are logged and do not fail the checkout.
func (s *Service) PlaceOrder(ctx context.Context, c *cart.Manager, addr domain.ShippingAddress) (domain.Order, error) {
	if c.IsEmpty() {
		return domain.Order{}, ErrEmptyCart
	}
	if err := validateAddress(addr); err != nil {
		return domain.Order{}, err
	}

	quote := Quote(c)
	order, err := s.orders.Create(ctx, domain.OrderInput{
		Items:           c.Items(),
		Total:           quote.Total,
		ShippingAddress: addr,
	})
	if err != nil {
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}
	s.placed.Add(ctx, 1)

	if err := c.Clear(ctx); err != nil {
		s.logger.Error("failed to clear cart after checkout", "error", err, "order_id", order.OrderID)
	}

	if s.publisher != nil {
		event := domain.OrderPlacedEvent{
			OrderID:   order.OrderID,
			ID:        order.ID,
			Items:     order.Items,
			Total:     order.Total,
			Email:     order.ShippingAddress.Email,
			Timestamp: order.OrderDate,
		}
		if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
			s.logger.Error("failed to publish order placed event", "error", err, "order_id", order.OrderID)
		}
	}

	s.logger.Info("order placed", "order_id", order.OrderID, "id", order.ID, "total", order.Total.String())
	return order, nil
}
