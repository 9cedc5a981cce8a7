package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joao-fontenele/apna-store/internal/domain"
)

type StatusUpdater interface {
	UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error
}

// FulfillmentHandler moves freshly placed orders into processing.
type FulfillmentHandler struct {
	storefront StatusUpdater
	logger     *slog.Logger
}

func NewFulfillmentHandler(storefront StatusUpdater, logger *slog.Logger) *FulfillmentHandler {
	return &FulfillmentHandler{
		storefront: storefront,
		logger:     logger,
	}
}

// Handle returns an error only when the event should be retried. Events for
// orders the storefront does not know are dropped.
func (h *FulfillmentHandler) Handle(ctx context.Context, event domain.OrderPlacedEvent) error {
	h.logger.Info("processing order placed event", "order_id", event.OrderID, "items", len(event.Items))

	if event.OrderID == "" {
		h.logger.Warn("dropping event without order id", "id", event.ID)
		return nil
	}

	err := h.storefront.UpdateOrderStatus(ctx, event.OrderID, domain.OrderStatusProcessing)
	if errors.Is(err, ErrOrderUnknown) {
		h.logger.Warn("dropping event for unknown order", "order_id", event.OrderID)
		return nil
	}
	if err != nil {
		h.logger.Error("failed to update order status", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("update order status: %w", err)
	}

	h.logger.Info("order moved to processing", "order_id", event.OrderID)
	return nil
}
