package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPlaced     OrderStatus = "placed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// DeliveryWindow is the offset between an order's date and its estimated delivery.
const DeliveryWindow = 7 * 24 * time.Hour

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPlaced, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

type ShippingAddress struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

// OrderInput carries the caller-supplied part of a new order.
type OrderInput struct {
	Items           []LineItem      `json:"items"`
	Total           decimal.Decimal `json:"total"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
}

type Order struct {
	ID                int             `json:"Id"`
	OrderID           string          `json:"orderId"`
	Items             []LineItem      `json:"items"`
	Total             decimal.Decimal `json:"total"`
	Status            OrderStatus     `json:"status"`
	ShippingAddress   ShippingAddress `json:"shippingAddress"`
	OrderDate         time.Time       `json:"orderDate"`
	EstimatedDelivery time.Time       `json:"estimatedDelivery"`
}

func (o Order) Clone() Order {
	c := o
	c.Items = slices.Clone(o.Items)
	return c
}

type TrackingStep struct {
	ID        OrderStatus `json:"id"`
	Title     string      `json:"title"`
	Completed bool        `json:"completed"`
	Current   bool        `json:"current"`
}

var trackingProgress = []struct {
	status OrderStatus
	title  string
}{
	{OrderStatusPlaced, "Order Placed"},
	{OrderStatusProcessing, "Processing"},
	{OrderStatusShipped, "Shipped"},
	{OrderStatusDelivered, "Delivered"},
}

// TrackingSteps lays out the fulfillment steps for an order in status.
// Placed is always complete; a cancelled order never progresses past it.
func TrackingSteps(status OrderStatus) []TrackingStep {
	reached := 0
	for i, p := range trackingProgress {
		if p.status == status {
			reached = i
		}
	}

	steps := make([]TrackingStep, len(trackingProgress))
	for i, p := range trackingProgress {
		steps[i] = TrackingStep{
			ID:        p.status,
			Title:     p.title,
			Completed: i <= reached,
			Current:   p.status == status,
		}
	}
	return steps
}
