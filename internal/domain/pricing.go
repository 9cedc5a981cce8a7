package domain

import "github.com/shopspring/decimal"

var (
	// FreeDeliveryThreshold is the subtotal from which delivery is free.
	FreeDeliveryThreshold = decimal.NewFromInt(499)
	// DeliveryFee is charged below FreeDeliveryThreshold.
	DeliveryFee = decimal.NewFromInt(50)
)

// Quote is the price breakdown shown for a cart before checkout.
type Quote struct {
	Subtotal              decimal.Decimal `json:"subtotal"`
	DeliveryFee           decimal.Decimal `json:"deliveryFee"`
	Total                 decimal.Decimal `json:"total"`
	FreeDeliveryShortfall decimal.Decimal `json:"freeDeliveryShortfall"`
}

func NewQuote(subtotal decimal.Decimal) Quote {
	q := Quote{
		Subtotal:              subtotal,
		DeliveryFee:           decimal.Zero,
		FreeDeliveryShortfall: decimal.Zero,
	}
	if subtotal.LessThan(FreeDeliveryThreshold) {
		q.DeliveryFee = DeliveryFee
		q.FreeDeliveryShortfall = FreeDeliveryThreshold.Sub(subtotal)
	}
	q.Total = subtotal.Add(q.DeliveryFee)
	return q
}
