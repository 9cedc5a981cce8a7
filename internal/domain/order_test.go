package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestOrderStatus_Valid(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusPlaced, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled} {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	for _, s := range []OrderStatus{"", "refunded", "Placed"} {
		if s.Valid() {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestTrackingSteps(t *testing.T) {
	tests := []struct {
		status    OrderStatus
		completed []bool
		current   int
	}{
		{OrderStatusPlaced, []bool{true, false, false, false}, 0},
		{OrderStatusProcessing, []bool{true, true, false, false}, 1},
		{OrderStatusShipped, []bool{true, true, true, false}, 2},
		{OrderStatusDelivered, []bool{true, true, true, true}, 3},
		{OrderStatusCancelled, []bool{true, false, false, false}, -1},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			steps := TrackingSteps(tt.status)
			if len(steps) != 4 {
				t.Fatalf("expected 4 steps, got %d", len(steps))
			}
			for i, step := range steps {
				if step.Completed != tt.completed[i] {
					t.Errorf("step %s: expected completed=%v", step.ID, tt.completed[i])
				}
				if step.Current != (i == tt.current) {
					t.Errorf("step %s: unexpected current=%v", step.ID, step.Current)
				}
			}
		})
	}
}

func TestOrder_Clone(t *testing.T) {
	o := Order{
		ID:    1,
		Items: []LineItem{{ProductID: 1, Quantity: 2, Price: decimal.NewFromInt(10)}},
	}

	c := o.Clone()
	c.Items[0].Quantity = 99

	if o.Items[0].Quantity != 2 {
		t.Error("clone shares items with the original")
	}
}
