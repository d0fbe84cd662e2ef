package fulfillment

import (
	"github.com/vendora-market/vendora-backend/pkg/db/models"
	"github.com/vendora-market/vendora-backend/pkg/enums"
)

// RollupStatus derives an order's fulfillment state from its items. Cancelled
// items are excluded; the order only reaches a stage once every live item has.
func RollupStatus(items []models.OrderItem) enums.OrderStatus {
	live := 0
	shippedOrBeyond := 0
	delivered := 0
	for _, item := range items {
		if item.Status == enums.OrderItemStatusCancelled {
			continue
		}
		live++
		switch item.Status {
		case enums.OrderItemStatusDelivered:
			delivered++
			shippedOrBeyond++
		case enums.OrderItemStatusShipped:
			shippedOrBeyond++
		}
	}

	switch {
	case live == 0:
		return enums.OrderStatusCancelled
	case delivered == live:
		return enums.OrderStatusDelivered
	case shippedOrBeyond == live:
		return enums.OrderStatusShipped
	default:
		return enums.OrderStatusProcessing
	}
}
