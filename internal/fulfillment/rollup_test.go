package fulfillment

import (
	"testing"

	"github.com/vendora-market/vendora-backend/pkg/db/models"
	"github.com/vendora-market/vendora-backend/pkg/enums"
)

func TestRollupStatus(t *testing.T) {
	t.Parallel()

	item := func(status enums.OrderItemStatus) models.OrderItem {
		return models.OrderItem{Status: status}
	}

	cases := []struct {
		name  string
		items []models.OrderItem
		want  enums.OrderStatus
	}{
		{
			name:  "pending and processing mix counts as processing",
			items: []models.OrderItem{item(enums.OrderItemStatusPending), item(enums.OrderItemStatusProcessing)},
			want:  enums.OrderStatusProcessing,
		},
		{
			name:  "all processing",
			items: []models.OrderItem{item(enums.OrderItemStatusProcessing), item(enums.OrderItemStatusProcessing)},
			want:  enums.OrderStatusProcessing,
		},
		{
			name:  "one shipped one processing stays processing",
			items: []models.OrderItem{item(enums.OrderItemStatusShipped), item(enums.OrderItemStatusProcessing)},
			want:  enums.OrderStatusProcessing,
		},
		{
			name:  "all shipped",
			items: []models.OrderItem{item(enums.OrderItemStatusShipped), item(enums.OrderItemStatusShipped)},
			want:  enums.OrderStatusShipped,
		},
		{
			name:  "shipped and delivered mix counts as shipped",
			items: []models.OrderItem{item(enums.OrderItemStatusShipped), item(enums.OrderItemStatusDelivered)},
			want:  enums.OrderStatusShipped,
		},
		{
			name:  "all delivered",
			items: []models.OrderItem{item(enums.OrderItemStatusDelivered), item(enums.OrderItemStatusDelivered)},
			want:  enums.OrderStatusDelivered,
		},
		{
			name:  "cancelled items are ignored",
			items: []models.OrderItem{item(enums.OrderItemStatusCancelled), item(enums.OrderItemStatusDelivered)},
			want:  enums.OrderStatusDelivered,
		},
		{
			name:  "everything cancelled",
			items: []models.OrderItem{item(enums.OrderItemStatusCancelled)},
			want:  enums.OrderStatusCancelled,
		},
		{
			name:  "no items",
			items: nil,
			want:  enums.OrderStatusCancelled,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := RollupStatus(tc.items); got != tc.want {
				t.Fatalf("RollupStatus = %s, want %s", got, tc.want)
			}
		})
	}
}
