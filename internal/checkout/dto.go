package checkout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Input identifies whose cart is being converted and where it ships.
type Input struct {
	CustomerID uuid.UUID
	AddressID  uuid.UUID
}

// Result reports the order created by a successful checkout.
type Result struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Shipping    decimal.Decimal `json:"shipping"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
	ItemCount   int             `json:"item_count"`
}
