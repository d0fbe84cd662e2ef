package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteLine prices one cart line at current catalog values.
type QuoteLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Qty       int             `json:"qty"`
	LineTotal decimal.Decimal `json:"line_total"`
	Available bool            `json:"available"`
	Reason    string          `json:"reason,omitempty"`
}

// Quote is the live view of a cart. Nothing in it is frozen; prices move with
// the catalog until checkout.
type Quote struct {
	Lines    []QuoteLine     `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
}
