package payments

import (
	"github.com/google/uuid"

	"github.com/vendora-market/vendora-backend/pkg/enums"
)

// SessionResult hands the storefront the hosted payment page to redirect to.
type SessionResult struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// VerifyResult reports the payment state after a verify poll.
type VerifyResult struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderStatus   enums.OrderStatus   `json:"order_status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
}
