package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vendora-market/vendora-backend/pkg/enums"
)

// Order is the checkout-frozen record of a purchase. Amounts and the shipping
// address are snapshots; later catalog or address-book edits never touch them.
type Order struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber string    `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerID  uuid.UUID `gorm:"column:customer_id;type:uuid;not null;index"`

	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`

	Subtotal decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Shipping decimal.Decimal `gorm:"column:shipping;type:numeric(12,2);not null"`
	Discount decimal.Decimal `gorm:"column:discount;type:numeric(12,2);not null"`
	Total    decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`

	// Shipping snapshot, copied from the address book at checkout.
	ShipRecipientName string  `gorm:"column:ship_recipient_name;not null"`
	ShipLine1         string  `gorm:"column:ship_line1;not null"`
	ShipLine2         *string `gorm:"column:ship_line2"`
	ShipCity          string  `gorm:"column:ship_city;not null"`
	ShipState         string  `gorm:"column:ship_state;not null"`
	ShipPostalCode    string  `gorm:"column:ship_postal_code;not null"`
	ShipCountry       string  `gorm:"column:ship_country;not null"`
	ShipPhone         *string `gorm:"column:ship_phone"`

	PaymentSessionID *string `gorm:"column:payment_session_id"`

	PaidAt     *time.Time `gorm:"column:paid_at"`
	CanceledAt *time.Time `gorm:"column:canceled_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
