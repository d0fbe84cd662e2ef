package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vendora-market/vendora-backend/pkg/enums"
)

// OrderItem freezes one purchased line: the product name and unit price are
// copied at checkout so catalog edits cannot rewrite history. VendorID is
// denormalized for per-vendor fulfillment and payout queries.
type OrderItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	VendorID  uuid.UUID `gorm:"column:vendor_id;type:uuid;not null;index"`

	ProductName  string          `gorm:"column:product_name;not null"`
	ProductImage *string         `gorm:"column:product_image"`
	UnitPrice    decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Qty          int             `gorm:"column:qty;not null"`
	LineTotal    decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`

	Status         enums.OrderItemStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	TrackingNumber *string               `gorm:"column:tracking_number"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
