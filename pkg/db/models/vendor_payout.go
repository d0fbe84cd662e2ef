package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vendora-market/vendora-backend/pkg/enums"
)

// VendorPayout is one vendor's share of one paid order. The unique index on
// (order_id, vendor_id) makes payout scheduling idempotent under webhook
// replays.
type VendorPayout struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID  uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_payout_order_vendor"`
	VendorID uuid.UUID `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex:idx_payout_order_vendor"`

	Amount         decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	CommissionRate decimal.Decimal `gorm:"column:commission_rate;type:numeric(5,2);not null"`
	Commission     decimal.Decimal `gorm:"column:commission;type:numeric(12,2);not null"`
	NetAmount      decimal.Decimal `gorm:"column:net_amount;type:numeric(12,2);not null"`

	Status        enums.PayoutStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	TransferRef   *string            `gorm:"column:transfer_ref"`
	FailureReason *string            `gorm:"column:failure_reason"`
	ProcessedAt   *time.Time         `gorm:"column:processed_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *VendorPayout) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
