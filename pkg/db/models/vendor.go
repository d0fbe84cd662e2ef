package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Vendor is a selling party on the platform. CommissionRate is a percentage;
// when nil the platform default applies.
type Vendor struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name              string           `gorm:"column:name;not null"`
	Email             string           `gorm:"column:email;not null;uniqueIndex"`
	CommissionRate    *decimal.Decimal `gorm:"column:commission_rate;type:numeric(5,2)"`
	TransferAccountID *string          `gorm:"column:transfer_account_id"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *Vendor) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
