package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vendora-market/vendora-backend/pkg/enums"
)

// Product is a vendor listing. Stock is mutated only through the inventory
// ledger's conditional updates, never by loading and saving this struct.
type Product struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	VendorID  uuid.UUID           `gorm:"column:vendor_id;type:uuid;not null;index"`
	Name      string              `gorm:"column:name;not null"`
	ImageURL  *string             `gorm:"column:image_url"`
	Price     decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	SalePrice *decimal.Decimal    `gorm:"column:sale_price;type:numeric(12,2)"`
	Stock     int                 `gorm:"column:stock;not null;default:0"`
	Status    enums.ProductStatus `gorm:"column:status;type:text;not null;default:'draft'"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// EffectivePrice returns the sale price when one is set, else the list price.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}
