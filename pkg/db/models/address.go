package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CustomerAddress is a live address-book row. Checkout copies it into the
// order's frozen snapshot; deleting this row never affects placed orders.
type CustomerAddress struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID    uuid.UUID `gorm:"column:customer_id;type:uuid;not null;index"`
	RecipientName string    `gorm:"column:recipient_name;not null"`
	Line1         string    `gorm:"column:line1;not null"`
	Line2         *string   `gorm:"column:line2"`
	City          string    `gorm:"column:city;not null"`
	State         string    `gorm:"column:state;not null"`
	PostalCode    string    `gorm:"column:postal_code;not null"`
	Country       string    `gorm:"column:country;not null;default:'US'"`
	Phone         *string   `gorm:"column:phone"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *CustomerAddress) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
