package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendora-market/vendora-backend/pkg/db/models"
)

// ProductRepository reads catalog products for cart validation.
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// AddressRepository reads customer shipping addresses. Lookups run inside the
// checkout transaction, so the tx is passed explicitly.
type AddressRepository interface {
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.CustomerAddress, error)
}

type addressRepository struct {
	db *gorm.DB
}

func NewAddressRepository(db *gorm.DB) AddressRepository {
	return &addressRepository{db: db}
}

func (r *addressRepository) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.CustomerAddress, error) {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	var address models.CustomerAddress
	err := conn.WithContext(ctx).
		Where("id = ?", id).
		First(&address).Error
	if err != nil {
		return nil, err
	}
	return &address, nil
}

// VendorRepository reads vendor records for payout scheduling and transfers.
type VendorRepository interface {
	FindByIDWithTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Vendor, error)
}

type vendorRepository struct {
	db *gorm.DB
}

func NewVendorRepository(db *gorm.DB) VendorRepository {
	return &vendorRepository{db: db}
}

func (r *vendorRepository) FindByIDWithTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Vendor, error) {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	var vendor models.Vendor
	err := conn.WithContext(ctx).
		Where("id = ?", id).
		First(&vendor).Error
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}
