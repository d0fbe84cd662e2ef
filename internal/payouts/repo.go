package payouts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendora-market/vendora-backend/pkg/db/models"
	"github.com/vendora-market/vendora-backend/pkg/enums"
)

// Repository persists per-vendor payout rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payout *models.VendorPayout) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.VendorPayout, error)
	ExistsForOrderVendor(ctx context.Context, orderID, vendorID uuid.UUID) (bool, error)
	List(ctx context.Context, status *enums.PayoutStatus) ([]models.VendorPayout, error)
	Update(ctx context.Context, payoutID uuid.UUID, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payouts repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payout *models.VendorPayout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.VendorPayout, error) {
	var payout models.VendorPayout
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&payout).Error
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) ExistsForOrderVendor(ctx context.Context, orderID, vendorID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.VendorPayout{}).
		Where("order_id = ? AND vendor_id = ?", orderID, vendorID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) List(ctx context.Context, status *enums.PayoutStatus) ([]models.VendorPayout, error) {
	query := r.db.WithContext(ctx).Order("created_at ASC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var payouts []models.VendorPayout
	if err := query.Find(&payouts).Error; err != nil {
		return nil, err
	}
	return payouts, nil
}

func (r *repository) Update(ctx context.Context, payoutID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.VendorPayout{}).
		Where("id = ?", payoutID).
		Updates(updates).Error
}
