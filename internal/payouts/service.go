package payouts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vendora-market/vendora-backend/pkg/db/models"
	"github.com/vendora-market/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora-market/vendora-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type vendorLoader interface {
	FindByIDWithTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Vendor, error)
}

type transferClient interface {
	CreateTransfer(ctx context.Context, destination string, amount decimal.Decimal, payoutID string) (string, error)
}

type notifier interface {
	Notify(ctx context.Context, kind enums.NotificationKind, data any)
}

// Service schedules per-vendor payout rows when an order is paid and later
// moves the money.
type Service interface {
	ScheduleForOrder(ctx context.Context, tx *gorm.DB, order *models.Order, items []models.OrderItem) error
	Process(ctx context.Context, payoutID uuid.UUID) (*models.VendorPayout, error)
	List(ctx context.Context, status *enums.PayoutStatus) ([]models.VendorPayout, error)
}

// ServiceParams wires the payout service dependencies.
type ServiceParams struct {
	Repo              Repository
	Vendors           vendorLoader
	Transfers         transferClient
	Notifier          notifier
	TransactionRunner txRunner
	DefaultRate       decimal.Decimal
}

type service struct {
	repo        Repository
	vendors     vendorLoader
	transfers   transferClient
	notifier    notifier
	tx          txRunner
	defaultRate decimal.Decimal
	now         func() time.Time
}

// NewService builds a payouts service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payouts repository required")
	}
	if params.Vendors == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "vendor loader required")
	}
	if params.Transfers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transfer client required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.DefaultRate.IsNegative() || params.DefaultRate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "default commission rate must be between 0 and 100")
	}
	return &service{
		repo:        params.Repo,
		vendors:     params.Vendors,
		transfers:   params.Transfers,
		notifier:    params.Notifier,
		tx:          params.TransactionRunner,
		defaultRate: params.DefaultRate,
		now:         time.Now,
	}, nil
}

// ScheduleForOrder groups the order's items by vendor and writes one pending
// payout row per vendor inside the caller's transaction. Rows that already
// exist are left alone, which keeps webhook replays harmless; the unique
// (order_id, vendor_id) index backstops any race the check misses.
func (s *service) ScheduleForOrder(ctx context.Context, tx *gorm.DB, order *models.Order, items []models.OrderItem) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for payout scheduling")
	}
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}

	byVendor := make(map[uuid.UUID]decimal.Decimal)
	vendorOrder := make([]uuid.UUID, 0)
	for _, item := range items {
		if _, seen := byVendor[item.VendorID]; !seen {
			vendorOrder = append(vendorOrder, item.VendorID)
		}
		byVendor[item.VendorID] = byVendor[item.VendorID].Add(item.LineTotal)
	}

	repo := s.repo.WithTx(tx)
	for _, vendorID := range vendorOrder {
		exists, err := repo.ExistsForOrderVendor(ctx, order.ID, vendorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check payout existence")
		}
		if exists {
			continue
		}

		rate := s.defaultRate
		vendor, err := s.vendors.FindByIDWithTx(ctx, tx, vendorID)
		if err != nil {
			if err != gorm.ErrRecordNotFound {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
			}
		} else if vendor.CommissionRate != nil {
			rate = *vendor.CommissionRate
		}

		amount := byVendor[vendorID]
		commission := amount.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
		payout := &models.VendorPayout{
			OrderID:        order.ID,
			VendorID:       vendorID,
			Amount:         amount,
			CommissionRate: rate,
			Commission:     commission,
			NetAmount:      amount.Sub(commission),
			Status:         enums.PayoutStatusPending,
		}
		if err := repo.Create(ctx, payout); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout")
		}
	}
	return nil
}

// Process pushes one pending payout through the transfer rail. The outcome is
// recorded either way: completed with the transfer reference, or failed with
// the reason so an operator can retry after fixing the account.
func (s *service) Process(ctx context.Context, payoutID uuid.UUID) (*models.VendorPayout, error) {
	if payoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}

	var processed *models.VendorPayout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		payout, err := repo.FindByID(ctx, payoutID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
		}
		if payout.Status != enums.PayoutStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payout already processed")
		}

		vendor, err := s.vendors.FindByIDWithTx(ctx, tx, payout.VendorID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
		}

		now := s.now().UTC()
		if vendor.TransferAccountID == nil || *vendor.TransferAccountID == "" {
			reason := "vendor has no transfer account"
			if err := repo.Update(ctx, payout.ID, map[string]any{
				"status":         enums.PayoutStatusFailed,
				"failure_reason": reason,
				"processed_at":   now,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payout failure")
			}
			payout.Status = enums.PayoutStatusFailed
			payout.FailureReason = &reason
			payout.ProcessedAt = &now
			processed = payout
			return nil
		}

		ref, transferErr := s.transfers.CreateTransfer(ctx, *vendor.TransferAccountID, payout.NetAmount, payout.ID.String())
		if transferErr != nil {
			reason := transferErr.Error()
			if err := repo.Update(ctx, payout.ID, map[string]any{
				"status":         enums.PayoutStatusFailed,
				"failure_reason": reason,
				"processed_at":   now,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payout failure")
			}
			payout.Status = enums.PayoutStatusFailed
			payout.FailureReason = &reason
			payout.ProcessedAt = &now
			processed = payout
			return nil
		}

		if err := repo.Update(ctx, payout.ID, map[string]any{
			"status":       enums.PayoutStatusCompleted,
			"transfer_ref": ref,
			"processed_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payout completion")
		}
		payout.Status = enums.PayoutStatusCompleted
		payout.TransferRef = &ref
		payout.ProcessedAt = &now
		processed = payout
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil && processed.Status == enums.PayoutStatusCompleted {
		s.notifier.Notify(ctx, enums.NotificationPayoutCompleted, map[string]any{
			"payout_id":  processed.ID.String(),
			"vendor_id":  processed.VendorID.String(),
			"net_amount": processed.NetAmount.StringFixed(2),
		})
	}
	return processed, nil
}

func (s *service) List(ctx context.Context, status *enums.PayoutStatus) ([]models.VendorPayout, error) {
	payouts, err := s.repo.List(ctx, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payouts")
	}
	return payouts, nil
}
