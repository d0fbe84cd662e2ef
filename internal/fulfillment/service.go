package fulfillment

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendora-market/vendora-backend/pkg/db/models"
	"github.com/vendora-market/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora-market/vendora-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AdvanceInput moves one order item a single step forward.
type AdvanceInput struct {
	VendorID       uuid.UUID
	ItemID         uuid.UUID
	Target         enums.OrderItemStatus
	TrackingNumber *string
}

// Service lets vendors walk their items through the fulfillment stages and
// keeps the parent order's status in sync.
type Service interface {
	AdvanceItem(ctx context.Context, input AdvanceInput) (*models.OrderItem, error)
	ListItems(ctx context.Context, vendorID uuid.UUID) ([]models.OrderItem, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds a fulfillment service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// AdvanceItem enforces the single-step ladder: pending to processing,
// processing to shipped (with a tracking number), shipped to delivered.
// Skipping a stage or moving backwards is a state conflict, as is touching
// another vendor's item.
func (s *service) AdvanceItem(ctx context.Context, input AdvanceInput) (*models.OrderItem, error) {
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "vendor identity missing")
	}
	if input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}

	var advanced *models.OrderItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := repo.FindItemByID(ctx, input.ItemID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order item")
		}
		if item.VendorID != input.VendorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "item does not belong to vendor")
		}

		if err := validateTransition(item.Status, input.Target); err != nil {
			return err
		}

		updates := map[string]any{"status": input.Target}
		if input.Target == enums.OrderItemStatusShipped {
			tracking := ""
			if input.TrackingNumber != nil {
				tracking = strings.TrimSpace(*input.TrackingNumber)
			}
			if tracking == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "tracking number required to mark shipped")
			}
			updates["tracking_number"] = tracking
			item.TrackingNumber = &tracking
		}

		if err := repo.UpdateItem(ctx, item.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order item")
		}
		item.Status = input.Target

		items, err := repo.FindItemsByOrder(ctx, item.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order items")
		}

		order, err := repo.FindOrderByID(ctx, item.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		// rollup never resurrects a cancelled or already-delivered order
		if order.Status == enums.OrderStatusPending ||
			order.Status == enums.OrderStatusProcessing ||
			order.Status == enums.OrderStatusShipped {
			if rolled := RollupStatus(items); rolled != order.Status {
				if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"status": rolled}); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
				}
			}
		}

		advanced = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return advanced, nil
}

// ListItems returns every order item assigned to the vendor, newest first.
func (s *service) ListItems(ctx context.Context, vendorID uuid.UUID) ([]models.OrderItem, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "vendor identity missing")
	}
	items, err := s.repo.FindItemsByVendor(ctx, vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor items")
	}
	return items, nil
}

func validateTransition(current, target enums.OrderItemStatus) error {
	allowed := map[enums.OrderItemStatus]enums.OrderItemStatus{
		enums.OrderItemStatusPending:    enums.OrderItemStatusProcessing,
		enums.OrderItemStatusProcessing: enums.OrderItemStatusShipped,
		enums.OrderItemStatusShipped:    enums.OrderItemStatusDelivered,
	}
	next, ok := allowed[current]
	if !ok || next != target {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "item cannot move to requested status").
			WithDetails(map[string]any{
				"current": current.String(),
				"target":  target.String(),
			})
	}
	return nil
}
