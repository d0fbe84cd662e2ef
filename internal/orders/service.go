package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendora-market/vendora-backend/pkg/db/models"
	"github.com/vendora-market/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora-market/vendora-backend/pkg/errors"
	"github.com/vendora-market/vendora-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// InventoryReleaser returns reserved stock when a pending order is cancelled.
type InventoryReleaser interface {
	Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

type notifier interface {
	Notify(ctx context.Context, kind enums.NotificationKind, data any)
}

// Service covers customer-facing order reads and the cancel transition.
type Service interface {
	Get(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*pagination.Page[models.Order], error)
	Cancel(ctx context.Context, customerID, orderID uuid.UUID) error
}

type service struct {
	repo      Repository
	tx        txRunner
	inventory InventoryReleaser
	notifier  notifier
}

// NewService builds an orders service with the required dependencies.
func NewService(repo Repository, tx txRunner, inventory InventoryReleaser, notif notifier) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if inventory == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory releaser required")
	}
	return &service{repo: repo, tx: tx, inventory: inventory, notifier: notif}, nil
}

func (s *service) Get(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*pagination.Page[models.Order], error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	page, err := s.repo.ListByCustomer(ctx, customerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return page, nil
}

// Cancel is only legal while the order is still pending and unpaid. The
// reserved stock goes back on the shelf in the same transaction, so a
// concurrent payment confirmation and a cancel cannot both win.
func (s *service) Cancel(ctx context.Context, customerID, orderID uuid.UUID) error {
	if customerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var cancelled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.CustomerID != customerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending orders can be cancelled")
		}

		for _, item := range order.Items {
			if err := s.inventory.Release(ctx, tx, item.ProductID, item.Qty); err != nil {
				return err
			}
		}

		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":      enums.OrderStatusCancelled,
			"canceled_at": time.Now().UTC(),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if err := repo.UpdateItemsStatusByOrder(ctx, order.ID, enums.OrderItemStatusCancelled); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item statuses")
		}

		cancelled = order
		return nil
	})
	if err != nil {
		return err
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, enums.NotificationOrderCancelled, map[string]any{
			"order_id":     cancelled.ID.String(),
			"order_number": cancelled.OrderNumber,
			"customer_id":  customerID.String(),
		})
	}
	return nil
}
