package payments

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/vendora-market/vendora-backend/internal/orders"
	"github.com/vendora-market/vendora-backend/pkg/db/models"
	"github.com/vendora-market/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora-market/vendora-backend/pkg/errors"
	stripeclient "github.com/vendora-market/vendora-backend/pkg/stripe"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gateway interface {
	CreateCheckoutSession(ctx context.Context, in stripeclient.CheckoutSessionInput) (*stripe.CheckoutSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error)
}

type payoutScheduler interface {
	ScheduleForOrder(ctx context.Context, tx *gorm.DB, order *models.Order, items []models.OrderItem) error
}

type notifier interface {
	Notify(ctx context.Context, kind enums.NotificationKind, data any)
}

// Service drives an order through its payment lifecycle.
type Service interface {
	CreateSession(ctx context.Context, customerID, orderID uuid.UUID) (*SessionResult, error)
	Confirm(ctx context.Context, orderID uuid.UUID) error
	MarkFailed(ctx context.Context, orderID uuid.UUID) error
	Verify(ctx context.Context, customerID, orderID uuid.UUID) (*VerifyResult, error)
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

// ServiceParams wires the payments service dependencies.
type ServiceParams struct {
	Orders            orders.Repository
	Gateway           gateway
	Payouts           payoutScheduler
	Notifier          notifier
	TransactionRunner txRunner
	SuccessURL        string
	CancelURL         string
}

type service struct {
	orders     orders.Repository
	gateway    gateway
	payouts    payoutScheduler
	notifier   notifier
	tx         txRunner
	successURL string
	cancelURL  string
}

// NewService builds a payments service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment gateway required")
	}
	if params.Payouts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payout scheduler required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &service{
		orders:     params.Orders,
		gateway:    params.Gateway,
		payouts:    params.Payouts,
		notifier:   params.Notifier,
		tx:         params.TransactionRunner,
		successURL: params.SuccessURL,
		cancelURL:  params.CancelURL,
	}, nil
}

// CreateSession opens a hosted payment page for a pending order. Calling it
// again before paying simply opens a fresh session; the newest session id
// overwrites the old one.
func (s *service) CreateSession(ctx context.Context, customerID, orderID uuid.UUID) (*SessionResult, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not payable in current state")
	}

	lines := make([]stripeclient.SessionLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, stripeclient.SessionLine{
			Name:      item.ProductName,
			UnitPrice: item.UnitPrice,
			Qty:       int64(item.Qty),
		})
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, stripeclient.CheckoutSessionInput{
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		Lines:       lines,
		Shipping:    order.Shipping,
		SuccessURL:  s.successURL,
		CancelURL:   s.cancelURL,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment session")
	}

	if err := s.orders.UpdateOrder(ctx, order.ID, map[string]any{
		"payment_session_id": session.ID,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store session id")
	}

	return &SessionResult{SessionID: session.ID, URL: session.URL}, nil
}

// Confirm marks an order paid. It is the single convergence point for the
// webhook and the verify poll, and it is idempotent: once payment_status is
// paid every later call is a no-op, so replayed deliveries schedule nothing
// twice.
func (s *service) Confirm(ctx context.Context, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var confirmed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.PaymentStatus == enums.PaymentStatusPaid {
			return nil
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be confirmed in current state")
		}

		won, err := repo.MarkPaid(ctx, order.ID, time.Now().UTC())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order payment state")
		}
		if !won {
			// a concurrent confirmation transitioned the order between our
			// read and the conditional update; re-read to tell a completed
			// payment from a cancellation
			current, err := repo.FindByID(ctx, order.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
			}
			if current.PaymentStatus == enums.PaymentStatusPaid {
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be confirmed in current state")
		}
		if err := repo.UpdateItemsStatusByOrder(ctx, order.ID, enums.OrderItemStatusProcessing); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item statuses")
		}

		items, err := repo.FindItemsByOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
		}
		if err := s.payouts.ScheduleForOrder(ctx, tx, order, items); err != nil {
			return err
		}

		confirmed = order
		return nil
	})
	if err != nil {
		return err
	}

	if s.notifier != nil && confirmed != nil {
		s.notifier.Notify(ctx, enums.NotificationOrderPaid, map[string]any{
			"order_id":     confirmed.ID.String(),
			"order_number": confirmed.OrderNumber,
			"customer_id":  confirmed.CustomerID.String(),
			"total":        confirmed.Total.StringFixed(2),
		})
	}
	return nil
}

// MarkFailed records a failed payment attempt. Only payment_status moves; the
// order stays pending so the customer can open a new session and try again.
func (s *service) MarkFailed(ctx context.Context, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var failed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		// a late failure event must never claw back a completed payment
		if order.PaymentStatus == enums.PaymentStatusPaid {
			return nil
		}
		if order.PaymentStatus == enums.PaymentStatusFailed {
			return nil
		}

		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"payment_status": enums.PaymentStatusFailed,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}
		failed = order
		return nil
	})
	if err != nil {
		return err
	}

	if s.notifier != nil && failed != nil {
		s.notifier.Notify(ctx, enums.NotificationPaymentFailed, map[string]any{
			"order_id":     failed.ID.String(),
			"order_number": failed.OrderNumber,
			"customer_id":  failed.CustomerID.String(),
		})
	}
	return nil
}

// Verify is the poll fallback for lost webhooks: it asks the gateway for the
// session's current state and converges through the same Confirm path.
func (s *service) Verify(ctx context.Context, customerID, orderID uuid.UUID) (*VerifyResult, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
	}

	if order.PaymentStatus != enums.PaymentStatusPaid && order.PaymentSessionID != nil {
		session, err := s.gateway.RetrieveSession(ctx, *order.PaymentSessionID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve payment session")
		}
		if session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
			if err := s.Confirm(ctx, order.ID); err != nil {
				return nil, err
			}
			order, err = s.orders.FindByID(ctx, order.ID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
			}
		}
	}

	return &VerifyResult{
		OrderID:       order.ID,
		OrderStatus:   order.Status,
		PaymentStatus: order.PaymentStatus,
	}, nil
}

// HandleEvent routes verified gateway webhook events into the lifecycle.
func (s *service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		orderID, err := orderIDFromEvent(event)
		if err != nil {
			return err
		}
		return s.Confirm(ctx, orderID)
	case stripe.EventTypeCheckoutSessionExpired,
		stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		orderID, err := orderIDFromEvent(event)
		if err != nil {
			return err
		}
		return s.MarkFailed(ctx, orderID)
	default:
		return nil
	}
}

func orderIDFromEvent(event *stripe.Event) (uuid.UUID, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode session event")
	}
	raw, ok := session.Metadata["order_id"]
	if !ok || raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id missing from session metadata")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id in session metadata is not a uuid")
	}
	return orderID, nil
}
