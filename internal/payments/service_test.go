package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/vendora-market/vendora-backend/internal/orders"
	"github.com/vendora-market/vendora-backend/pkg/db/models"
	"github.com/vendora-market/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora-market/vendora-backend/pkg/errors"
	stripeclient "github.com/vendora-market/vendora-backend/pkg/stripe"
)

type sqliteTxRunner struct {
	db *gorm.DB
}

func (r sqliteTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubGateway struct {
	created       int
	sessionStatus stripe.CheckoutSessionPaymentStatus
}

func (g *stubGateway) CreateCheckoutSession(ctx context.Context, in stripeclient.CheckoutSessionInput) (*stripe.CheckoutSession, error) {
	g.created++
	return &stripe.CheckoutSession{
		ID:  fmt.Sprintf("cs_test_%d", g.created),
		URL: "https://pay.example/session",
	}, nil
}

func (g *stubGateway) RetrieveSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	return &stripe.CheckoutSession{
		ID:            sessionID,
		PaymentStatus: g.sessionStatus,
	}, nil
}

type stubScheduler struct {
	calls int
}

func (s *stubScheduler) ScheduleForOrder(ctx context.Context, tx *gorm.DB, order *models.Order, items []models.OrderItem) error {
	s.calls++
	return nil
}

type recordingNotifier struct {
	kinds []enums.NotificationKind
}

func (n *recordingNotifier) Notify(ctx context.Context, kind enums.NotificationKind, data any) {
	n.kinds = append(n.kinds, kind)
}

func setupPaymentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  customer_id TEXT NOT NULL,
  status TEXT NOT NULL,
  payment_status TEXT NOT NULL,
  subtotal TEXT NOT NULL,
  shipping TEXT NOT NULL,
  discount TEXT NOT NULL,
  total TEXT NOT NULL,
  ship_recipient_name TEXT NOT NULL,
  ship_line1 TEXT NOT NULL,
  ship_line2 TEXT,
  ship_city TEXT NOT NULL,
  ship_state TEXT NOT NULL,
  ship_postal_code TEXT NOT NULL,
  ship_country TEXT NOT NULL,
  ship_phone TEXT,
  payment_session_id TEXT,
  paid_at DATETIME,
  canceled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  product_image TEXT,
  unit_price TEXT NOT NULL,
  qty INTEGER NOT NULL,
  line_total TEXT NOT NULL,
  status TEXT NOT NULL,
  tracking_number TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedPayableOrder(t *testing.T, db *gorm.DB, customerID uuid.UUID) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNumber:       "ORD-TEST-" + uuid.NewString()[:8],
		CustomerID:        customerID,
		Status:            enums.OrderStatusPending,
		PaymentStatus:     enums.PaymentStatusPending,
		Subtotal:          decimal.RequireFromString("23.50"),
		Shipping:          decimal.RequireFromString("5.00"),
		Discount:          decimal.Zero,
		Total:             decimal.RequireFromString("28.50"),
		ShipRecipientName: "Jordan Reyes",
		ShipLine1:         "500 Market St",
		ShipCity:          "Springfield",
		ShipState:         "IL",
		ShipPostalCode:    "62701",
		ShipCountry:       "US",
	}
	require.NoError(t, db.Create(order).Error)
	require.NoError(t, db.Create(&models.OrderItem{
		OrderID:     order.ID,
		ProductID:   uuid.New(),
		VendorID:    uuid.New(),
		ProductName: "Widget",
		UnitPrice:   decimal.RequireFromString("10.00"),
		Qty:         2,
		LineTotal:   decimal.RequireFromString("20.00"),
		Status:      enums.OrderItemStatusPending,
	}).Error)
	return order
}

func newPaymentsService(t *testing.T, db *gorm.DB, gw *stubGateway, sched *stubScheduler, notif *recordingNotifier) Service {
	t.Helper()
	params := ServiceParams{
		Orders:            orders.NewRepository(db),
		Gateway:           gw,
		Payouts:           sched,
		TransactionRunner: sqliteTxRunner{db: db},
		SuccessURL:        "https://shop.example/success",
		CancelURL:         "https://shop.example/cancel",
	}
	if notif != nil {
		params.Notifier = notif
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return svc
}

func TestCreateSessionStoresSessionID(t *testing.T) {
	db := setupPaymentsTestDB(t)
	customerID := uuid.New()
	order := seedPayableOrder(t, db, customerID)
	gw := &stubGateway{}
	svc := newPaymentsService(t, db, gw, &stubScheduler{}, nil)

	result, err := svc.CreateSession(context.Background(), customerID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", result.SessionID)
	assert.NotEmpty(t, result.URL)

	var reloaded models.Order
	require.NoError(t, db.Where("id = ?", order.ID).First(&reloaded).Error)
	require.NotNil(t, reloaded.PaymentSessionID)
	assert.Equal(t, "cs_test_1", *reloaded.PaymentSessionID)

	// a retry opens a fresh session and overwrites the reference
	result, err = svc.CreateSession(context.Background(), customerID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "cs_test_2", result.SessionID)
}

func TestCreateSessionRejectsPaidOrder(t *testing.T) {
	db := setupPaymentsTestDB(t)
	customerID := uuid.New()
	order := seedPayableOrder(t, db, customerID)
	require.NoError(t, db.Exec(`UPDATE orders SET payment_status = 'paid', status = 'processing' WHERE id = ?`, order.ID).Error)

	svc := newPaymentsService(t, db, &stubGateway{}, &stubScheduler{}, nil)
	_, err := svc.CreateSession(context.Background(), customerID, order.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestConfirmIsIdempotent(t *testing.T) {
	db := setupPaymentsTestDB(t)
	customerID := uuid.New()
	order := seedPayableOrder(t, db, customerID)
	sched := &stubScheduler{}
	notif := &recordingNotifier{}
	svc := newPaymentsService(t, db, &stubGateway{}, sched, notif)

	require.NoError(t, svc.Confirm(context.Background(), order.ID))
	require.NoError(t, svc.Confirm(context.Background(), order.ID)) // webhook replay

	var reloaded models.Order
	require.NoError(t, db.Where("id = ?", order.ID).First(&reloaded).Error)
	assert.Equal(t, enums.PaymentStatusPaid, reloaded.PaymentStatus)
	assert.Equal(t, enums.OrderStatusProcessing, reloaded.Status)
	assert.NotNil(t, reloaded.PaidAt)

	var items []models.OrderItem
	require.NoError(t, db.Where("order_id = ?", order.ID).Find(&items).Error)
	for _, item := range items {
		assert.Equal(t, enums.OrderItemStatusProcessing, item.Status)
	}

	assert.Equal(t, 1, sched.calls, "payouts scheduled exactly once")
	require.Len(t, notif.kinds, 1)
	assert.Equal(t, enums.NotificationOrderPaid, notif.kinds[0])
}

func TestConfirmRejectsCancelledOrder(t *testing.T) {
	db := setupPaymentsTestDB(t)
	customerID := uuid.New()
	order := seedPayableOrder(t, db, customerID)
	require.NoError(t, db.Exec(`UPDATE orders SET status = 'cancelled' WHERE id = ?`, order.ID).Error)

	svc := newPaymentsService(t, db, &stubGateway{}, &stubScheduler{}, nil)
	err := svc.Confirm(context.Background(), order.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestMarkFailedLeavesOrderPending(t *testing.T) {
	db := setupPaymentsTestDB(t)
	customerID := uuid.New()
	order := seedPayableOrder(t, db, customerID)
	notif := &recordingNotifier{}
	svc := newPaymentsService(t, db, &stubGateway{}, &stubScheduler{}, notif)

	require.NoError(t, svc.MarkFailed(context.Background(), order.ID))

	var reloaded models.Order
	require.NoError(t, db.Where("id = ?", order.ID).First(&reloaded).Error)
	assert.Equal(t, enums.PaymentStatusFailed, reloaded.PaymentStatus)
	assert.Equal(t, enums.OrderStatusPending, reloaded.Status, "order stays pending for a retry")
	require.Len(t, notif.kinds, 1)
	assert.Equal(t, enums.NotificationPaymentFailed, notif.kinds[0])
}

func TestMarkFailedNeverDowngradesPaid(t *testing.T) {
	db := setupPaymentsTestDB(t)
	customerID := uuid.New()
	order := seedPayableOrder(t, db, customerID)
	svc := newPaymentsService(t, db, &stubGateway{}, &stubScheduler{}, nil)

	require.NoError(t, svc.Confirm(context.Background(), order.ID))
	require.NoError(t, svc.MarkFailed(context.Background(), order.ID)) // late failure event

	var reloaded models.Order
	require.NoError(t, db.Where("id = ?", order.ID).First(&reloaded).Error)
	assert.Equal(t, enums.PaymentStatusPaid, reloaded.PaymentStatus)
}

func TestVerifyConvergesThroughConfirm(t *testing.T) {
	db := setupPaymentsTestDB(t)
	customerID := uuid.New()
	order := seedPayableOrder(t, db, customerID)
	gw := &stubGateway{sessionStatus: stripe.CheckoutSessionPaymentStatusPaid}
	sched := &stubScheduler{}
	svc := newPaymentsService(t, db, gw, sched, nil)

	_, err := svc.CreateSession(context.Background(), customerID, order.ID)
	require.NoError(t, err)

	result, err := svc.Verify(context.Background(), customerID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, result.PaymentStatus)
	assert.Equal(t, enums.OrderStatusProcessing, result.OrderStatus)
	assert.Equal(t, 1, sched.calls)
}

func TestVerifyUnpaidSessionLeavesOrderAlone(t *testing.T) {
	db := setupPaymentsTestDB(t)
	customerID := uuid.New()
	order := seedPayableOrder(t, db, customerID)
	gw := &stubGateway{sessionStatus: stripe.CheckoutSessionPaymentStatusUnpaid}
	svc := newPaymentsService(t, db, gw, &stubScheduler{}, nil)

	_, err := svc.CreateSession(context.Background(), customerID, order.ID)
	require.NoError(t, err)

	result, err := svc.Verify(context.Background(), customerID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending, result.PaymentStatus)
	assert.Equal(t, enums.OrderStatusPending, result.OrderStatus)
}

func TestHandleEventRoutesSessionCompleted(t *testing.T) {
	db := setupPaymentsTestDB(t)
	customerID := uuid.New()
	order := seedPayableOrder(t, db, customerID)
	sched := &stubScheduler{}
	svc := newPaymentsService(t, db, &stubGateway{}, sched, nil)

	raw, err := json.Marshal(map[string]any{
		"id":       "cs_test_1",
		"metadata": map[string]string{"order_id": order.ID.String()},
	})
	require.NoError(t, err)

	event := &stripe.Event{
		Type: stripe.EventTypeCheckoutSessionCompleted,
		Data: &stripe.EventData{Raw: raw},
	}
	require.NoError(t, svc.HandleEvent(context.Background(), event))

	var reloaded models.Order
	require.NoError(t, db.Where("id = ?", order.ID).First(&reloaded).Error)
	assert.Equal(t, enums.PaymentStatusPaid, reloaded.PaymentStatus)
	assert.Equal(t, 1, sched.calls)
}

func TestHandleEventIgnoresUnknownTypes(t *testing.T) {
	db := setupPaymentsTestDB(t)
	svc := newPaymentsService(t, db, &stubGateway{}, &stubScheduler{}, nil)

	event := &stripe.Event{
		Type: stripe.EventType("customer.created"),
		Data: &stripe.EventData{Raw: json.RawMessage(`{}`)},
	}
	require.NoError(t, svc.HandleEvent(context.Background(), event))
}

func TestHandleEventMissingMetadata(t *testing.T) {
	db := setupPaymentsTestDB(t)
	svc := newPaymentsService(t, db, &stubGateway{}, &stubScheduler{}, nil)

	event := &stripe.Event{
		Type: stripe.EventTypeCheckoutSessionCompleted,
		Data: &stripe.EventData{Raw: json.RawMessage(`{"id":"cs_test_1"}`)},
	}
	err := svc.HandleEvent(context.Background(), event)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
