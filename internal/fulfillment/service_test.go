package fulfillment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/vendora-market/vendora-backend/pkg/db/models"
	"github.com/vendora-market/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora-market/vendora-backend/pkg/errors"
)

type sqliteTxRunner struct {
	db *gorm.DB
}

func (r sqliteTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupFulfillmentTestDB(t *testing.T) *gorm.DB {
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

func seedProcessingOrder(t *testing.T, db *gorm.DB) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNumber:       "ORD-TEST-" + uuid.NewString()[:8],
		CustomerID:        uuid.New(),
		Status:            enums.OrderStatusProcessing,
		PaymentStatus:     enums.PaymentStatusPaid,
		Subtotal:          decimal.RequireFromString("20.00"),
		Shipping:          decimal.Zero,
		Discount:          decimal.Zero,
		Total:             decimal.RequireFromString("20.00"),
		ShipRecipientName: "Jordan Reyes",
		ShipLine1:         "500 Market St",
		ShipCity:          "Springfield",
		ShipState:         "IL",
		ShipPostalCode:    "62701",
		ShipCountry:       "US",
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func seedItem(t *testing.T, db *gorm.DB, orderID, vendorID uuid.UUID, status enums.OrderItemStatus) *models.OrderItem {
	t.Helper()
	item := &models.OrderItem{
		OrderID:     orderID,
		ProductID:   uuid.New(),
		VendorID:    vendorID,
		ProductName: "Widget",
		UnitPrice:   decimal.RequireFromString("10.00"),
		Qty:         1,
		LineTotal:   decimal.RequireFromString("10.00"),
		Status:      status,
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func newFulfillmentService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), sqliteTxRunner{db: db})
	require.NoError(t, err)
	return svc
}

func strPtr(s string) *string { return &s }

func TestAdvanceToShippedRequiresTracking(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	vendorID := uuid.New()
	order := seedProcessingOrder(t, db)
	item := seedItem(t, db, order.ID, vendorID, enums.OrderItemStatusProcessing)
	svc := newFulfillmentService(t, db)

	_, err := svc.AdvanceItem(context.Background(), AdvanceInput{
		VendorID: vendorID,
		ItemID:   item.ID,
		Target:   enums.OrderItemStatusShipped,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	advanced, err := svc.AdvanceItem(context.Background(), AdvanceInput{
		VendorID:       vendorID,
		ItemID:         item.ID,
		Target:         enums.OrderItemStatusShipped,
		TrackingNumber: strPtr("1Z999AA10123456784"),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderItemStatusShipped, advanced.Status)
	require.NotNil(t, advanced.TrackingNumber)
	assert.Equal(t, "1Z999AA10123456784", *advanced.TrackingNumber)
}

func TestAdvancePendingItemToProcessing(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	vendorID := uuid.New()
	order := seedProcessingOrder(t, db)
	require.NoError(t, db.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("status", enums.OrderStatusPending).Error)
	item := seedItem(t, db, order.ID, vendorID, enums.OrderItemStatusPending)
	svc := newFulfillmentService(t, db)

	advanced, err := svc.AdvanceItem(context.Background(), AdvanceInput{
		VendorID: vendorID,
		ItemID:   item.ID,
		Target:   enums.OrderItemStatusProcessing,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderItemStatusProcessing, advanced.Status)

	var reloaded models.Order
	require.NoError(t, db.Where("id = ?", order.ID).First(&reloaded).Error)
	assert.Equal(t, enums.OrderStatusProcessing, reloaded.Status, "order follows its first active item")
}

func TestAdvanceRejectsForeignVendor(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	order := seedProcessingOrder(t, db)
	item := seedItem(t, db, order.ID, uuid.New(), enums.OrderItemStatusProcessing)
	svc := newFulfillmentService(t, db)

	_, err := svc.AdvanceItem(context.Background(), AdvanceInput{
		VendorID:       uuid.New(),
		ItemID:         item.ID,
		Target:         enums.OrderItemStatusShipped,
		TrackingNumber: strPtr("TRACK1"),
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestAdvanceRejectsSkippedStage(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	vendorID := uuid.New()
	order := seedProcessingOrder(t, db)
	item := seedItem(t, db, order.ID, vendorID, enums.OrderItemStatusProcessing)
	svc := newFulfillmentService(t, db)

	_, err := svc.AdvanceItem(context.Background(), AdvanceInput{
		VendorID: vendorID,
		ItemID:   item.ID,
		Target:   enums.OrderItemStatusDelivered, // skips shipped
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestAdvanceRejectsBackwardsMove(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	vendorID := uuid.New()
	order := seedProcessingOrder(t, db)
	item := seedItem(t, db, order.ID, vendorID, enums.OrderItemStatusShipped)
	svc := newFulfillmentService(t, db)

	_, err := svc.AdvanceItem(context.Background(), AdvanceInput{
		VendorID: vendorID,
		ItemID:   item.ID,
		Target:   enums.OrderItemStatusProcessing,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestAdvanceRollsUpOrderStatus(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	vendorA := uuid.New()
	vendorB := uuid.New()
	order := seedProcessingOrder(t, db)
	itemA := seedItem(t, db, order.ID, vendorA, enums.OrderItemStatusProcessing)
	itemB := seedItem(t, db, order.ID, vendorB, enums.OrderItemStatusProcessing)
	svc := newFulfillmentService(t, db)

	ship := func(vendorID, itemID uuid.UUID) {
		t.Helper()
		_, err := svc.AdvanceItem(context.Background(), AdvanceInput{
			VendorID:       vendorID,
			ItemID:         itemID,
			Target:         enums.OrderItemStatusShipped,
			TrackingNumber: strPtr("TRACK"),
		})
		require.NoError(t, err)
	}
	deliver := func(vendorID, itemID uuid.UUID) {
		t.Helper()
		_, err := svc.AdvanceItem(context.Background(), AdvanceInput{
			VendorID: vendorID,
			ItemID:   itemID,
			Target:   enums.OrderItemStatusDelivered,
		})
		require.NoError(t, err)
	}
	orderStatus := func() enums.OrderStatus {
		t.Helper()
		var reloaded models.Order
		require.NoError(t, db.Where("id = ?", order.ID).First(&reloaded).Error)
		return reloaded.Status
	}

	ship(vendorA, itemA.ID)
	assert.Equal(t, enums.OrderStatusProcessing, orderStatus(), "one vendor still processing")

	ship(vendorB, itemB.ID)
	assert.Equal(t, enums.OrderStatusShipped, orderStatus(), "every item shipped")

	deliver(vendorA, itemA.ID)
	assert.Equal(t, enums.OrderStatusShipped, orderStatus(), "partial delivery")

	deliver(vendorB, itemB.ID)
	assert.Equal(t, enums.OrderStatusDelivered, orderStatus(), "every item delivered")
}
