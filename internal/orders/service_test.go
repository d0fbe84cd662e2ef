package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/vendora-market/vendora-backend/internal/inventory"
	"github.com/vendora-market/vendora-backend/pkg/db/models"
	"github.com/vendora-market/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora-market/vendora-backend/pkg/errors"
	"github.com/vendora-market/vendora-backend/pkg/pagination"
)

type sqliteTxRunner struct {
	db *gorm.DB
}

func (r sqliteTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  name TEXT NOT NULL,
  image_url TEXT,
  price TEXT NOT NULL,
  sale_price TEXT,
  stock INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'draft',
  created_at DATETIME,
  updated_at DATETIME
);`,
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

func seedOrder(t *testing.T, db *gorm.DB, customerID uuid.UUID, status enums.OrderStatus, createdAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNumber:       "ORD-TEST-" + uuid.NewString()[:8],
		CustomerID:        customerID,
		Status:            status,
		PaymentStatus:     enums.PaymentStatusPending,
		Subtotal:          decimal.RequireFromString("20.00"),
		Shipping:          decimal.RequireFromString("5.00"),
		Discount:          decimal.Zero,
		Total:             decimal.RequireFromString("25.00"),
		ShipRecipientName: "Jordan Reyes",
		ShipLine1:         "500 Market St",
		ShipCity:          "Springfield",
		ShipState:         "IL",
		ShipPostalCode:    "62701",
		ShipCountry:       "US",
		CreatedAt:         createdAt,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func seedOrderItem(t *testing.T, db *gorm.DB, orderID, productID uuid.UUID, qty int) *models.OrderItem {
	t.Helper()
	item := &models.OrderItem{
		OrderID:     orderID,
		ProductID:   productID,
		VendorID:    uuid.New(),
		ProductName: "Widget",
		UnitPrice:   decimal.RequireFromString("10.00"),
		Qty:         qty,
		LineTotal:   decimal.RequireFromString("10.00").Mul(decimal.NewFromInt(int64(qty))),
		Status:      enums.OrderItemStatusPending,
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func seedStockedProduct(t *testing.T, db *gorm.DB, stock int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, db.Exec(
		`INSERT INTO products (id, vendor_id, name, price, stock, status) VALUES (?, ?, ?, ?, ?, ?)`,
		id, uuid.New(), "Widget", "10.00", stock, "active",
	).Error)
	return id
}

func newOrdersService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), sqliteTxRunner{db: db}, inventory.NewService(), nil)
	require.NoError(t, err)
	return svc
}

func TestCancelRestoresStock(t *testing.T) {
	db := setupOrdersTestDB(t)
	customerID := uuid.New()
	productID := seedStockedProduct(t, db, 3) // 2 already reserved by this order

	order := seedOrder(t, db, customerID, enums.OrderStatusPending, time.Now().UTC())
	seedOrderItem(t, db, order.ID, productID, 2)

	svc := newOrdersService(t, db)
	require.NoError(t, svc.Cancel(context.Background(), customerID, order.ID))

	var stock int
	require.NoError(t, db.Raw(`SELECT stock FROM products WHERE id = ?`, productID).Scan(&stock).Error)
	assert.Equal(t, 5, stock)

	var reloaded models.Order
	require.NoError(t, db.Where("id = ?", order.ID).First(&reloaded).Error)
	assert.Equal(t, enums.OrderStatusCancelled, reloaded.Status)
	assert.NotNil(t, reloaded.CanceledAt)

	var items []models.OrderItem
	require.NoError(t, db.Where("order_id = ?", order.ID).Find(&items).Error)
	for _, item := range items {
		assert.Equal(t, enums.OrderItemStatusCancelled, item.Status)
	}
}

func TestCancelRejectsSecondAttempt(t *testing.T) {
	db := setupOrdersTestDB(t)
	customerID := uuid.New()
	productID := seedStockedProduct(t, db, 3)
	order := seedOrder(t, db, customerID, enums.OrderStatusPending, time.Now().UTC())
	seedOrderItem(t, db, order.ID, productID, 2)

	svc := newOrdersService(t, db)
	require.NoError(t, svc.Cancel(context.Background(), customerID, order.ID))

	err := svc.Cancel(context.Background(), customerID, order.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	// stock released exactly once
	var stock int
	require.NoError(t, db.Raw(`SELECT stock FROM products WHERE id = ?`, productID).Scan(&stock).Error)
	assert.Equal(t, 5, stock)
}

func TestCancelPaidOrderRejected(t *testing.T) {
	db := setupOrdersTestDB(t)
	customerID := uuid.New()
	order := seedOrder(t, db, customerID, enums.OrderStatusPaid, time.Now().UTC())

	svc := newOrdersService(t, db)
	err := svc.Cancel(context.Background(), customerID, order.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestMarkPaidHasSingleWinner(t *testing.T) {
	db := setupOrdersTestDB(t)
	order := seedOrder(t, db, uuid.New(), enums.OrderStatusPending, time.Now().UTC())
	repo := NewRepository(db)

	won, err := repo.MarkPaid(context.Background(), order.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, won, "first transition wins")

	won, err = repo.MarkPaid(context.Background(), order.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, won, "replayed transition affects no rows")

	var reloaded models.Order
	require.NoError(t, db.Where("id = ?", order.ID).First(&reloaded).Error)
	assert.Equal(t, enums.PaymentStatusPaid, reloaded.PaymentStatus)
	assert.Equal(t, enums.OrderStatusProcessing, reloaded.Status)
	assert.NotNil(t, reloaded.PaidAt)
}

func TestMarkPaidSkipsCancelledOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	order := seedOrder(t, db, uuid.New(), enums.OrderStatusCancelled, time.Now().UTC())
	repo := NewRepository(db)

	won, err := repo.MarkPaid(context.Background(), order.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, won)

	var reloaded models.Order
	require.NoError(t, db.Where("id = ?", order.ID).First(&reloaded).Error)
	assert.Equal(t, enums.PaymentStatusPending, reloaded.PaymentStatus)
}

func TestGetEnforcesOwnership(t *testing.T) {
	db := setupOrdersTestDB(t)
	owner := uuid.New()
	order := seedOrder(t, db, owner, enums.OrderStatusPending, time.Now().UTC())

	svc := newOrdersService(t, db)

	got, err := svc.Get(context.Background(), owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = svc.Get(context.Background(), uuid.New(), order.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestListPaginatesNewestFirst(t *testing.T) {
	db := setupOrdersTestDB(t)
	customerID := uuid.New()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedOrder(t, db, customerID, enums.OrderStatusPending, base.Add(time.Duration(i)*time.Hour))
	}
	// another customer's order must not leak in
	seedOrder(t, db, uuid.New(), enums.OrderStatusPending, base)

	svc := newOrdersService(t, db)

	first, err := svc.List(context.Background(), customerID, pagination.Params{Limit: 3})
	require.NoError(t, err)
	require.Len(t, first.Items, 3)
	require.NotEmpty(t, first.NextCursor)
	assert.True(t, first.Items[0].CreatedAt.After(first.Items[1].CreatedAt))

	second, err := svc.List(context.Background(), customerID, pagination.Params{Limit: 3, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.Empty(t, second.NextCursor)

	seen := map[uuid.UUID]bool{}
	for _, o := range append(first.Items, second.Items...) {
		require.False(t, seen[o.ID], "duplicate order across pages")
		seen[o.ID] = true
		assert.Equal(t, customerID, o.CustomerID)
	}
}
