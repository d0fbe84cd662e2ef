package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/vendora-market/vendora-backend/pkg/errors"
)

func setupInventoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	products := `
CREATE TABLE IF NOT EXISTS products (
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
);`
	require.NoError(t, db.Exec(products).Error)
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, stock int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, db.Exec(
		`INSERT INTO products (id, vendor_id, name, price, stock, status) VALUES (?, ?, ?, ?, ?, ?)`,
		id, uuid.New(), "Widget", "10.00", stock, "active",
	).Error)
	return id
}

func productStock(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var stock int
	require.NoError(t, db.Raw(`SELECT stock FROM products WHERE id = ?`, id).Scan(&stock).Error)
	return stock
}

func TestReserveDecrementsStock(t *testing.T) {
	db := setupInventoryTestDB(t)
	productID := seedProduct(t, db, 5)
	svc := NewService()

	require.NoError(t, svc.Reserve(context.Background(), db, productID, 3))
	assert.Equal(t, 2, productStock(t, db, productID))
}

func TestReserveRefusesWhenShort(t *testing.T) {
	db := setupInventoryTestDB(t)
	productID := seedProduct(t, db, 2)
	svc := NewService()

	err := svc.Reserve(context.Background(), db, productID, 3)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())

	// stock untouched on refusal
	assert.Equal(t, 2, productStock(t, db, productID))
}

func TestReserveExactRemainingStock(t *testing.T) {
	db := setupInventoryTestDB(t)
	productID := seedProduct(t, db, 4)
	svc := NewService()

	require.NoError(t, svc.Reserve(context.Background(), db, productID, 4))
	assert.Equal(t, 0, productStock(t, db, productID))

	err := svc.Reserve(context.Background(), db, productID, 1)
	require.Error(t, err)
}

func TestReserveRejectsNonPositiveQty(t *testing.T) {
	db := setupInventoryTestDB(t)
	productID := seedProduct(t, db, 4)
	svc := NewService()

	err := svc.Reserve(context.Background(), db, productID, 0)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestReleaseRestoresStock(t *testing.T) {
	db := setupInventoryTestDB(t)
	productID := seedProduct(t, db, 5)
	svc := NewService()

	require.NoError(t, svc.Reserve(context.Background(), db, productID, 5))
	require.NoError(t, svc.Release(context.Background(), db, productID, 5))
	assert.Equal(t, 5, productStock(t, db, productID))
}

func TestReleaseIgnoresNonPositiveQty(t *testing.T) {
	db := setupInventoryTestDB(t)
	productID := seedProduct(t, db, 5)
	svc := NewService()

	require.NoError(t, svc.Release(context.Background(), db, productID, 0))
	assert.Equal(t, 5, productStock(t, db, productID))
}
