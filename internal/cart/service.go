package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vendora-market/vendora-backend/pkg/db/models"
	"github.com/vendora-market/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora-market/vendora-backend/pkg/errors"
)

const maxLineQty = 999

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service covers the mutable pre-checkout cart.
type Service interface {
	AddItem(ctx context.Context, customerID, productID uuid.UUID, qty int) error
	SetQuantity(ctx context.Context, customerID, productID uuid.UUID, qty int) error
	RemoveItem(ctx context.Context, customerID, productID uuid.UUID) error
	Clear(ctx context.Context, customerID uuid.UUID) error
	GetQuote(ctx context.Context, customerID uuid.UUID) (*Quote, error)
}

type service struct {
	repo     Repository
	products productLoader
}

// NewService builds a cart service with the required dependencies.
func NewService(repo Repository, products productLoader) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart repository required")
	}
	if products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product loader required")
	}
	return &service{repo: repo, products: products}, nil
}

func (s *service) AddItem(ctx context.Context, customerID, productID uuid.UUID, qty int) error {
	if customerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if qty <= 0 || qty > maxLineQty {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity out of range")
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.Status != enums.ProductStatusActive {
		return pkgerrors.New(pkgerrors.CodeConflict, "product is not available")
	}

	existing, err := s.repo.FindItem(ctx, customerID, productID)
	if err != nil && err != gorm.ErrRecordNotFound {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	// the stock check covers the whole line, not just the increment
	merged := qty
	if existing != nil {
		merged += existing.Qty
	}
	if merged > maxLineQty {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity out of range")
	}
	if product.Stock < merged {
		return insufficientStock(product, merged)
	}

	if existing != nil {
		if err := s.repo.UpdateItemQty(ctx, existing.ID, merged); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge cart item")
		}
		return nil
	}

	item := &models.CartItem{
		CustomerID: customerID,
		ProductID:  productID,
		Qty:        qty,
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart item")
	}
	return nil
}

// SetQuantity overwrites a line's quantity. Zero or less removes the line;
// any other quantity is revalidated against the live product.
func (s *service) SetQuantity(ctx context.Context, customerID, productID uuid.UUID, qty int) error {
	if customerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if qty > maxLineQty {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity out of range")
	}

	item, err := s.repo.FindItem(ctx, customerID, productID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	if qty <= 0 {
		if err := s.repo.DeleteItem(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
		}
		return nil
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeConflict, "product no longer exists")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.Status != enums.ProductStatusActive {
		return pkgerrors.New(pkgerrors.CodeConflict, "product is not available")
	}
	if product.Stock < qty {
		return insufficientStock(product, qty)
	}

	if err := s.repo.UpdateItemQty(ctx, item.ID, qty); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}
	return nil
}

func insufficientStock(product *models.Product, requested int) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
		WithDetails(map[string]any{
			"product_id":   product.ID.String(),
			"product_name": product.Name,
			"stock":        product.Stock,
			"requested":    requested,
		})
}

func (s *service) RemoveItem(ctx context.Context, customerID, productID uuid.UUID) error {
	if customerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	item, err := s.repo.FindItem(ctx, customerID, productID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}
	if err := s.repo.DeleteItem(ctx, item.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
	}
	return nil
}

func (s *service) Clear(ctx context.Context, customerID uuid.UUID) error {
	if customerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if err := s.repo.DeleteByCustomer(ctx, customerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// GetQuote reprices every line from the live catalog. Lines whose product has
// gone inactive, vanished, or run short of stock are flagged rather than
// silently dropped so the storefront can surface them.
func (s *service) GetQuote(ctx context.Context, customerID uuid.UUID) (*Quote, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}

	items, err := s.repo.FindItemsByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart items")
	}

	quote := &Quote{
		Lines:    make([]QuoteLine, 0, len(items)),
		Subtotal: decimal.Zero,
	}
	for _, item := range items {
		line := QuoteLine{
			ProductID: item.ProductID,
			Qty:       item.Qty,
		}
		switch {
		case item.Product == nil:
			line.Reason = "product no longer exists"
		case item.Product.Status != enums.ProductStatusActive:
			line.Name = item.Product.Name
			line.Reason = "product is not available"
		case item.Product.Stock < item.Qty:
			line.Name = item.Product.Name
			line.UnitPrice = item.Product.EffectivePrice()
			line.Reason = "insufficient stock"
		default:
			line.Name = item.Product.Name
			line.UnitPrice = item.Product.EffectivePrice()
			line.LineTotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(item.Qty)))
			line.Available = true
			quote.Subtotal = quote.Subtotal.Add(line.LineTotal)
		}
		quote.Lines = append(quote.Lines, line)
	}
	return quote, nil
}
