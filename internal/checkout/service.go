package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vendora-market/vendora-backend/internal/cart"
	"github.com/vendora-market/vendora-backend/pkg/db/models"
	"github.com/vendora-market/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora-market/vendora-backend/pkg/errors"
	"github.com/vendora-market/vendora-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type addressLoader interface {
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.CustomerAddress, error)
}

type orderWriter interface {
	CreateOrderWithTx(ctx context.Context, tx *gorm.DB, order *models.Order) error
	CreateOrderItemsWithTx(ctx context.Context, tx *gorm.DB, items []models.OrderItem) error
}

type stockReserver interface {
	Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

type notifier interface {
	Notify(ctx context.Context, kind enums.NotificationKind, data any)
}

// Service converts a cart into a frozen pending order.
type Service interface {
	Checkout(ctx context.Context, input Input) (*Result, error)
}

// ServiceParams wires the checkout service dependencies.
type ServiceParams struct {
	CartRepo          cart.Repository
	Addresses         addressLoader
	Orders            orderWriter
	Inventory         stockReserver
	Notifier          notifier
	TransactionRunner txRunner
	ShippingCost      decimal.Decimal
}

type service struct {
	cartRepo  cart.Repository
	addresses addressLoader
	orders    orderWriter
	inventory stockReserver
	notifier  notifier
	tx        txRunner
	shipping  decimal.Decimal
	now       func() time.Time
}

// NewService builds a checkout service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.CartRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart repository required")
	}
	if params.Addresses == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "address loader required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order writer required")
	}
	if params.Inventory == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory reserver required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.ShippingCost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "shipping cost must not be negative")
	}
	return &service{
		cartRepo:  params.CartRepo,
		addresses: params.Addresses,
		orders:    params.Orders,
		inventory: params.Inventory,
		notifier:  params.Notifier,
		tx:        params.TransactionRunner,
		shipping:  params.ShippingCost,
		now:       time.Now,
	}, nil
}

// Checkout runs the whole conversion in one transaction: validate every line,
// reserve stock, freeze prices and the shipping address, then clear the cart.
// Any failure rolls the lot back, so the cart survives a failed checkout.
func (s *service) Checkout(ctx context.Context, input Input) (*Result, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if input.AddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id required")
	}

	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)

		address, err := s.addresses.FindByID(ctx, tx, input.AddressID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
		}
		if address.CustomerID != input.CustomerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "address does not belong to customer")
		}
		snapshot := types.Address{
			RecipientName: address.RecipientName,
			Line1:         address.Line1,
			Line2:         address.Line2,
			City:          address.City,
			State:         address.State,
			PostalCode:    address.PostalCode,
			Country:       address.Country,
			Phone:         address.Phone,
		}
		if err := snapshot.Validate(); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "address is incomplete")
		}

		items, err := cartRepo.FindItemsByCustomer(ctx, input.CustomerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart items")
		}
		if len(items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		orderItems := make([]models.OrderItem, 0, len(items))
		subtotal := decimal.Zero
		for _, item := range items {
			if err := validateLine(item); err != nil {
				return err
			}
			if err := s.inventory.Reserve(ctx, tx, item.ProductID, item.Qty); err != nil {
				if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConflict {
					return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
						WithDetails(map[string]any{
							"product_id":   item.ProductID.String(),
							"product_name": item.Product.Name,
						})
				}
				return err
			}

			unitPrice := item.Product.EffectivePrice()
			lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(item.Qty)))
			subtotal = subtotal.Add(lineTotal)

			orderItems = append(orderItems, models.OrderItem{
				ProductID:    item.ProductID,
				VendorID:     item.Product.VendorID,
				ProductName:  item.Product.Name,
				ProductImage: item.Product.ImageURL,
				UnitPrice:    unitPrice,
				Qty:          item.Qty,
				LineTotal:    lineTotal,
				Status:       enums.OrderItemStatusPending,
			})
		}

		discount := decimal.Zero
		total := subtotal.Add(s.shipping).Sub(discount)

		order := &models.Order{
			OrderNumber:       newOrderNumber(s.now()),
			CustomerID:        input.CustomerID,
			Status:            enums.OrderStatusPending,
			PaymentStatus:     enums.PaymentStatusPending,
			Subtotal:          subtotal,
			Shipping:          s.shipping,
			Discount:          discount,
			Total:             total,
			ShipRecipientName: snapshot.RecipientName,
			ShipLine1:         snapshot.Line1,
			ShipLine2:         snapshot.Line2,
			ShipCity:          snapshot.City,
			ShipState:         snapshot.State,
			ShipPostalCode:    snapshot.PostalCode,
			ShipCountry:       snapshot.Country,
			ShipPhone:         snapshot.Phone,
		}
		if err := s.orders.CreateOrderWithTx(ctx, tx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		for i := range orderItems {
			orderItems[i].OrderID = order.ID
		}
		if err := s.orders.CreateOrderItemsWithTx(ctx, tx, orderItems); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}

		if err := cartRepo.DeleteByCustomer(ctx, input.CustomerID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}

		result = &Result{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Subtotal:    order.Subtotal,
			Shipping:    order.Shipping,
			Discount:    order.Discount,
			Total:       order.Total,
			ItemCount:   len(orderItems),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, enums.NotificationOrderCreated, map[string]any{
			"order_id":     result.OrderID.String(),
			"order_number": result.OrderNumber,
			"customer_id":  input.CustomerID.String(),
			"total":        result.Total.StringFixed(2),
		})
	}
	return result, nil
}

func validateLine(item models.CartItem) error {
	if item.Product == nil {
		return pkgerrors.New(pkgerrors.CodeConflict, "product no longer exists").
			WithDetails(map[string]any{"product_id": item.ProductID.String()})
	}
	if item.Product.Status != enums.ProductStatusActive {
		return pkgerrors.New(pkgerrors.CodeConflict, "product is not available").
			WithDetails(map[string]any{
				"product_id":   item.ProductID.String(),
				"product_name": item.Product.Name,
			})
	}
	if item.Qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart line has invalid quantity").
			WithDetails(map[string]any{"product_id": item.ProductID.String()})
	}
	return nil
}
