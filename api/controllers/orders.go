package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendora-market/vendora-backend/api/responses"
	"github.com/vendora-market/vendora-backend/api/validators"
	ordersvc "github.com/vendora-market/vendora-backend/internal/orders"
	"github.com/vendora-market/vendora-backend/pkg/db/models"
	"github.com/vendora-market/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora-market/vendora-backend/pkg/errors"
	"github.com/vendora-market/vendora-backend/pkg/logger"
	"github.com/vendora-market/vendora-backend/pkg/pagination"
	"github.com/vendora-market/vendora-backend/pkg/types"
)

type orderItemResponse struct {
	ID             uuid.UUID             `json:"id"`
	ProductID      uuid.UUID             `json:"product_id"`
	VendorID       uuid.UUID             `json:"vendor_id"`
	ProductName    string                `json:"product_name"`
	ProductImage   *string               `json:"product_image,omitempty"`
	UnitPrice      decimal.Decimal       `json:"unit_price"`
	Qty            int                   `json:"qty"`
	LineTotal      decimal.Decimal       `json:"line_total"`
	Status         enums.OrderItemStatus `json:"status"`
	TrackingNumber *string               `json:"tracking_number,omitempty"`
}

type orderResponse struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   string              `json:"order_number"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Shipping      decimal.Decimal     `json:"shipping"`
	Discount      decimal.Decimal     `json:"discount"`
	Total         decimal.Decimal     `json:"total"`
	ShippingTo    types.Address       `json:"shipping_to"`
	Items         []orderItemResponse `json:"items,omitempty"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
	CanceledAt    *time.Time          `json:"canceled_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

type orderListResponse struct {
	Items  []orderResponse `json:"items"`
	Cursor string          `json:"cursor,omitempty"`
}

func newOrderResponse(order *models.Order) orderResponse {
	resp := orderResponse{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		Subtotal:      order.Subtotal,
		Shipping:      order.Shipping,
		Discount:      order.Discount,
		Total:         order.Total,
		ShippingTo: types.Address{
			RecipientName: order.ShipRecipientName,
			Line1:         order.ShipLine1,
			Line2:         order.ShipLine2,
			City:          order.ShipCity,
			State:         order.ShipState,
			PostalCode:    order.ShipPostalCode,
			Country:       order.ShipCountry,
			Phone:         order.ShipPhone,
		},
		PaidAt:     order.PaidAt,
		CanceledAt: order.CanceledAt,
		CreatedAt:  order.CreatedAt,
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, newOrderItemResponse(item))
	}
	return resp
}

func newOrderItemResponse(item models.OrderItem) orderItemResponse {
	return orderItemResponse{
		ID:             item.ID,
		ProductID:      item.ProductID,
		VendorID:       item.VendorID,
		ProductName:    item.ProductName,
		ProductImage:   item.ProductImage,
		UnitPrice:      item.UnitPrice,
		Qty:            item.Qty,
		LineTotal:      item.LineTotal,
		Status:         item.Status,
		TrackingNumber: item.TrackingNumber,
	}
}

// OrdersList returns the customer's orders, newest first, cursor paginated.
func OrdersList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		customerID, err := actorIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), customerID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := orderListResponse{Items: []orderResponse{}, Cursor: page.NextCursor}
		for i := range page.Items {
			resp.Items = append(resp.Items, newOrderResponse(&page.Items[i]))
		}

		responses.WriteSuccess(w, resp)
	}
}

// OrderDetail returns one order with its items.
func OrderDetail(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		customerID, err := actorIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), customerID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// OrderCancel cancels a pending order and restocks its items.
func OrderCancel(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		customerID, err := actorIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Cancel(r.Context(), customerID, orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}
