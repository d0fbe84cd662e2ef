package controllers

import (
	"net/http"

	"github.com/vendora-market/vendora-backend/api/responses"
	"github.com/vendora-market/vendora-backend/api/validators"
	fulfillmentsvc "github.com/vendora-market/vendora-backend/internal/fulfillment"
	"github.com/vendora-market/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora-market/vendora-backend/pkg/errors"
	"github.com/vendora-market/vendora-backend/pkg/logger"
)

type advanceItemRequest struct {
	Status         string  `json:"status" validate:"required,oneof=processing shipped delivered"`
	TrackingNumber *string `json:"tracking_number,omitempty"`
}

// VendorItemsList returns every order item assigned to the vendor.
func VendorItemsList(svc fulfillmentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		vendorID, err := actorIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListItems(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := []orderItemResponse{}
		for _, item := range items {
			resp = append(resp, newOrderItemResponse(item))
		}
		responses.WriteSuccess(w, resp)
	}
}

// VendorAdvanceItem moves one of the vendor's items a single fulfillment
// step forward and rolls the parent order's status up.
func VendorAdvanceItem(svc fulfillmentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		vendorID, err := actorIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload advanceItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := enums.ParseOrderItemStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target status"))
			return
		}

		item, err := svc.AdvanceItem(r.Context(), fulfillmentsvc.AdvanceInput{
			VendorID:       vendorID,
			ItemID:         itemID,
			Target:         target,
			TrackingNumber: payload.TrackingNumber,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderItemResponse(*item))
	}
}
