package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/vendora-market/vendora-backend/api/responses"
	"github.com/vendora-market/vendora-backend/api/validators"
	checkoutsvc "github.com/vendora-market/vendora-backend/internal/checkout"
	pkgerrors "github.com/vendora-market/vendora-backend/pkg/errors"
	"github.com/vendora-market/vendora-backend/pkg/logger"
)

type checkoutRequest struct {
	AddressID uuid.UUID `json:"address_id" validate:"required"`
}

// CheckoutCreate converts the customer's cart into a pending order.
func CheckoutCreate(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		customerID, err := actorIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Checkout(r.Context(), checkoutsvc.Input{
			CustomerID: customerID,
			AddressID:  payload.AddressID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
