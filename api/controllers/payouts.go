package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendora-market/vendora-backend/api/responses"
	payoutsvc "github.com/vendora-market/vendora-backend/internal/payouts"
	"github.com/vendora-market/vendora-backend/pkg/db/models"
	"github.com/vendora-market/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora-market/vendora-backend/pkg/errors"
	"github.com/vendora-market/vendora-backend/pkg/logger"
)

type payoutResponse struct {
	ID             uuid.UUID          `json:"id"`
	OrderID        uuid.UUID          `json:"order_id"`
	VendorID       uuid.UUID          `json:"vendor_id"`
	Amount         decimal.Decimal    `json:"amount"`
	CommissionRate decimal.Decimal    `json:"commission_rate"`
	Commission     decimal.Decimal    `json:"commission"`
	NetAmount      decimal.Decimal    `json:"net_amount"`
	Status         enums.PayoutStatus `json:"status"`
	TransferRef    *string            `json:"transfer_ref,omitempty"`
	FailureReason  *string            `json:"failure_reason,omitempty"`
	ProcessedAt    *time.Time         `json:"processed_at,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

func newPayoutResponse(payout *models.VendorPayout) payoutResponse {
	return payoutResponse{
		ID:             payout.ID,
		OrderID:        payout.OrderID,
		VendorID:       payout.VendorID,
		Amount:         payout.Amount,
		CommissionRate: payout.CommissionRate,
		Commission:     payout.Commission,
		NetAmount:      payout.NetAmount,
		Status:         payout.Status,
		TransferRef:    payout.TransferRef,
		FailureReason:  payout.FailureReason,
		ProcessedAt:    payout.ProcessedAt,
		CreatedAt:      payout.CreatedAt,
	}
}

// AdminPayoutsList returns vendor payouts, optionally filtered by status.
func AdminPayoutsList(svc payoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}

		var status *enums.PayoutStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParsePayoutStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			status = &parsed
		}

		payouts, err := svc.List(r.Context(), status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := []payoutResponse{}
		for i := range payouts {
			resp = append(resp, newPayoutResponse(&payouts[i]))
		}
		responses.WriteSuccess(w, resp)
	}
}

// AdminPayoutProcess executes one pending payout through the transfer gateway.
func AdminPayoutProcess(svc payoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}

		payoutID, err := pathUUID(r, "payoutId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payout, err := svc.Process(r.Context(), payoutID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPayoutResponse(payout))
	}
}
