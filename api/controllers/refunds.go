package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendibook/vendibook-backend/api/responses"
	"github.com/vendibook/vendibook-backend/api/validators"
	"github.com/vendibook/vendibook-backend/internal/refunds"
	"github.com/vendibook/vendibook-backend/pkg/enums"
	pkgerrors "github.com/vendibook/vendibook-backend/pkg/errors"
	"github.com/vendibook/vendibook-backend/pkg/logger"
)

const maxReasonLength = 500

type processRefundRequest struct {
	BookingID          uuid.UUID        `json:"booking_id" validate:"required"`
	Reason             string           `json:"reason,omitempty" validate:"omitempty,oneof=duplicate fraudulent requested_by_customer"`
	RefundAmount       *decimal.Decimal `json:"refund_amount,omitempty" validate:"omitempty,money"`
	InitiatedBy        string           `json:"initiated_by" validate:"required,oneof=shopper host admin"`
	CancellationReason string           `json:"cancellation_reason,omitempty"`
}

// ProcessRefund refunds a booking's captured payment and cancels it.
func ProcessRefund(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refund service unavailable"))
			return
		}
		callerID, err := callerIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload processRefundRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ProcessRefund(r.Context(), callerID, refunds.ProcessRefundInput{
			BookingID:          payload.BookingID,
			Reason:             enums.RefundReason(payload.Reason),
			RefundAmount:       payload.RefundAmount,
			InitiatedBy:        enums.RefundInitiator(payload.InitiatedBy),
			CancellationReason: validators.SanitizeString(payload.CancellationReason, maxReasonLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
