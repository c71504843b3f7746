package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendibook/vendibook-backend/api/responses"
	"github.com/vendibook/vendibook-backend/api/validators"
	"github.com/vendibook/vendibook-backend/internal/bookings"
	pkgerrors "github.com/vendibook/vendibook-backend/pkg/errors"
	"github.com/vendibook/vendibook-backend/pkg/logger"
)

type createBookingHoldRequest struct {
	BookingID     uuid.UUID        `json:"booking_id" validate:"required"`
	ListingID     uuid.UUID        `json:"listing_id" validate:"required"`
	Amount        decimal.Decimal  `json:"amount" validate:"money"`
	DeliveryFee   *decimal.Decimal `json:"delivery_fee,omitempty" validate:"omitempty,money"`
	DepositAmount *decimal.Decimal `json:"deposit_amount,omitempty" validate:"omitempty,money"`
}

// CreateBookingHold authorizes the renter's payment for a pending booking.
func CreateBookingHold(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "booking service unavailable"))
			return
		}
		callerID, err := callerIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createBookingHoldRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateHold(r.Context(), callerID, bookings.CreateHoldInput{
			BookingID:     payload.BookingID,
			ListingID:     payload.ListingID,
			Amount:        payload.Amount,
			DeliveryFee:   orZero(payload.DeliveryFee),
			DepositAmount: orZero(payload.DepositAmount),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func orZero(v *decimal.Decimal) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return *v
}
