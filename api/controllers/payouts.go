package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/vendibook/vendibook-backend/api/responses"
	"github.com/vendibook/vendibook-backend/api/validators"
	"github.com/vendibook/vendibook-backend/internal/payoutoverride"
	"github.com/vendibook/vendibook-backend/pkg/enums"
	pkgerrors "github.com/vendibook/vendibook-backend/pkg/errors"
	"github.com/vendibook/vendibook-backend/pkg/logger"
)

type adminReleasePayoutRequest struct {
	BookingID   uuid.UUID `json:"booking_id" validate:"required"`
	ReleaseType string    `json:"release_type" validate:"required,oneof=payout deposit both"`
	Reason      string    `json:"reason,omitempty"`
}

// AdminReleasePayout lets an admin force a host payout and/or deposit refund.
func AdminReleasePayout(svc payoutoverride.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout override service unavailable"))
			return
		}
		adminID, err := callerIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adminReleasePayoutRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Release(r.Context(), adminID, payoutoverride.ReleaseInput{
			BookingID:   payload.BookingID,
			ReleaseType: enums.ReleaseType(payload.ReleaseType),
			Reason:      validators.SanitizeString(payload.Reason, maxReasonLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
