package bookings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendibook/vendibook-backend/internal/fees"
	"github.com/vendibook/vendibook-backend/pkg/enums"
)

// HoldUpdate is the checkout metadata stored when a hold is created.
type HoldUpdate struct {
	CheckoutSessionID string
	ExpiresAt         time.Time
	TotalPrice        decimal.Decimal
	DepositAmount     decimal.Decimal
}

// PayoutRecord marks a booking payout as made. Note and SetBy are populated for
// admin releases.
type PayoutRecord struct {
	TransferID  string
	ProcessedAt time.Time
	Note        *string
	SetBy       *uuid.UUID
}

// RefundRecord captures the processor refund that cancelled a booking.
type RefundRecord struct {
	RefundID           string
	RefundedAt         time.Time
	InitiatedBy        enums.RefundInitiator
	CancellationReason *string
}

// DepositRefundRecord captures a deposit refund.
type DepositRefundRecord struct {
	RefundedAt time.Time
	Notes      *string
}

// CreateHoldInput is the renter's authorization request. Amounts are dollars.
type CreateHoldInput struct {
	BookingID     uuid.UUID
	ListingID     uuid.UUID
	Amount        decimal.Decimal
	DeliveryFee   decimal.Decimal
	DepositAmount decimal.Decimal
}

// HoldResult is returned to the renter to continue checkout.
type HoldResult struct {
	SessionID     string               `json:"session_id"`
	URL           string               `json:"url"`
	HoldExpiresAt time.Time            `json:"hold_expires_at"`
	Fees          fees.RentalBreakdown `json:"fees"`
}
