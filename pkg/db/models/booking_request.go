package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendibook/vendibook-backend/pkg/enums"
)

// BookingRequest is a rental reservation and the unit the settlement engine
// moves through authorization, completion, payout and refund.
type BookingRequest struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ShopperID uuid.UUID `gorm:"column:shopper_id;type:uuid;not null"`
	HostID    uuid.UUID `gorm:"column:host_id;type:uuid;not null"`
	ListingID uuid.UUID `gorm:"column:listing_id;type:uuid;not null"`

	// Money columns are stored in dollars.
	TotalPrice        decimal.Decimal     `gorm:"column:total_price;type:numeric(12,2);not null"`
	DepositAmount     decimal.NullDecimal `gorm:"column:deposit_amount;type:numeric(12,2)"`
	PaymentIntentID   *string             `gorm:"column:payment_intent_id"`
	CheckoutSessionID *string             `gorm:"column:checkout_session_id"`

	StartDate time.Time `gorm:"column:start_date;type:date;not null"`
	EndDate   time.Time `gorm:"column:end_date;type:date;not null"`

	Status        enums.BookingStatus `gorm:"column:status;type:booking_status;not null;default:'pending'"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'unpaid'"`

	HoldStatus    *enums.HoldStatus `gorm:"column:hold_status;type:hold_status"`
	HoldExpiresAt *time.Time        `gorm:"column:hold_expires_at"`

	PayoutProcessed   bool       `gorm:"column:payout_processed;not null;default:false"`
	PayoutProcessedAt *time.Time `gorm:"column:payout_processed_at"`
	PayoutTransferID  *string    `gorm:"column:payout_transfer_id"`
	PayoutHoldUntil   *time.Time `gorm:"column:payout_hold_until"`
	PayoutHoldReason  *string    `gorm:"column:payout_hold_reason"`
	PayoutHoldSetBy   *uuid.UUID `gorm:"column:payout_hold_set_by;type:uuid"`
	PayoutAttempts    int        `gorm:"column:payout_attempts;not null;default:0"`

	DepositStatus      enums.DepositStatus `gorm:"column:deposit_status;type:deposit_status;not null;default:'none'"`
	DepositChargeID    *string             `gorm:"column:deposit_charge_id"`
	DepositRefundedAt  *time.Time          `gorm:"column:deposit_refunded_at"`
	DepositRefundNotes *string             `gorm:"column:deposit_refund_notes"`

	CancellationReason *string    `gorm:"column:cancellation_reason"`
	CancelledBy        *string    `gorm:"column:cancelled_by"`
	RefundID           *string    `gorm:"column:refund_id"`
	RefundedAt         *time.Time `gorm:"column:refunded_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Deposit returns the deposit in dollars, zero when none was taken.
func (b BookingRequest) Deposit() decimal.Decimal {
	if !b.DepositAmount.Valid {
		return decimal.Zero
	}
	return b.DepositAmount.Decimal
}

// PayoutHeld reports whether an admin hold blocks scheduled payout at now.
func (b BookingRequest) PayoutHeld(now time.Time) bool {
	return b.PayoutHoldUntil != nil && b.PayoutHoldUntil.After(now)
}
