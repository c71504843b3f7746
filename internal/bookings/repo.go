package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendibook/vendibook-backend/pkg/db/models"
	"github.com/vendibook/vendibook-backend/pkg/enums"
)

// Repository persists booking requests and their payment, payout and refund
// markers. Every state-changing method is a conditional update that reports
// whether the row was still in the expected state.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.BookingRequest, error)
	SaveHold(ctx context.Context, id uuid.UUID, hold HoldUpdate) (bool, error)

	ListEndedForCompletion(ctx context.Context, today time.Time) ([]models.BookingRequest, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) (bool, error)
	ListPendingPayouts(ctx context.Context, now time.Time) ([]models.BookingRequest, error)
	RecordPayout(ctx context.Context, id uuid.UUID, payout PayoutRecord) (bool, error)
	MarkPayoutPending(ctx context.Context, id uuid.UUID, reason string) error
	IncrementPayoutAttempts(ctx context.Context, id uuid.UUID) error

	MarkRefunded(ctx context.Context, id uuid.UUID, refund RefundRecord) (bool, error)
	MarkDepositRefunded(ctx context.Context, id uuid.UUID, refund DepositRefundRecord) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a bookings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByID returns nil without error when the booking does not exist.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.BookingRequest, error) {
	var booking models.BookingRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &booking, nil
}

// SaveHold stores checkout metadata while the booking is still awaiting payment.
func (r *repository) SaveHold(ctx context.Context, id uuid.UUID, hold HoldUpdate) (bool, error) {
	updates := map[string]any{
		"checkout_session_id": hold.CheckoutSessionID,
		"hold_status":         enums.HoldStatusPending,
		"hold_expires_at":     hold.ExpiresAt,
		"total_price":         hold.TotalPrice,
	}
	if hold.DepositAmount.IsPositive() {
		updates["deposit_amount"] = hold.DepositAmount
	}
	res := r.db.WithContext(ctx).
		Model(&models.BookingRequest{}).
		Where("id = ? AND status = ? AND payment_status = ?", id, enums.BookingStatusPending, enums.PaymentStatusUnpaid).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

// ListEndedForCompletion returns approved, paid bookings whose end date is
// before today.
func (r *repository) ListEndedForCompletion(ctx context.Context, today time.Time) ([]models.BookingRequest, error) {
	var rows []models.BookingRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND payment_status = ? AND end_date < ?", enums.BookingStatusApproved, enums.PaymentStatusPaid, today).
		Order("end_date ASC, created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) MarkCompleted(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.BookingRequest{}).
		Where("id = ? AND status = ? AND payment_status = ?", id, enums.BookingStatusApproved, enums.PaymentStatusPaid).
		Update("status", enums.BookingStatusCompleted)
	return res.RowsAffected > 0, res.Error
}

// ListPendingPayouts returns completed, paid bookings whose payout is still
// owed and not under an admin hold at now, oldest first.
func (r *repository) ListPendingPayouts(ctx context.Context, now time.Time) ([]models.BookingRequest, error) {
	var rows []models.BookingRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND payment_status = ? AND payout_processed = ?", enums.BookingStatusCompleted, enums.PaymentStatusPaid, false).
		Where("payout_hold_until IS NULL OR payout_hold_until <= ?", now).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// RecordPayout flips payout_processed once. It never touches a booking that
// was cancelled or refunded.
func (r *repository) RecordPayout(ctx context.Context, id uuid.UUID, payout PayoutRecord) (bool, error) {
	updates := map[string]any{
		"payout_processed":    true,
		"payout_processed_at": payout.ProcessedAt,
		"payout_transfer_id":  payout.TransferID,
		"payout_hold_until":   nil,
		"payout_hold_reason":  payout.Note,
		"payout_hold_set_by":  payout.SetBy,
	}
	res := r.db.WithContext(ctx).
		Model(&models.BookingRequest{}).
		Where("id = ? AND payout_processed = ?", id, false).
		Where("status <> ? AND payment_status <> ?", enums.BookingStatusCancelled, enums.PaymentStatusRefunded).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

// MarkPayoutPending annotates an owed payout with why it has not been made.
func (r *repository) MarkPayoutPending(ctx context.Context, id uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&models.BookingRequest{}).
		Where("id = ? AND payout_processed = ?", id, false).
		Update("payout_hold_reason", reason).Error
}

func (r *repository) IncrementPayoutAttempts(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.BookingRequest{}).
		Where("id = ?", id).
		UpdateColumn("payout_attempts", gorm.Expr("payout_attempts + ?", 1)).Error
}

// MarkRefunded cancels a paid booking after the processor confirmed a refund.
func (r *repository) MarkRefunded(ctx context.Context, id uuid.UUID, refund RefundRecord) (bool, error) {
	updates := map[string]any{
		"payment_status":      enums.PaymentStatusRefunded,
		"status":              enums.BookingStatusCancelled,
		"refund_id":           refund.RefundID,
		"refunded_at":         refund.RefundedAt,
		"cancelled_by":        string(refund.InitiatedBy),
		"cancellation_reason": refund.CancellationReason,
	}
	res := r.db.WithContext(ctx).
		Model(&models.BookingRequest{}).
		Where("id = ? AND payment_status = ?", id, enums.PaymentStatusPaid).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

// MarkDepositRefunded moves a charged deposit to refunded.
func (r *repository) MarkDepositRefunded(ctx context.Context, id uuid.UUID, refund DepositRefundRecord) (bool, error) {
	updates := map[string]any{
		"deposit_status":       enums.DepositStatusRefunded,
		"deposit_refunded_at":  refund.RefundedAt,
		"deposit_refund_notes": refund.Notes,
	}
	res := r.db.WithContext(ctx).
		Model(&models.BookingRequest{}).
		Where("id = ? AND deposit_status = ?", id, enums.DepositStatusCharged).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}
