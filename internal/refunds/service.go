package refunds

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendibook/vendibook-backend/internal/bookings"
	"github.com/vendibook/vendibook-backend/internal/fees"
	"github.com/vendibook/vendibook-backend/internal/ledger"
	"github.com/vendibook/vendibook-backend/internal/notifications"
	"github.com/vendibook/vendibook-backend/pkg/db/models"
	"github.com/vendibook/vendibook-backend/pkg/enums"
	pkgerrors "github.com/vendibook/vendibook-backend/pkg/errors"
	"github.com/vendibook/vendibook-backend/pkg/logger"
	"github.com/vendibook/vendibook-backend/pkg/stripe"
)

// RefundCreator issues processor refunds.
type RefundCreator interface {
	CreateRefund(ctx context.Context, in stripe.RefundInput) (*stripe.Refund, error)
}

// AdminChecker resolves the admin role.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Notifier queues best-effort notices.
type Notifier interface {
	Dispatch(ctx context.Context, notices ...notifications.Notice)
}

// Service refunds paid bookings and cancels them.
type Service interface {
	ProcessRefund(ctx context.Context, callerID uuid.UUID, input ProcessRefundInput) (*RefundResult, error)
}

// ProcessRefundInput describes a refund request. A nil RefundAmount refunds
// the full captured amount.
type ProcessRefundInput struct {
	BookingID          uuid.UUID
	Reason             enums.RefundReason
	RefundAmount       *decimal.Decimal
	InitiatedBy        enums.RefundInitiator
	CancellationReason string
}

// RefundResult reports the processor refund and the resulting booking state.
type RefundResult struct {
	RefundID      string              `json:"refund_id"`
	RefundStatus  string              `json:"refund_status"`
	AmountCents   int64               `json:"amount_cents"`
	Amount        decimal.Decimal     `json:"amount"`
	BookingStatus enums.BookingStatus `json:"booking_status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
}

// ServiceParams wires the refund service.
type ServiceParams struct {
	Bookings bookings.Repository
	Admins   AdminChecker
	Refunds  RefundCreator
	Ledger   ledger.Service
	Notifier Notifier
	Logger   *logger.Logger
}

type service struct {
	bookings bookings.Repository
	admins   AdminChecker
	refunds  RefundCreator
	ledger   ledger.Service
	notifier Notifier
	logg     *logger.Logger
	now      func() time.Time
}

// NewService validates dependencies and returns the refund service.
func NewService(params ServiceParams) (Service, error) {
	if params.Bookings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "bookings repository required")
	}
	if params.Admins == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "admin checker required")
	}
	if params.Refunds == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "refund client required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ledger service required")
	}
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		bookings: params.Bookings,
		admins:   params.Admins,
		refunds:  params.Refunds,
		ledger:   params.Ledger,
		notifier: params.Notifier,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

func (s *service) ProcessRefund(ctx context.Context, callerID uuid.UUID, input ProcessRefundInput) (*RefundResult, error) {
	if callerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	booking, err := s.bookings.FindByID(ctx, input.BookingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	if booking == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	if err := s.authorize(ctx, callerID, booking); err != nil {
		return nil, err
	}
	if !booking.PaymentStatus.CanTransitionTo(enums.PaymentStatusRefunded) || booking.PaymentIntentID == nil || strings.TrimSpace(*booking.PaymentIntentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "booking has no captured payment to refund").
			WithDetails(map[string]any{"payment_status": booking.PaymentStatus})
	}
	if booking.PayoutProcessed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "host payout already released for this booking")
	}

	var amountCents int64
	if input.RefundAmount != nil {
		amountCents = fees.ToCents(*input.RefundAmount)
	}
	bookingID := booking.ID.String()
	refund, err := s.refunds.CreateRefund(ctx, stripe.RefundInput{
		PaymentIntentID: *booking.PaymentIntentID,
		AmountCents:     amountCents,
		Reason:          string(input.Reason),
		Metadata:        map[string]string{"booking_id": bookingID},
		IdempotencyKey:  stripe.BookingRefundKey(bookingID, amountCents, string(input.Reason)),
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"booking_id":   bookingID,
		"refund_id":    refund.ID,
		"amount_cents": refund.AmountCents,
	})
	s.persist(logCtx, booking, refund, callerID, input)

	s.notifier.Dispatch(ctx, refundNotices(booking, refund)...)
	s.logg.Info(logCtx, "booking refunded")

	return &RefundResult{
		RefundID:      refund.ID,
		RefundStatus:  refund.Status,
		AmountCents:   refund.AmountCents,
		Amount:        fees.FromCents(refund.AmountCents),
		BookingStatus: enums.BookingStatusCancelled,
		PaymentStatus: enums.PaymentStatusRefunded,
	}, nil
}

// persist records the refund locally. The processor refund already happened,
// so failures are logged for reconciliation and never returned.
func (s *service) persist(ctx context.Context, booking *models.BookingRequest, refund *stripe.Refund, callerID uuid.UUID, input ProcessRefundInput) {
	record := bookings.RefundRecord{
		RefundID:    refund.ID,
		RefundedAt:  s.now().UTC(),
		InitiatedBy: input.InitiatedBy,
	}
	if reason := strings.TrimSpace(input.CancellationReason); reason != "" {
		record.CancellationReason = &reason
	}
	updated, err := s.bookings.MarkRefunded(ctx, booking.ID, record)
	switch {
	case err != nil:
		s.logg.Warn(ctx, "refund issued but booking update failed; manual reconciliation required: "+err.Error())
	case !updated:
		s.logg.Warn(ctx, "refund issued but booking was no longer paid; manual reconciliation required")
	}

	if refund.AmountCents <= 0 {
		return
	}
	metadata, _ := json.Marshal(map[string]string{"reason": string(input.Reason), "initiated_by": string(input.InitiatedBy)})
	actor := callerID
	if _, err := s.ledger.RecordEvent(ctx, ledger.RecordLedgerEventInput{
		EntityType:   enums.EntityTypeBookingRequest,
		EntityID:     booking.ID,
		Type:         enums.LedgerEventTypeRefund,
		AmountCents:  refund.AmountCents,
		ProcessorRef: refund.ID,
		ActorUserID:  &actor,
		Metadata:     metadata,
	}); err != nil {
		s.logg.Warn(ctx, "failed to record refund ledger event: "+err.Error())
	}
}

func (s *service) authorize(ctx context.Context, callerID uuid.UUID, booking *models.BookingRequest) error {
	if callerID == booking.ShopperID || callerID == booking.HostID {
		return nil
	}
	admin, err := s.admins.IsAdmin(ctx, callerID)
	if err != nil {
		return err
	}
	if !admin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not authorized to refund this booking")
	}
	return nil
}

func validateInput(input ProcessRefundInput) error {
	if input.BookingID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "booking_id is required")
	}
	if !input.InitiatedBy.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "initiated_by must be one of shopper, host, admin")
	}
	if input.Reason != "" && !input.Reason.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "reason must be one of duplicate, fraudulent, requested_by_customer")
	}
	if input.RefundAmount != nil && fees.ToCents(*input.RefundAmount) <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "refund_amount must be greater than zero")
	}
	return nil
}

func refundNotices(booking *models.BookingRequest, refund *stripe.Refund) []notifications.Notice {
	amount := "$" + fees.FromCents(refund.AmountCents).StringFixed(2)
	link := "/bookings/" + booking.ID.String()
	return []notifications.Notice{
		{
			UserID:  booking.ShopperID,
			Type:    enums.NotificationTypeRefundProcessed,
			Title:   "Your refund is on its way",
			Message: fmt.Sprintf("A refund of %s has been issued and your booking has been cancelled.", amount),
			Link:    link,
			InApp:   true,
			Email:   true,
		},
		{
			UserID:  booking.HostID,
			Type:    enums.NotificationTypeRefundProcessed,
			Title:   "Booking cancelled and refunded",
			Message: fmt.Sprintf("A refund of %s was issued to the renter and the booking has been cancelled.", amount),
			Link:    link,
			Email:   true,
		},
	}
}
