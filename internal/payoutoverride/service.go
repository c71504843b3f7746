package payoutoverride

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
	"github.com/vendibook/vendibook-backend/internal/payees"
	"github.com/vendibook/vendibook-backend/pkg/db/models"
	"github.com/vendibook/vendibook-backend/pkg/enums"
	pkgerrors "github.com/vendibook/vendibook-backend/pkg/errors"
	"github.com/vendibook/vendibook-backend/pkg/logger"
	"github.com/vendibook/vendibook-backend/pkg/metrics"
	"github.com/vendibook/vendibook-backend/pkg/stripe"
)

const metricsJob = "admin-release-payout"

// Gateway moves money on the processor.
type Gateway interface {
	CreateTransfer(ctx context.Context, in stripe.TransferInput) (*stripe.Transfer, error)
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

// Service force-releases booking payouts and deposits.
type Service interface {
	Release(ctx context.Context, adminID uuid.UUID, input ReleaseInput) (*ReleaseResult, error)
}

// ReleaseInput is an admin release request.
type ReleaseInput struct {
	BookingID   uuid.UUID
	ReleaseType enums.ReleaseType
	Reason      string
}

// PayoutRelease describes a transfer made by this call.
type PayoutRelease struct {
	TransferID  string          `json:"transfer_id"`
	AmountCents int64           `json:"amount_cents"`
	Amount      decimal.Decimal `json:"amount"`
}

// DepositRelease describes a deposit refund made by this call.
type DepositRelease struct {
	RefundID    string          `json:"refund_id"`
	AmountCents int64           `json:"amount_cents"`
	Amount      decimal.Decimal `json:"amount"`
}

// Released lists only the actions that actually moved money.
type Released struct {
	Payout  *PayoutRelease  `json:"payout,omitempty"`
	Deposit *DepositRelease `json:"deposit,omitempty"`
}

// ReleaseResult is the outcome of one admin release.
type ReleaseResult struct {
	BookingID   uuid.UUID         `json:"booking_id"`
	ReleaseType enums.ReleaseType `json:"release_type"`
	NoteID      uuid.UUID         `json:"note_id"`
	Results     Released          `json:"results"`
}

// ServiceParams wires the override service.
type ServiceParams struct {
	Bookings   bookings.Repository
	Notes      NotesRepository
	Admins     AdminChecker
	Payees     payees.Service
	Gateway    Gateway
	Calculator *fees.Calculator
	Ledger     ledger.Service
	Notifier   Notifier
	Metrics    *metrics.SettlementMetrics
	Logger     *logger.Logger
	Currency   string
}

type service struct {
	bookings bookings.Repository
	notes    NotesRepository
	admins   AdminChecker
	payees   payees.Service
	gateway  Gateway
	calc     *fees.Calculator
	ledger   ledger.Service
	notifier Notifier
	metrics  *metrics.SettlementMetrics
	logg     *logger.Logger
	currency string
	now      func() time.Time
}

// NewService validates dependencies and returns the override service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Bookings == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "bookings repository required")
	case params.Notes == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "admin notes repository required")
	case params.Admins == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "admin checker required")
	case params.Payees == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payees service required")
	case params.Gateway == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway required")
	case params.Calculator == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fee calculator required")
	case params.Ledger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ledger service required")
	case params.Notifier == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	case params.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		bookings: params.Bookings,
		notes:    params.Notes,
		admins:   params.Admins,
		payees:   params.Payees,
		gateway:  params.Gateway,
		calc:     params.Calculator,
		ledger:   params.Ledger,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		logg:     params.Logger,
		currency: params.Currency,
		now:      time.Now,
	}, nil
}

// plan is the validated set of actions for one release.
type plan struct {
	booking *models.BookingRequest
	payout  bool
	deposit bool
	host    *payees.Payee
}

func (s *service) Release(ctx context.Context, adminID uuid.UUID, input ReleaseInput) (*ReleaseResult, error) {
	if adminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	admin, err := s.admins.IsAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if input.BookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking_id is required")
	}
	if !input.ReleaseType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "release_type must be one of payout, deposit, both")
	}

	p, err := s.plan(ctx, input)
	if err != nil {
		return nil, err
	}

	note, err := s.appendNote(ctx, adminID, input)
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"booking_id":   input.BookingID.String(),
		"release_type": string(input.ReleaseType),
		"admin_id":     adminID.String(),
	})
	result := &ReleaseResult{BookingID: input.BookingID, ReleaseType: input.ReleaseType, NoteID: note.ID}
	if p.payout {
		release, err := s.releasePayout(logCtx, adminID, input.Reason, p)
		if err != nil {
			return nil, err
		}
		result.Results.Payout = release
	}
	if p.deposit {
		release, err := s.refundDeposit(logCtx, input.Reason, p.booking)
		if err != nil {
			return nil, err
		}
		result.Results.Deposit = release
	}
	s.logg.Info(logCtx, "admin release complete")
	return result, nil
}

// plan validates the booking for the requested release without side effects.
func (s *service) plan(ctx context.Context, input ReleaseInput) (*plan, error) {
	booking, err := s.bookings.FindByID(ctx, input.BookingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	if booking == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	p := &plan{booking: booking}

	if input.ReleaseType.IncludesPayout() && !booking.PayoutProcessed {
		if booking.Status == enums.BookingStatusCancelled || booking.PaymentStatus == enums.PaymentStatusRefunded {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot release a payout for a cancelled or refunded booking")
		}
		if booking.PaymentStatus != enums.PaymentStatusPaid {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "booking has not been paid")
		}
		host, err := s.payees.Account(ctx, booking.HostID)
		if err != nil {
			return nil, err
		}
		if !host.Payable {
			return nil, pkgerrors.New(pkgerrors.CodePayeeNotPayable, "host has not completed payout onboarding").
				WithDetails(map[string]any{"host_id": booking.HostID})
		}
		p.payout = true
		p.host = host
	}

	if input.ReleaseType.IncludesDeposit() && booking.DepositStatus == enums.DepositStatusCharged && booking.Deposit().IsPositive() {
		if depositReference(booking) == "" && paymentIntent(booking) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "deposit has no payment reference to refund")
		}
		p.deposit = true
	}
	return p, nil
}

func (s *service) appendNote(ctx context.Context, adminID uuid.UUID, input ReleaseInput) (*models.AdminNote, error) {
	text := fmt.Sprintf("release_type=%s", input.ReleaseType)
	if reason := strings.TrimSpace(input.Reason); reason != "" {
		text += " reason=" + reason
	}
	note := &models.AdminNote{
		EntityType: enums.EntityTypeBookingRequest,
		EntityID:   input.BookingID,
		CreatedBy:  adminID,
		Note:       text,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record admin note")
	}
	return note, nil
}

func (s *service) releasePayout(ctx context.Context, adminID uuid.UUID, reason string, p *plan) (*PayoutRelease, error) {
	booking := p.booking
	payout, err := s.calc.SettlementPayout(booking.TotalPrice)
	if err != nil {
		return nil, err
	}
	bookingID := booking.ID.String()
	transfer, err := s.gateway.CreateTransfer(ctx,
		stripe.HostPayoutTransfer(bookingID, booking.PayoutAttempts, payout.PayoutCents, s.currency, p.host.AccountID))
	if err != nil {
		if stripe.Definitive(err) {
			if incErr := s.bookings.IncrementPayoutAttempts(ctx, booking.ID); incErr != nil {
				s.logg.Warn(ctx, "failed to bump payout attempts: "+incErr.Error())
			}
		}
		s.metrics.Record(metricsJob, metrics.OutcomeFailed, 0)
		return nil, err
	}

	ctx = s.logg.WithField(ctx, "transfer_id", transfer.ID)
	note := fmt.Sprintf("released by admin %s", adminID)
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		note += ": " + trimmed
	}
	setBy := adminID
	updated, err := s.bookings.RecordPayout(ctx, booking.ID, bookings.PayoutRecord{
		TransferID:  transfer.ID,
		ProcessedAt: s.now().UTC(),
		Note:        &note,
		SetBy:       &setBy,
	})
	switch {
	case err != nil:
		s.logg.Warn(ctx, "payout transferred but booking update failed; manual reconciliation required: "+err.Error())
	case !updated:
		s.logg.Warn(ctx, "payout transferred but booking was no longer eligible; manual reconciliation required")
	}

	s.recordLedger(ctx, booking.ID, enums.LedgerEventTypeHostPayout, payout.PayoutCents, transfer.ID, &setBy)
	s.metrics.Record(metricsJob, metrics.OutcomePaid, payout.PayoutCents)
	s.notifier.Dispatch(ctx, notifications.Notice{
		UserID:  booking.HostID,
		Type:    enums.NotificationTypePayoutReleased,
		Title:   "Payout released",
		Message: fmt.Sprintf("Your payout of $%s has been released.", fees.FromCents(payout.PayoutCents).StringFixed(2)),
		Link:    "/host/bookings/" + bookingID,
		InApp:   true,
		Email:   true,
	})
	s.logg.Info(ctx, "admin payout released")

	return &PayoutRelease{
		TransferID:  transfer.ID,
		AmountCents: payout.PayoutCents,
		Amount:      fees.FromCents(payout.PayoutCents),
	}, nil
}

func (s *service) refundDeposit(ctx context.Context, reason string, booking *models.BookingRequest) (*DepositRelease, error) {
	depositCents := fees.ToCents(booking.Deposit())
	bookingID := booking.ID.String()
	in := stripe.RefundInput{
		ChargeID:        depositReference(booking),
		PaymentIntentID: paymentIntent(booking),
		AmountCents:     depositCents,
		Metadata: map[string]string{
			"booking_id": bookingID,
			"kind":       "deposit",
		},
		IdempotencyKey: fmt.Sprintf("booking:%s:deposit-refund", bookingID),
	}
	refund, err := s.gateway.CreateRefund(ctx, in)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithField(ctx, "refund_id", refund.ID)
	record := bookings.DepositRefundRecord{RefundedAt: s.now().UTC()}
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		record.Notes = &trimmed
	}
	updated, err := s.bookings.MarkDepositRefunded(ctx, booking.ID, record)
	switch {
	case err != nil:
		s.logg.Warn(ctx, "deposit refunded but booking update failed; manual reconciliation required: "+err.Error())
	case !updated:
		s.logg.Warn(ctx, "deposit refunded but booking deposit was no longer charged; manual reconciliation required")
	}

	amount := refund.AmountCents
	if amount <= 0 {
		amount = depositCents
	}
	s.recordLedger(ctx, booking.ID, enums.LedgerEventTypeDepositRefund, amount, refund.ID, nil)
	s.notifier.Dispatch(ctx, notifications.Notice{
		UserID:  booking.ShopperID,
		Type:    enums.NotificationTypeDepositRefunded,
		Title:   "Deposit refunded",
		Message: fmt.Sprintf("Your security deposit of $%s has been refunded.", fees.FromCents(amount).StringFixed(2)),
		Link:    "/bookings/" + bookingID,
		InApp:   true,
		Email:   true,
	})
	s.logg.Info(ctx, "deposit refunded")

	return &DepositRelease{
		RefundID:    refund.ID,
		AmountCents: amount,
		Amount:      fees.FromCents(amount),
	}, nil
}

func (s *service) recordLedger(ctx context.Context, bookingID uuid.UUID, eventType enums.LedgerEventType, cents int64, ref string, actor *uuid.UUID) {
	metadata, _ := json.Marshal(map[string]string{"source": metricsJob})
	if _, err := s.ledger.RecordEvent(ctx, ledger.RecordLedgerEventInput{
		EntityType:   enums.EntityTypeBookingRequest,
		EntityID:     bookingID,
		Type:         eventType,
		AmountCents:  cents,
		Currency:     s.currency,
		ProcessorRef: ref,
		ActorUserID:  actor,
		Metadata:     metadata,
	}); err != nil {
		s.logg.Warn(ctx, "failed to record ledger event: "+err.Error())
	}
}

func depositReference(b *models.BookingRequest) string {
	if b.DepositChargeID == nil {
		return ""
	}
	return strings.TrimSpace(*b.DepositChargeID)
}

func paymentIntent(b *models.BookingRequest) string {
	if b.PaymentIntentID == nil {
		return ""
	}
	return strings.TrimSpace(*b.PaymentIntentID)
}
