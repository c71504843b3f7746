package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vendibook/vendibook-backend/internal/bookings"
	"github.com/vendibook/vendibook-backend/internal/fees"
	"github.com/vendibook/vendibook-backend/internal/ledger"
	"github.com/vendibook/vendibook-backend/internal/notifications"
	"github.com/vendibook/vendibook-backend/internal/payees"
	"github.com/vendibook/vendibook-backend/internal/sales"
	"github.com/vendibook/vendibook-backend/pkg/db/models"
	"github.com/vendibook/vendibook-backend/pkg/enums"
	pkgerrors "github.com/vendibook/vendibook-backend/pkg/errors"
	"github.com/vendibook/vendibook-backend/pkg/logger"
	"github.com/vendibook/vendibook-backend/pkg/metrics"
	"github.com/vendibook/vendibook-backend/pkg/stripe"
)

// Settler is a job whose run summary is also served over HTTP.
type Settler interface {
	Job
	Settle(ctx context.Context) (*Report, error)
}

// PayoutGateway moves platform balance to payees.
type PayoutGateway interface {
	CreateTransfer(ctx context.Context, in stripe.TransferInput) (*stripe.Transfer, error)
	AvailableBalance(ctx context.Context, currency string) (int64, error)
}

// Notifier queues best-effort notices.
type Notifier interface {
	Dispatch(ctx context.Context, notices ...notifications.Notice)
}

// SettlementParams are the collaborators shared by the settlement jobs.
type SettlementParams struct {
	Logger     *logger.Logger
	Bookings   bookings.Repository
	Sales      sales.Repository
	Payees     payees.Service
	Gateway    PayoutGateway
	Calculator *fees.Calculator
	Ledger     ledger.Service
	Notifier   Notifier
	Metrics    *metrics.SettlementMetrics
	Currency   string
}

func (p SettlementParams) validate(needBookings, needSales bool) error {
	if p.Logger == nil {
		return fmt.Errorf("logger required")
	}
	if needBookings && p.Bookings == nil {
		return fmt.Errorf("bookings repository required")
	}
	if needSales && p.Sales == nil {
		return fmt.Errorf("sales repository required")
	}
	if p.Payees == nil {
		return fmt.Errorf("payees service required")
	}
	if p.Gateway == nil {
		return fmt.Errorf("payout gateway required")
	}
	if needBookings && p.Calculator == nil {
		return fmt.Errorf("fee calculator required")
	}
	if p.Ledger == nil {
		return fmt.Errorf("ledger service required")
	}
	if p.Notifier == nil {
		return fmt.Errorf("notifier required")
	}
	return nil
}

// budget is the processor balance read once per run and drawn down locally as
// transfers succeed.
type budget struct {
	available int64
	remaining int64
	// unavailable is set when the balance could not be read; nothing fits.
	unavailable error
}

func newBudget(available int64) *budget {
	return &budget{available: available, remaining: available}
}

func unavailableBudget(err error) *budget {
	return &budget{unavailable: err}
}

func (b *budget) fits(cents int64) bool {
	return b.unavailable == nil && cents <= b.remaining
}

func (b *budget) spend(cents int64) {
	b.remaining -= cents
}

// exhaust drops the remaining balance after the processor reports it short,
// so later rows in the run defer instead of calling the processor again.
func (b *budget) exhaust() {
	b.remaining = 0
}

func (b *budget) report(r *Report) {
	r.AvailableBalanceCents = b.available
	r.RemainingBalanceCents = b.remaining
}

func readBudget(ctx context.Context, gateway PayoutGateway, currency string) (*budget, error) {
	available, err := gateway.AvailableBalance(ctx, currency)
	if err != nil {
		return nil, fmt.Errorf("read platform balance: %w", err)
	}
	return newBudget(available), nil
}

// rentalSettler pays the host of one completed booking. It is shared by the
// completion job and the rental payout retry job.
type rentalSettler struct {
	SettlementParams
	job string
	now func() time.Time
}

func (s *rentalSettler) settle(ctx context.Context, booking models.BookingRequest, b *budget) (RowResult, error) {
	row := RowResult{ID: booking.ID}
	ctx = s.Logger.WithEntity(ctx, "booking", booking.ID.String())

	if booking.PayoutProcessed {
		row.Outcome = metrics.OutcomeSkipped
		row.Message = "payout already processed"
		return s.finish(ctx, row, nil)
	}
	if booking.PayoutHeld(s.now()) {
		row.Outcome = metrics.OutcomeSkipped
		row.Message = fmt.Sprintf("payout on hold until %s", booking.PayoutHoldUntil.UTC().Format(time.RFC3339))
		return s.finish(ctx, row, nil)
	}

	payout, err := s.Calculator.SettlementPayout(booking.TotalPrice)
	if err != nil {
		return s.deferPayout(ctx, row, booking, "payout pending: "+reasonFor(err), err)
	}
	row.AmountCents = payout.PayoutCents

	host, err := s.Payees.Account(ctx, booking.HostID)
	if err != nil {
		row.Outcome = metrics.OutcomeFailed
		row.Message = reasonFor(err)
		return s.finish(ctx, row, err)
	}
	if !host.Payable {
		return s.deferPayout(ctx, row, booking, "payout pending: host has not completed payout onboarding", nil)
	}
	if b.unavailable != nil {
		return s.deferPayout(ctx, row, booking, "payout pending: platform balance unavailable", nil)
	}
	if !b.fits(payout.PayoutCents) {
		return s.deferPayout(ctx, row, booking, "payout pending: insufficient platform balance", nil)
	}

	bookingID := booking.ID.String()
	transfer, err := s.Gateway.CreateTransfer(ctx,
		stripe.HostPayoutTransfer(bookingID, booking.PayoutAttempts, payout.PayoutCents, s.Currency, host.AccountID))
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeInsufficientBalance) {
			b.exhaust()
		}
		if stripe.Definitive(err) {
			if incErr := s.Bookings.IncrementPayoutAttempts(ctx, booking.ID); incErr != nil {
				s.Logger.Warn(ctx, "failed to bump payout attempts: "+incErr.Error())
			}
		}
		row.Outcome = metrics.OutcomeFailed
		row.Message = "payout failed: " + reasonFor(err)
		if markErr := s.Bookings.MarkPayoutPending(ctx, booking.ID, row.Message); markErr != nil {
			s.Logger.Warn(ctx, "failed to record payout failure: "+markErr.Error())
		}
		return s.finish(ctx, row, fmt.Errorf("booking %s: %w", bookingID, err))
	}

	b.spend(payout.PayoutCents)
	row.Outcome = metrics.OutcomePaid
	row.TransferID = transfer.ID
	ctx = s.Logger.WithField(ctx, "transfer_id", transfer.ID)

	updated, err := s.Bookings.RecordPayout(ctx, booking.ID, bookings.PayoutRecord{
		TransferID:  transfer.ID,
		ProcessedAt: s.now().UTC(),
	})
	switch {
	case err != nil:
		s.Logger.Warn(ctx, "payout transferred but booking update failed; manual reconciliation required: "+err.Error())
	case !updated:
		s.Logger.Warn(ctx, "payout transferred but booking was no longer eligible; manual reconciliation required")
	}

	recordLedger(ctx, s.SettlementParams, enums.EntityTypeBookingRequest, booking.ID, enums.LedgerEventTypeHostPayout, payout.PayoutCents, transfer.ID, s.job)
	s.Notifier.Dispatch(ctx, notifications.Notice{
		UserID:  booking.HostID,
		Type:    enums.NotificationTypePayoutSent,
		Title:   "Payout sent",
		Message: fmt.Sprintf("Your payout of %s for a completed booking is on its way.", dollars(payout.PayoutCents)),
		Link:    "/host/bookings/" + bookingID,
		InApp:   true,
		Email:   true,
		Push:    true,
	})
	return s.finish(ctx, row, nil)
}

// deferPayout records why an owed payout was not made so the retry job and admins
// can see it.
func (s *rentalSettler) deferPayout(ctx context.Context, row RowResult, booking models.BookingRequest, reason string, cause error) (RowResult, error) {
	row.Outcome = metrics.OutcomeDeferred
	row.Message = reason
	if err := s.Bookings.MarkPayoutPending(ctx, booking.ID, reason); err != nil {
		s.Logger.Warn(ctx, "failed to record pending payout: "+err.Error())
	}
	return s.finish(ctx, row, cause)
}

func (s *rentalSettler) finish(ctx context.Context, row RowResult, err error) (RowResult, error) {
	s.Metrics.Record(s.job, row.Outcome, row.AmountCents)
	logRow(ctx, s.Logger, row)
	return row, err
}

func logRow(ctx context.Context, logg *logger.Logger, row RowResult) {
	ctx = logg.WithFields(ctx, map[string]any{
		"outcome":      row.Outcome,
		"amount_cents": row.AmountCents,
	})
	switch row.Outcome {
	case metrics.OutcomePaid:
		logg.Info(ctx, "payout transferred")
	case metrics.OutcomeFailed:
		logg.Warn(ctx, row.Message)
	default:
		logg.Info(ctx, row.Message)
	}
}

func recordLedger(ctx context.Context, p SettlementParams, entity enums.EntityType, id uuid.UUID, eventType enums.LedgerEventType, cents int64, ref, job string) {
	metadata, _ := json.Marshal(map[string]string{"job": job})
	if _, err := p.Ledger.RecordEvent(ctx, ledger.RecordLedgerEventInput{
		EntityType:   entity,
		EntityID:     id,
		Type:         eventType,
		AmountCents:  cents,
		Currency:     p.Currency,
		ProcessorRef: ref,
		Metadata:     metadata,
	}); err != nil {
		p.Logger.Warn(ctx, "failed to record ledger event: "+err.Error())
	}
}

// reasonFor returns the public message of typed errors so provider messages
// reach the row annotation unchanged.
func reasonFor(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Message()
	}
	return err.Error()
}

func dollars(cents int64) string {
	return "$" + fees.FromCents(cents).StringFixed(2)
}
