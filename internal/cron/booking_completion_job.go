package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/vendibook/vendibook-backend/internal/notifications"
	"github.com/vendibook/vendibook-backend/pkg/db/models"
	"github.com/vendibook/vendibook-backend/pkg/enums"
	"github.com/vendibook/vendibook-backend/pkg/metrics"
)

// BookingCompletionJobName is also the HTTP trigger path.
const BookingCompletionJobName = "complete-ended-bookings"

// NewBookingCompletionJob builds the job that completes ended bookings and
// pays their hosts.
func NewBookingCompletionJob(params SettlementParams) (Settler, error) {
	if err := params.validate(true, false); err != nil {
		return nil, err
	}
	return &bookingCompletionJob{
		settler: &rentalSettler{SettlementParams: params, job: BookingCompletionJobName, now: time.Now},
	}, nil
}

type bookingCompletionJob struct {
	settler *rentalSettler
}

func (j *bookingCompletionJob) Name() string { return BookingCompletionJobName }

func (j *bookingCompletionJob) Run(ctx context.Context) error {
	report, err := j.Settle(ctx)
	if err != nil {
		return err
	}
	return report.Err()
}

func (j *bookingCompletionJob) Settle(ctx context.Context) (*Report, error) {
	s := j.settler
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	rows, err := s.Bookings.ListEndedForCompletion(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("query ended bookings: %w", err)
	}
	report := newReport(j.Name())
	if len(rows) == 0 {
		return report, nil
	}
	// Completion does not depend on the processor, so an unreadable balance
	// only defers the payouts to the rental retry job.
	b, err := readBudget(ctx, s.Gateway, s.Currency)
	if err != nil {
		s.Logger.Error(ctx, "platform balance unavailable; completing bookings without payout", err)
		report.fail(err)
		b = unavailableBudget(err)
	}

	for _, booking := range rows {
		row, rowErr := j.complete(ctx, booking, b)
		report.add(row, rowErr)
	}
	b.report(report)

	logCtx := s.Logger.WithFields(ctx, map[string]any{
		"processed": report.Processed,
		"paid":      report.Paid,
		"deferred":  report.Deferred,
		"failed":    report.Failed,
	})
	s.Logger.Info(logCtx, "booking completion loop complete")
	return report, nil
}

func (j *bookingCompletionJob) complete(ctx context.Context, booking models.BookingRequest, b *budget) (RowResult, error) {
	s := j.settler
	logCtx := s.Logger.WithEntity(ctx, "booking", booking.ID.String())

	completed, err := s.Bookings.MarkCompleted(ctx, booking.ID)
	if err != nil {
		row := RowResult{ID: booking.ID, Outcome: metrics.OutcomeFailed, Message: "complete booking: " + err.Error()}
		return s.finish(logCtx, row, fmt.Errorf("complete booking %s: %w", booking.ID, err))
	}
	if !completed {
		row := RowResult{ID: booking.ID, Outcome: metrics.OutcomeSkipped, Message: "booking no longer eligible for completion"}
		return s.finish(logCtx, row, nil)
	}
	booking.Status = enums.BookingStatusCompleted

	row, err := s.settle(ctx, booking, b)

	notices := []notifications.Notice{{
		UserID:  booking.ShopperID,
		Type:    enums.NotificationTypeBookingCompleted,
		Title:   "Booking completed",
		Message: "Your rental has ended and the booking is now complete. Thanks for booking with Vendibook!",
		Link:    "/bookings/" + booking.ID.String(),
		InApp:   true,
		Email:   true,
	}}
	if row.Outcome == metrics.OutcomeDeferred {
		notices = append(notices, notifications.Notice{
			UserID:  booking.HostID,
			Type:    enums.NotificationTypePayoutPending,
			Title:   "Booking completed, payout pending",
			Message: "Your booking is complete. We could not send your payout yet: " + row.Message,
			Link:    "/host/payouts",
			InApp:   true,
			Email:   true,
		})
	}
	s.Notifier.Dispatch(ctx, notices...)
	return row, err
}
