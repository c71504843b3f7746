package cron

import (
	"context"
	"fmt"
	"time"
)

// RentalPayoutRetryJobName is also the HTTP trigger path.
const RentalPayoutRetryJobName = "retry-pending-rental-payouts"

// NewRentalPayoutRetryJob builds the job that retries owed host payouts on
// completed bookings, oldest first.
func NewRentalPayoutRetryJob(params SettlementParams) (Settler, error) {
	if err := params.validate(true, false); err != nil {
		return nil, err
	}
	return &rentalPayoutRetryJob{
		settler: &rentalSettler{SettlementParams: params, job: RentalPayoutRetryJobName, now: time.Now},
	}, nil
}

type rentalPayoutRetryJob struct {
	settler *rentalSettler
}

func (j *rentalPayoutRetryJob) Name() string { return RentalPayoutRetryJobName }

func (j *rentalPayoutRetryJob) Run(ctx context.Context) error {
	report, err := j.Settle(ctx)
	if err != nil {
		return err
	}
	return report.Err()
}

func (j *rentalPayoutRetryJob) Settle(ctx context.Context) (*Report, error) {
	s := j.settler
	rows, err := s.Bookings.ListPendingPayouts(ctx, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("query pending rental payouts: %w", err)
	}
	report := newReport(j.Name())
	if len(rows) == 0 {
		return report, nil
	}
	b, err := readBudget(ctx, s.Gateway, s.Currency)
	if err != nil {
		return nil, err
	}
	for _, booking := range rows {
		row, rowErr := s.settle(ctx, booking, b)
		report.add(row, rowErr)
	}
	b.report(report)

	logCtx := s.Logger.WithFields(ctx, map[string]any{"processed": report.Processed, "paid": report.Paid})
	s.Logger.Info(logCtx, "rental payout retry loop complete")
	return report, nil
}
