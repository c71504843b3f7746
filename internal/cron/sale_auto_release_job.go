package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/vendibook/vendibook-backend/pkg/db/models"
	"github.com/vendibook/vendibook-backend/pkg/metrics"
)

// SaleAutoReleaseJobName is also the HTTP trigger path.
const SaleAutoReleaseJobName = "auto-release-sale-payouts"

const defaultAutoReleaseDays = 25

// NewSaleAutoReleaseJob builds the job that completes unconfirmed sales after
// the release window and pays their sellers.
func NewSaleAutoReleaseJob(params SettlementParams, releaseDays int) (Settler, error) {
	if err := params.validate(false, true); err != nil {
		return nil, err
	}
	if releaseDays <= 0 {
		releaseDays = defaultAutoReleaseDays
	}
	return &saleAutoReleaseJob{
		payer:  &salePayer{SettlementParams: params, job: SaleAutoReleaseJobName, now: time.Now},
		window: time.Duration(releaseDays) * 24 * time.Hour,
	}, nil
}

type saleAutoReleaseJob struct {
	payer  *salePayer
	window time.Duration
}

func (j *saleAutoReleaseJob) Name() string { return SaleAutoReleaseJobName }

func (j *saleAutoReleaseJob) Run(ctx context.Context) error {
	report, err := j.Settle(ctx)
	if err != nil {
		return err
	}
	return report.Err()
}

func (j *saleAutoReleaseJob) Settle(ctx context.Context) (*Report, error) {
	p := j.payer
	cutoff := p.now().UTC().Add(-j.window)
	rows, err := p.Sales.ListAutoReleasable(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query auto-releasable sales: %w", err)
	}
	report := newReport(j.Name())
	if len(rows) == 0 {
		return report, nil
	}
	b, err := readBudget(ctx, p.Gateway, p.Currency)
	if err != nil {
		return nil, err
	}
	for _, sale := range rows {
		row, rowErr := j.release(ctx, sale, b)
		report.add(row, rowErr)
	}
	b.report(report)

	logCtx := p.Logger.WithFields(ctx, map[string]any{
		"processed": report.Processed,
		"paid":      report.Paid,
		"deferred":  report.Deferred,
		"cutoff":    cutoff.Format(time.RFC3339),
	})
	p.Logger.Info(logCtx, "sale auto-release loop complete")
	return report, nil
}

func (j *saleAutoReleaseJob) release(ctx context.Context, sale models.SaleTransaction, b *budget) (RowResult, error) {
	p := j.payer
	ctx = p.Logger.WithEntity(ctx, "sale", sale.ID.String())
	cents := sellerPayoutCents(sale)
	row := RowResult{ID: sale.ID, AmountCents: cents}

	if cents <= 0 {
		return j.completePending(ctx, sale, row, msgInvalidPayout)
	}
	if !b.fits(cents) {
		return j.completePending(ctx, sale, row, msgInsufficientBalance)
	}
	seller, err := p.Payees.Account(ctx, sale.SellerID)
	if err != nil {
		row.Outcome = metrics.OutcomeFailed
		row.Message = reasonFor(err)
		return p.finish(ctx, row, err)
	}
	if !seller.Payable {
		return j.completePending(ctx, sale, row, msgSellerNotPayable)
	}

	row, err = p.transfer(ctx, sale, seller, cents, b)
	if err != nil {
		// The sale still completes so the retry job owns the payout from here.
		if _, markErr := p.Sales.CompleteWithMessage(ctx, sale.ID, row.Message); markErr != nil {
			p.Logger.Warn(ctx, "failed to record payout failure: "+markErr.Error())
		}
		return p.finish(ctx, row, err)
	}
	p.Notifier.Dispatch(ctx, saleCompletedNotices(sale, row)...)
	return p.finish(ctx, row, nil)
}

func (j *saleAutoReleaseJob) completePending(ctx context.Context, sale models.SaleTransaction, row RowResult, message string) (RowResult, error) {
	p := j.payer
	row.Outcome = metrics.OutcomeDeferred
	row.Message = message
	completed, err := p.Sales.CompleteWithMessage(ctx, sale.ID, message)
	if err != nil {
		row.Outcome = metrics.OutcomeFailed
		return p.finish(ctx, row, fmt.Errorf("complete sale %s: %w", sale.ID, err))
	}
	if !completed {
		row.Outcome = metrics.OutcomeSkipped
		row.Message = "sale no longer eligible for auto-release"
		return p.finish(ctx, row, nil)
	}
	p.Notifier.Dispatch(ctx, saleCompletedNotices(sale, row)...)
	return p.finish(ctx, row, nil)
}
