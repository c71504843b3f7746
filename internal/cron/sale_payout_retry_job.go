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

// SalePayoutRetryJobName is also the HTTP trigger path.
const SalePayoutRetryJobName = "retry-pending-payouts"

// NewSalePayoutRetryJob builds the job that retries owed seller payouts on
// completed sales, oldest first.
func NewSalePayoutRetryJob(params SettlementParams) (Settler, error) {
	if err := params.validate(false, true); err != nil {
		return nil, err
	}
	return &salePayoutRetryJob{
		payer: &salePayer{SettlementParams: params, job: SalePayoutRetryJobName, now: time.Now},
	}, nil
}

type salePayoutRetryJob struct {
	payer *salePayer
}

func (j *salePayoutRetryJob) Name() string { return SalePayoutRetryJobName }

func (j *salePayoutRetryJob) Run(ctx context.Context) error {
	report, err := j.Settle(ctx)
	if err != nil {
		return err
	}
	return report.Err()
}

func (j *salePayoutRetryJob) Settle(ctx context.Context) (*Report, error) {
	p := j.payer
	rows, err := p.Sales.ListPendingPayouts(ctx)
	if err != nil {
		return nil, fmt.Errorf("query pending sale payouts: %w", err)
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
		row, rowErr := j.retry(ctx, sale, b)
		report.add(row, rowErr)
	}
	b.report(report)

	logCtx := p.Logger.WithFields(ctx, map[string]any{
		"processed": report.Processed,
		"paid":      report.Paid,
		"skipped":   report.Skipped,
	})
	p.Logger.Info(logCtx, "sale payout retry loop complete")
	return report, nil
}

// retry keeps scanning past rows that do not fit the remaining balance so a
// smaller payout later in the queue can still be paid.
func (j *salePayoutRetryJob) retry(ctx context.Context, sale models.SaleTransaction, b *budget) (RowResult, error) {
	p := j.payer
	ctx = p.Logger.WithEntity(ctx, "sale", sale.ID.String())
	cents := sellerPayoutCents(sale)
	row := RowResult{ID: sale.ID, AmountCents: cents}

	if cents <= 0 {
		return j.annotate(ctx, sale, row, metrics.OutcomeDeferred, msgInvalidPayout, nil)
	}
	if !b.fits(cents) {
		row.Outcome = metrics.OutcomeSkipped
		row.Message = "insufficient platform balance for this payout"
		return p.finish(ctx, row, nil)
	}
	seller, err := p.Payees.Account(ctx, sale.SellerID)
	if err != nil {
		row.Outcome = metrics.OutcomeFailed
		row.Message = reasonFor(err)
		return p.finish(ctx, row, err)
	}
	if !seller.Payable {
		return j.annotate(ctx, sale, row, metrics.OutcomeDeferred, msgSellerNotPayable, nil)
	}

	row, err = p.transfer(ctx, sale, seller, cents, b)
	if err != nil {
		return j.annotate(ctx, sale, row, metrics.OutcomeFailed, row.Message, err)
	}
	p.Notifier.Dispatch(ctx, notifications.Notice{
		UserID:  sale.SellerID,
		Type:    enums.NotificationTypePayoutSent,
		Title:   "Payout sent",
		Message: fmt.Sprintf("Your pending payout of %s has been sent.", dollars(cents)),
		Link:    "/sales/" + sale.ID.String(),
		InApp:   true,
		Email:   true,
		Push:    true,
	})
	return p.finish(ctx, row, nil)
}

func (j *salePayoutRetryJob) annotate(ctx context.Context, sale models.SaleTransaction, row RowResult, outcome, message string, cause error) (RowResult, error) {
	p := j.payer
	row.Outcome = outcome
	row.Message = message
	if err := p.Sales.UpdateMessage(ctx, sale.ID, message); err != nil {
		p.Logger.Warn(ctx, "failed to update sale message: "+err.Error())
	}
	return p.finish(ctx, row, cause)
}
