package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/vendibook/vendibook-backend/internal/fees"
	"github.com/vendibook/vendibook-backend/internal/notifications"
	"github.com/vendibook/vendibook-backend/internal/payees"
	"github.com/vendibook/vendibook-backend/pkg/db/models"
	"github.com/vendibook/vendibook-backend/pkg/enums"
	pkgerrors "github.com/vendibook/vendibook-backend/pkg/errors"
	"github.com/vendibook/vendibook-backend/pkg/metrics"
	"github.com/vendibook/vendibook-backend/pkg/stripe"
)

const (
	msgSellerNotPayable    = "Payout pending: seller has not completed payout onboarding."
	msgInsufficientBalance = "Payout pending: insufficient platform balance."
	msgInvalidPayout       = "Payout pending: seller payout amount is not positive."
)

// salePayer transfers seller payouts for sale transactions.
type salePayer struct {
	SettlementParams
	job string
	now func() time.Time
}

// transfer sends the seller payout and records it. A nil error means the
// money moved; later bookkeeping failures are only logged.
func (p *salePayer) transfer(ctx context.Context, sale models.SaleTransaction, seller *payees.Payee, cents int64, b *budget) (RowResult, error) {
	row := RowResult{ID: sale.ID, AmountCents: cents}
	saleID := sale.ID.String()
	transfer, err := p.Gateway.CreateTransfer(ctx,
		stripe.SellerPayoutTransfer(saleID, sale.PayoutAttempts, cents, p.Currency, seller.AccountID))
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeInsufficientBalance) {
			b.exhaust()
		}
		if stripe.Definitive(err) {
			if incErr := p.Sales.IncrementPayoutAttempts(ctx, sale.ID); incErr != nil {
				p.Logger.Warn(ctx, "failed to bump payout attempts: "+incErr.Error())
			}
		}
		row.Outcome = metrics.OutcomeFailed
		row.Message = "Payout failed: " + reasonFor(err)
		return row, fmt.Errorf("sale %s: %w", saleID, err)
	}

	b.spend(cents)
	row.Outcome = metrics.OutcomePaid
	row.TransferID = transfer.ID
	ctx = p.Logger.WithField(ctx, "transfer_id", transfer.ID)

	updated, err := p.Sales.RecordPayout(ctx, sale.ID, transfer.ID, p.now().UTC())
	switch {
	case err != nil:
		p.Logger.Warn(ctx, "payout transferred but sale update failed; manual reconciliation required: "+err.Error())
	case !updated:
		p.Logger.Warn(ctx, "payout transferred but sale was already paid out; manual reconciliation required")
	}
	recordLedger(ctx, p.SettlementParams, enums.EntityTypeSaleTransaction, sale.ID, enums.LedgerEventTypeSellerPayout, cents, transfer.ID, p.job)
	return row, nil
}

func (p *salePayer) finish(ctx context.Context, row RowResult, err error) (RowResult, error) {
	p.Metrics.Record(p.job, row.Outcome, row.AmountCents)
	logRow(ctx, p.Logger, row)
	return row, err
}

func saleCompletedNotices(sale models.SaleTransaction, row RowResult) []notifications.Notice {
	link := "/sales/" + sale.ID.String()
	buyer := notifications.Notice{
		UserID:  sale.BuyerID,
		Type:    enums.NotificationTypeSaleCompleted,
		Title:   "Purchase completed",
		Message: "Your purchase has been automatically marked complete.",
		Link:    link,
		InApp:   true,
		Email:   true,
	}
	seller := notifications.Notice{
		UserID: sale.SellerID,
		Link:   link,
		InApp:  true,
		Email:  true,
	}
	if row.Outcome == metrics.OutcomePaid {
		seller.Type = enums.NotificationTypePayoutSent
		seller.Title = "Sale completed, payout sent"
		seller.Message = fmt.Sprintf("Your sale is complete and a payout of %s is on its way.", dollars(row.AmountCents))
		seller.Push = true
	} else {
		seller.Type = enums.NotificationTypePayoutPending
		seller.Title = "Sale completed, payout pending"
		seller.Message = "Your sale is complete. " + row.Message
	}
	return []notifications.Notice{buyer, seller}
}

func sellerPayoutCents(sale models.SaleTransaction) int64 {
	return fees.ToCents(sale.SellerPayout)
}
