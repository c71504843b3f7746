package cron

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	stripeapi "github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/vendibook/vendibook-backend/internal/bookings"
	"github.com/vendibook/vendibook-backend/internal/fees"
	"github.com/vendibook/vendibook-backend/internal/ledger"
	"github.com/vendibook/vendibook-backend/internal/notifications"
	"github.com/vendibook/vendibook-backend/internal/payees"
	"github.com/vendibook/vendibook-backend/internal/sales"
	"github.com/vendibook/vendibook-backend/pkg/db/dbtest"
	"github.com/vendibook/vendibook-backend/pkg/db/models"
	"github.com/vendibook/vendibook-backend/pkg/enums"
	pkgerrors "github.com/vendibook/vendibook-backend/pkg/errors"
	"github.com/vendibook/vendibook-backend/pkg/logger"
	"github.com/vendibook/vendibook-backend/pkg/stripe"
)

var settleNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fakePayoutGateway struct {
	balance    int64
	balanceErr error
	failFor    map[string]error
	transfers  []stripe.TransferInput
}

func (f *fakePayoutGateway) CreateTransfer(ctx context.Context, in stripe.TransferInput) (*stripe.Transfer, error) {
	f.transfers = append(f.transfers, in)
	if err, ok := f.failFor[in.Destination]; ok {
		return nil, err
	}
	return &stripe.Transfer{ID: "tr_" + in.Metadata["booking_id"] + in.Metadata["sale_id"], AmountCents: in.AmountCents}, nil
}

func (f *fakePayoutGateway) AvailableBalance(ctx context.Context, currency string) (int64, error) {
	return f.balance, f.balanceErr
}

type recordingNotifier struct {
	notices []notifications.Notice
}

func (r *recordingNotifier) Dispatch(ctx context.Context, notices ...notifications.Notice) {
	r.notices = append(r.notices, notices...)
}

func (r *recordingNotifier) ofType(kind enums.NotificationType) []notifications.Notice {
	var out []notifications.Notice
	for _, n := range r.notices {
		if n.Type == kind {
			out = append(out, n)
		}
	}
	return out
}

// rejected mimics a processor 400 after translation.
func rejected(msg string) error {
	return pkgerrors.Wrap(pkgerrors.CodePaymentProvider, &stripeapi.Error{HTTPStatusCode: 400, Msg: msg}, msg)
}

type settlementFixture struct {
	db       *gorm.DB
	gateway  *fakePayoutGateway
	notifier *recordingNotifier
	params   SettlementParams
	logs     *bytes.Buffer
}

func newSettlementFixture(t *testing.T, balance int64) *settlementFixture {
	t.Helper()
	db := dbtest.Open(t)
	payeeSvc, err := payees.NewService(payees.NewRepository(db))
	if err != nil {
		t.Fatalf("payees: %v", err)
	}
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(db))
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	calc, err := fees.NewCalculator(fees.DefaultRates())
	if err != nil {
		t.Fatalf("calculator: %v", err)
	}
	gateway := &fakePayoutGateway{balance: balance, failFor: map[string]error{}}
	notifier := &recordingNotifier{}
	logs := &bytes.Buffer{}
	return &settlementFixture{
		db:       db,
		gateway:  gateway,
		notifier: notifier,
		logs:     logs,
		params: SettlementParams{
			Logger:     logger.New(logger.Options{ServiceName: "cron-test", Format: logger.FormatJSON, Output: logs}),
			Bookings:   bookings.NewRepository(db),
			Sales:      sales.NewRepository(db),
			Payees:     payeeSvc,
			Gateway:    gateway,
			Calculator: calc,
			Ledger:     ledgerSvc,
			Notifier:   notifier,
			Currency:   "usd",
		},
	}
}

// payee creates a user with a connected account; onboarded controls payability.
func (f *settlementFixture) payee(t *testing.T, account string, onboarded bool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	profile := models.HostProfile{UserID: id, StripeAccountID: &account, StripeOnboardingComplete: onboarded}
	if err := f.db.Create(&profile).Error; err != nil {
		t.Fatalf("seed host profile: %v", err)
	}
	return id
}

func (f *settlementFixture) booking(t *testing.T, hostID uuid.UUID, mutate func(*models.BookingRequest)) models.BookingRequest {
	t.Helper()
	intent := "pi_" + uuid.NewString()[:8]
	b := models.BookingRequest{
		ShopperID:       uuid.New(),
		HostID:          hostID,
		ListingID:       uuid.New(),
		TotalPrice:      decimal.NewFromInt(110),
		PaymentIntentID: &intent,
		StartDate:       time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
		Status:          enums.BookingStatusApproved,
		PaymentStatus:   enums.PaymentStatusPaid,
		DepositStatus:   enums.DepositStatusNone,
		CreatedAt:       settleNow.Add(-10 * 24 * time.Hour),
	}
	if mutate != nil {
		mutate(&b)
	}
	if err := f.db.Create(&b).Error; err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return b
}

func (f *settlementFixture) sale(t *testing.T, sellerID uuid.UUID, payout int64, age time.Duration, mutate func(*models.SaleTransaction)) models.SaleTransaction {
	t.Helper()
	s := models.SaleTransaction{
		BuyerID:      uuid.New(),
		SellerID:     sellerID,
		ListingID:    uuid.New(),
		Amount:       decimal.NewFromInt(payout + 10),
		PlatformFee:  decimal.NewFromInt(10),
		SellerPayout: decimal.NewFromInt(payout),
		Status:       enums.SaleStatusPaid,
		CreatedAt:    settleNow.Add(-age),
	}
	if mutate != nil {
		mutate(&s)
	}
	if err := f.db.Create(&s).Error; err != nil {
		t.Fatalf("seed sale: %v", err)
	}
	return s
}

func (f *settlementFixture) reloadBooking(t *testing.T, id uuid.UUID) models.BookingRequest {
	t.Helper()
	var b models.BookingRequest
	if err := f.db.First(&b, "id = ?", id).Error; err != nil {
		t.Fatalf("reload booking: %v", err)
	}
	return b
}

func (f *settlementFixture) reloadSale(t *testing.T, id uuid.UUID) models.SaleTransaction {
	t.Helper()
	var s models.SaleTransaction
	if err := f.db.First(&s, "id = ?", id).Error; err != nil {
		t.Fatalf("reload sale: %v", err)
	}
	return s
}

func (f *settlementFixture) completionJob(t *testing.T) *bookingCompletionJob {
	t.Helper()
	job, err := NewBookingCompletionJob(f.params)
	if err != nil {
		t.Fatalf("NewBookingCompletionJob: %v", err)
	}
	typed := job.(*bookingCompletionJob)
	typed.settler.now = func() time.Time { return settleNow }
	return typed
}

func (f *settlementFixture) rentalRetryJob(t *testing.T) *rentalPayoutRetryJob {
	t.Helper()
	job, err := NewRentalPayoutRetryJob(f.params)
	if err != nil {
		t.Fatalf("NewRentalPayoutRetryJob: %v", err)
	}
	typed := job.(*rentalPayoutRetryJob)
	typed.settler.now = func() time.Time { return settleNow }
	return typed
}

func (f *settlementFixture) autoReleaseJob(t *testing.T) *saleAutoReleaseJob {
	t.Helper()
	job, err := NewSaleAutoReleaseJob(f.params, 0)
	if err != nil {
		t.Fatalf("NewSaleAutoReleaseJob: %v", err)
	}
	typed := job.(*saleAutoReleaseJob)
	typed.payer.now = func() time.Time { return settleNow }
	return typed
}

func (f *settlementFixture) saleRetryJob(t *testing.T) *salePayoutRetryJob {
	t.Helper()
	job, err := NewSalePayoutRetryJob(f.params)
	if err != nil {
		t.Fatalf("NewSalePayoutRetryJob: %v", err)
	}
	typed := job.(*salePayoutRetryJob)
	typed.payer.now = func() time.Time { return settleNow }
	return typed
}

func TestSettlementParamsValidation(t *testing.T) {
	f := newSettlementFixture(t, 0)
	params := f.params
	params.Gateway = nil
	if _, err := NewBookingCompletionJob(params); err == nil {
		t.Fatal("expected missing gateway to fail")
	}
	params = f.params
	params.Sales = nil
	if _, err := NewBookingCompletionJob(params); err != nil {
		t.Fatalf("booking jobs do not need sales: %v", err)
	}
	if _, err := NewSaleAutoReleaseJob(params, 25); err == nil {
		t.Fatal("expected missing sales repository to fail")
	}
	params = f.params
	params.Calculator = nil
	if _, err := NewSalePayoutRetryJob(params); err != nil {
		t.Fatalf("sale jobs do not need the calculator: %v", err)
	}
}

func TestBudgetDrawsDown(t *testing.T) {
	b := newBudget(10000)
	if !b.fits(10000) || b.fits(10001) {
		t.Fatalf("unexpected fit at boundary")
	}
	b.spend(9900)
	if b.fits(101) {
		t.Fatalf("expected remaining 100 to reject 101")
	}
	report := newReport("x")
	b.report(report)
	if report.AvailableBalanceCents != 10000 || report.RemainingBalanceCents != 100 {
		t.Fatalf("unexpected balances %d/%d", report.AvailableBalanceCents, report.RemainingBalanceCents)
	}
}

func TestBudgetExhaustRejectsEverything(t *testing.T) {
	b := newBudget(10000)
	b.exhaust()
	if b.fits(1) {
		t.Fatal("exhausted budget should reject any payout")
	}
	if !b.fits(0) {
		t.Fatal("zero payouts still fit")
	}
}

func TestReportCountsOutcomesAndCollectsErrors(t *testing.T) {
	report := newReport("x")
	report.add(RowResult{Outcome: "paid"}, nil)
	report.add(RowResult{Outcome: "deferred"}, nil)
	report.add(RowResult{Outcome: "failed"}, errors.New("boom"))
	report.add(RowResult{Outcome: "skipped"}, nil)
	if report.Processed != 4 || report.Paid != 1 || report.Deferred != 1 || report.Failed != 1 || report.Skipped != 1 {
		t.Fatalf("unexpected counts %+v", report)
	}
	if report.Err() == nil {
		t.Fatal("expected aggregated error")
	}
	var nilReport *Report
	if nilReport.Err() != nil {
		t.Fatal("nil report has no error")
	}
}
