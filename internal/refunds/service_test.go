package refunds

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vendibook/vendibook-backend/internal/bookings"
	"github.com/vendibook/vendibook-backend/internal/ledger"
	"github.com/vendibook/vendibook-backend/internal/notifications"
	"github.com/vendibook/vendibook-backend/internal/users"
	"github.com/vendibook/vendibook-backend/pkg/db/dbtest"
	"github.com/vendibook/vendibook-backend/pkg/db/models"
	"github.com/vendibook/vendibook-backend/pkg/enums"
	pkgerrors "github.com/vendibook/vendibook-backend/pkg/errors"
	"github.com/vendibook/vendibook-backend/pkg/logger"
	"github.com/vendibook/vendibook-backend/pkg/stripe"
)

type fakeRefunds struct {
	calls []stripe.RefundInput
	err   error
}

func (f *fakeRefunds) CreateRefund(ctx context.Context, in stripe.RefundInput) (*stripe.Refund, error) {
	f.calls = append(f.calls, in)
	if f.err != nil {
		return nil, f.err
	}
	amount := in.AmountCents
	if amount == 0 {
		amount = 17419
	}
	return &stripe.Refund{ID: "re_1", Status: "succeeded", AmountCents: amount}, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notifications.Notice
}

func (r *recordingNotifier) Dispatch(ctx context.Context, notices ...notifications.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notices...)
}

type failingBookings struct {
	bookings.Repository
}

func (f failingBookings) MarkRefunded(ctx context.Context, id uuid.UUID, refund bookings.RefundRecord) (bool, error) {
	return false, errors.New("connection reset")
}

type refundFixture struct {
	db       *gorm.DB
	svc      *service
	refunds  *fakeRefunds
	notifier *recordingNotifier
	booking  models.BookingRequest
	admin    uuid.UUID
	logs     *bytes.Buffer
}

func newRefundFixture(t *testing.T) *refundFixture {
	t.Helper()
	db := dbtest.Open(t)

	intent := "pi_123"
	booking := models.BookingRequest{
		ShopperID:       uuid.New(),
		HostID:          uuid.New(),
		ListingID:       uuid.New(),
		TotalPrice:      decimal.NewFromInt(110),
		PaymentIntentID: &intent,
		StartDate:       time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC),
		Status:          enums.BookingStatusApproved,
		PaymentStatus:   enums.PaymentStatusPaid,
		DepositStatus:   enums.DepositStatusNone,
	}
	require.NoError(t, db.Create(&booking).Error)

	admin := uuid.New()
	require.NoError(t, db.Create(&models.UserRole{UserID: admin, Role: enums.RoleAdmin}).Error)

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(db))
	require.NoError(t, err)
	refunds := &fakeRefunds{}
	notifier := &recordingNotifier{}
	logs := &bytes.Buffer{}

	svc, err := NewService(ServiceParams{
		Bookings: bookings.NewRepository(db),
		Admins:   users.NewRepository(db),
		Refunds:  refunds,
		Ledger:   ledgerSvc,
		Notifier: notifier,
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: logs}),
	})
	require.NoError(t, err)
	return &refundFixture{db: db, svc: svc.(*service), refunds: refunds, notifier: notifier, booking: booking, admin: admin, logs: logs}
}

func (f *refundFixture) reload(t *testing.T) models.BookingRequest {
	t.Helper()
	var stored models.BookingRequest
	require.NoError(t, f.db.First(&stored, "id = ?", f.booking.ID).Error)
	return stored
}

func TestProcessRefund_FullRefundCancelsBooking(t *testing.T) {
	f := newRefundFixture(t)

	result, err := f.svc.ProcessRefund(context.Background(), f.booking.ShopperID, ProcessRefundInput{
		BookingID:          f.booking.ID,
		Reason:             enums.RefundReasonRequestedByCustomer,
		InitiatedBy:        enums.RefundInitiatorShopper,
		CancellationReason: "plans changed",
	})
	require.NoError(t, err)
	assert.Equal(t, "re_1", result.RefundID)
	assert.Equal(t, int64(17419), result.AmountCents)
	assert.Equal(t, enums.BookingStatusCancelled, result.BookingStatus)

	require.Len(t, f.refunds.calls, 1)
	call := f.refunds.calls[0]
	assert.Equal(t, "pi_123", call.PaymentIntentID)
	assert.Zero(t, call.AmountCents)
	assert.Equal(t, "booking:"+f.booking.ID.String()+":refund:full:requested_by_customer", call.IdempotencyKey)
	assert.Equal(t, map[string]string{"booking_id": f.booking.ID.String()}, call.Metadata)

	stored := f.reload(t)
	assert.Equal(t, enums.PaymentStatusRefunded, stored.PaymentStatus)
	assert.Equal(t, enums.BookingStatusCancelled, stored.Status)
	require.NotNil(t, stored.CancellationReason)
	assert.Equal(t, "plans changed", *stored.CancellationReason)

	var events []models.LedgerEvent
	require.NoError(t, f.db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.LedgerEventTypeRefund, events[0].Type)

	require.Len(t, f.notifier.notices, 2)
	assert.Equal(t, f.booking.ShopperID, f.notifier.notices[0].UserID)
	assert.True(t, f.notifier.notices[0].InApp)
	assert.True(t, f.notifier.notices[0].Email)
	assert.Equal(t, f.booking.HostID, f.notifier.notices[1].UserID)
	assert.False(t, f.notifier.notices[1].InApp)
}

func TestProcessRefund_PartialRefundStillCancels(t *testing.T) {
	f := newRefundFixture(t)
	amount := decimal.RequireFromString("25.50")

	result, err := f.svc.ProcessRefund(context.Background(), f.booking.HostID, ProcessRefundInput{
		BookingID:    f.booking.ID,
		RefundAmount: &amount,
		InitiatedBy:  enums.RefundInitiatorHost,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2550), f.refunds.calls[0].AmountCents)
	assert.True(t, result.Amount.Equal(amount))
	assert.Equal(t, enums.BookingStatusCancelled, f.reload(t).Status)
}

func TestProcessRefund_AmountAboveTotalPassesThroughUncapped(t *testing.T) {
	f := newRefundFixture(t)
	amount := decimal.NewFromInt(500)

	_, err := f.svc.ProcessRefund(context.Background(), f.booking.ShopperID, ProcessRefundInput{
		BookingID:    f.booking.ID,
		RefundAmount: &amount,
		InitiatedBy:  enums.RefundInitiatorShopper,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(50000), f.refunds.calls[0].AmountCents)
}

func TestProcessRefund_RetryWithSmallerAmountUsesNewKey(t *testing.T) {
	f := newRefundFixture(t)
	tooMuch := decimal.NewFromInt(500)
	f.refunds.err = pkgerrors.New(pkgerrors.CodePaymentProvider, "Refund amount is greater than the unrefunded amount.")

	_, err := f.svc.ProcessRefund(context.Background(), f.booking.ShopperID, ProcessRefundInput{
		BookingID:    f.booking.ID,
		RefundAmount: &tooMuch,
		InitiatedBy:  enums.RefundInitiatorShopper,
	})
	require.Error(t, err)

	f.refunds.err = nil
	valid := decimal.NewFromInt(20)
	_, err = f.svc.ProcessRefund(context.Background(), f.admin, ProcessRefundInput{
		BookingID:    f.booking.ID,
		RefundAmount: &valid,
		InitiatedBy:  enums.RefundInitiatorAdmin,
	})
	require.NoError(t, err)

	require.Len(t, f.refunds.calls, 2)
	first, second := f.refunds.calls[0], f.refunds.calls[1]
	bookingID := f.booking.ID.String()
	assert.Equal(t, "booking:"+bookingID+":refund:50000", first.IdempotencyKey)
	assert.Equal(t, "booking:"+bookingID+":refund:2000", second.IdempotencyKey)
	// Caller identity never reaches the processor request.
	assert.Equal(t, first.Metadata, second.Metadata)
}

func TestProcessRefund_AdminMayRefund(t *testing.T) {
	f := newRefundFixture(t)

	_, err := f.svc.ProcessRefund(context.Background(), f.admin, ProcessRefundInput{
		BookingID:   f.booking.ID,
		InitiatedBy: enums.RefundInitiatorAdmin,
	})
	require.NoError(t, err)
}

func TestProcessRefund_StrangerIsForbidden(t *testing.T) {
	f := newRefundFixture(t)

	_, err := f.svc.ProcessRefund(context.Background(), uuid.New(), ProcessRefundInput{
		BookingID:   f.booking.ID,
		InitiatedBy: enums.RefundInitiatorShopper,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
	assert.Empty(t, f.refunds.calls)
}

func TestProcessRefund_StatePreconditions(t *testing.T) {
	cases := []struct {
		name    string
		updates map[string]any
	}{
		{name: "unpaid", updates: map[string]any{"payment_status": enums.PaymentStatusUnpaid}},
		{name: "already refunded", updates: map[string]any{"payment_status": enums.PaymentStatusRefunded}},
		{name: "no payment reference", updates: map[string]any{"payment_intent_id": nil}},
		{name: "payout released", updates: map[string]any{"payout_processed": true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newRefundFixture(t)
			require.NoError(t, f.db.Model(&models.BookingRequest{}).Where("id = ?", f.booking.ID).Updates(tc.updates).Error)

			_, err := f.svc.ProcessRefund(context.Background(), f.booking.ShopperID, ProcessRefundInput{
				BookingID:   f.booking.ID,
				InitiatedBy: enums.RefundInitiatorShopper,
			})
			assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict), "got %v", err)
			assert.Empty(t, f.refunds.calls)
		})
	}
}

func TestProcessRefund_ValidationFailsFast(t *testing.T) {
	f := newRefundFixture(t)
	zero := decimal.Zero

	inputs := []ProcessRefundInput{
		{BookingID: f.booking.ID, InitiatedBy: "robot"},
		{BookingID: f.booking.ID, InitiatedBy: enums.RefundInitiatorShopper, Reason: "changed_mind"},
		{BookingID: f.booking.ID, InitiatedBy: enums.RefundInitiatorShopper, RefundAmount: &zero},
		{InitiatedBy: enums.RefundInitiatorShopper},
	}
	for _, in := range inputs {
		_, err := f.svc.ProcessRefund(context.Background(), f.booking.ShopperID, in)
		assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "input %+v got %v", in, err)
	}
	assert.Empty(t, f.refunds.calls)

	_, err := f.svc.ProcessRefund(context.Background(), uuid.Nil, ProcessRefundInput{BookingID: f.booking.ID, InitiatedBy: enums.RefundInitiatorShopper})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
}

func TestProcessRefund_ProviderFailureLeavesBookingUntouched(t *testing.T) {
	f := newRefundFixture(t)
	f.refunds.err = pkgerrors.New(pkgerrors.CodePaymentProvider, "Charge has already been refunded.")

	_, err := f.svc.ProcessRefund(context.Background(), f.booking.ShopperID, ProcessRefundInput{
		BookingID:   f.booking.ID,
		InitiatedBy: enums.RefundInitiatorShopper,
	})
	require.Error(t, err)
	assert.Equal(t, "Charge has already been refunded.", pkgerrors.As(err).Message())

	stored := f.reload(t)
	assert.Equal(t, enums.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, enums.BookingStatusApproved, stored.Status)
	assert.Empty(t, f.notifier.notices)
}

func TestProcessRefund_DBFailureAfterRefundIsOnlyLogged(t *testing.T) {
	f := newRefundFixture(t)
	f.svc.bookings = failingBookings{Repository: f.svc.bookings}

	result, err := f.svc.ProcessRefund(context.Background(), f.booking.ShopperID, ProcessRefundInput{
		BookingID:   f.booking.ID,
		InitiatedBy: enums.RefundInitiatorShopper,
	})
	require.NoError(t, err)
	assert.Equal(t, "re_1", result.RefundID)
	assert.Contains(t, f.logs.String(), "manual reconciliation required")
	assert.Contains(t, f.logs.String(), "re_1")
	assert.Equal(t, enums.PaymentStatusPaid, f.reload(t).PaymentStatus)
}
