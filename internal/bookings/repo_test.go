package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vendibook/vendibook-backend/pkg/db/dbtest"
	"github.com/vendibook/vendibook-backend/pkg/db/models"
	"github.com/vendibook/vendibook-backend/pkg/enums"
)

var today = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func seedBooking(t *testing.T, db *gorm.DB, mutate func(*models.BookingRequest)) models.BookingRequest {
	t.Helper()
	booking := models.BookingRequest{
		ShopperID:     uuid.New(),
		HostID:        uuid.New(),
		ListingID:     uuid.New(),
		TotalPrice:    decimal.NewFromInt(110),
		StartDate:     today.AddDate(0, 0, -5),
		EndDate:       today.AddDate(0, 0, -1),
		Status:        enums.BookingStatusApproved,
		PaymentStatus: enums.PaymentStatusPaid,
		DepositStatus: enums.DepositStatusNone,
	}
	if mutate != nil {
		mutate(&booking)
	}
	require.NoError(t, db.Create(&booking).Error)
	return booking
}

func TestRepository_ListEndedForCompletion(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	ended := seedBooking(t, db, nil)
	seedBooking(t, db, func(b *models.BookingRequest) { b.EndDate = today })
	seedBooking(t, db, func(b *models.BookingRequest) { b.PaymentStatus = enums.PaymentStatusUnpaid })
	seedBooking(t, db, func(b *models.BookingRequest) { b.Status = enums.BookingStatusPending })
	seedBooking(t, db, func(b *models.BookingRequest) { b.Status = enums.BookingStatusCompleted })

	rows, err := repo.ListEndedForCompletion(ctx, today)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ended.ID, rows[0].ID)
}

func TestRepository_MarkCompletedOnlyOnce(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	booking := seedBooking(t, db, nil)

	ok, err := repo.MarkCompleted(ctx, booking.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkCompleted(ctx, booking.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.FindByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.BookingStatusCompleted, stored.Status)
}

func TestRepository_RecordPayoutIsOneWay(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	booking := seedBooking(t, db, func(b *models.BookingRequest) {
		b.Status = enums.BookingStatusCompleted
		reason := "host has no payable account"
		b.PayoutHoldReason = &reason
	})

	ok, err := repo.RecordPayout(ctx, booking.ID, PayoutRecord{TransferID: "tr_1", ProcessedAt: today})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.RecordPayout(ctx, booking.ID, PayoutRecord{TransferID: "tr_2", ProcessedAt: today})
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.FindByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.True(t, stored.PayoutProcessed)
	require.NotNil(t, stored.PayoutTransferID)
	assert.Equal(t, "tr_1", *stored.PayoutTransferID)
	assert.Nil(t, stored.PayoutHoldReason)
}

func TestRepository_RecordPayoutRefusesRefundedBooking(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	booking := seedBooking(t, db, nil)

	refunded, err := repo.MarkRefunded(ctx, booking.ID, RefundRecord{RefundID: "re_1", RefundedAt: today, InitiatedBy: enums.RefundInitiatorShopper})
	require.NoError(t, err)
	require.True(t, refunded)

	ok, err := repo.RecordPayout(ctx, booking.ID, PayoutRecord{TransferID: "tr_1", ProcessedAt: today})
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.FindByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.False(t, stored.PayoutProcessed)
	assert.Equal(t, enums.BookingStatusCancelled, stored.Status)
	assert.Equal(t, enums.PaymentStatusRefunded, stored.PaymentStatus)
	require.NotNil(t, stored.CancelledBy)
	assert.Equal(t, "shopper", *stored.CancelledBy)
}

func TestRepository_ListPendingPayoutsRespectsHolds(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := today.Add(9 * time.Hour)

	older := seedBooking(t, db, func(b *models.BookingRequest) {
		b.Status = enums.BookingStatusCompleted
		b.CreatedAt = now.Add(-48 * time.Hour)
	})
	newer := seedBooking(t, db, func(b *models.BookingRequest) {
		b.Status = enums.BookingStatusCompleted
		b.CreatedAt = now.Add(-24 * time.Hour)
		expired := now.Add(-time.Hour)
		b.PayoutHoldUntil = &expired
	})
	seedBooking(t, db, func(b *models.BookingRequest) {
		b.Status = enums.BookingStatusCompleted
		held := now.Add(24 * time.Hour)
		b.PayoutHoldUntil = &held
	})
	seedBooking(t, db, func(b *models.BookingRequest) {
		b.Status = enums.BookingStatusCompleted
		b.PayoutProcessed = true
	})

	rows, err := repo.ListPendingPayouts(ctx, now)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, older.ID, rows[0].ID)
	assert.Equal(t, newer.ID, rows[1].ID)
}

func TestRepository_PayoutPendingAndAttempts(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	booking := seedBooking(t, db, func(b *models.BookingRequest) { b.Status = enums.BookingStatusCompleted })

	require.NoError(t, repo.MarkPayoutPending(ctx, booking.ID, "insufficient platform balance"))
	require.NoError(t, repo.IncrementPayoutAttempts(ctx, booking.ID))
	require.NoError(t, repo.IncrementPayoutAttempts(ctx, booking.ID))

	stored, err := repo.FindByID(ctx, booking.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PayoutHoldReason)
	assert.Equal(t, "insufficient platform balance", *stored.PayoutHoldReason)
	assert.Equal(t, 2, stored.PayoutAttempts)
}

func TestRepository_SaveHoldRequiresAwaitingPayment(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	pending := seedBooking(t, db, func(b *models.BookingRequest) {
		b.Status = enums.BookingStatusPending
		b.PaymentStatus = enums.PaymentStatusUnpaid
	})
	paid := seedBooking(t, db, func(b *models.BookingRequest) { b.Status = enums.BookingStatusPending })

	hold := HoldUpdate{
		CheckoutSessionID: "cs_1",
		ExpiresAt:         today.AddDate(0, 0, 7),
		TotalPrice:        decimal.NewFromInt(110),
		DepositAmount:     decimal.NewFromInt(50),
	}
	ok, err := repo.SaveHold(ctx, pending.ID, hold)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.SaveHold(ctx, paid.ID, hold)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.FindByID(ctx, pending.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CheckoutSessionID)
	assert.Equal(t, "cs_1", *stored.CheckoutSessionID)
	require.NotNil(t, stored.HoldStatus)
	assert.Equal(t, enums.HoldStatusPending, *stored.HoldStatus)
	assert.True(t, stored.Deposit().Equal(decimal.NewFromInt(50)))
}

func TestRepository_MarkDepositRefunded(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	booking := seedBooking(t, db, func(b *models.BookingRequest) {
		b.DepositStatus = enums.DepositStatusCharged
		b.DepositAmount = decimal.NewNullDecimal(decimal.NewFromInt(50))
	})

	ok, err := repo.MarkDepositRefunded(ctx, booking.ID, DepositRefundRecord{RefundedAt: today})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkDepositRefunded(ctx, booking.ID, DepositRefundRecord{RefundedAt: today})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepository_FindByIDMissing(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	booking, err := repo.FindByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, booking)
}
