package bookings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vendibook/vendibook-backend/internal/fees"
	"github.com/vendibook/vendibook-backend/internal/payees"
	"github.com/vendibook/vendibook-backend/pkg/config"
	"github.com/vendibook/vendibook-backend/pkg/enums"
	pkgerrors "github.com/vendibook/vendibook-backend/pkg/errors"
	"github.com/vendibook/vendibook-backend/pkg/logger"
	"github.com/vendibook/vendibook-backend/pkg/stripe"
)

const bookingIDPlaceholder = "{BOOKING_ID}"

// CheckoutCreator opens processor checkout sessions.
type CheckoutCreator interface {
	CreateCheckoutSession(ctx context.Context, in stripe.CheckoutSessionInput) (*stripe.CheckoutSession, error)
}

// Service authorizes rental bookings.
type Service interface {
	CreateHold(ctx context.Context, callerID uuid.UUID, input CreateHoldInput) (*HoldResult, error)
}

// ServiceParams wires the authorization service.
type ServiceParams struct {
	Repo       Repository
	Payees     payees.Service
	Checkout   CheckoutCreator
	Calculator *fees.Calculator
	Logger     *logger.Logger
	Stripe     config.StripeConfig
	HoldDays   int
}

type service struct {
	repo       Repository
	payees     payees.Service
	checkout   CheckoutCreator
	calc       *fees.Calculator
	logg       *logger.Logger
	currency   string
	successURL string
	cancelURL  string
	holdWindow time.Duration
	now        func() time.Time
}

// NewService validates dependencies and returns the authorization service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "bookings repository required")
	}
	if params.Payees == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payees service required")
	}
	if params.Checkout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "checkout client required")
	}
	if params.Calculator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fee calculator required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	days := params.HoldDays
	if days <= 0 || days > 7 {
		days = 7
	}
	return &service{
		repo:       params.Repo,
		payees:     params.Payees,
		checkout:   params.Checkout,
		calc:       params.Calculator,
		logg:       params.Logger,
		currency:   params.Stripe.Currency,
		successURL: params.Stripe.SuccessURL,
		cancelURL:  params.Stripe.CancelURL,
		holdWindow: time.Duration(days) * 24 * time.Hour,
		now:        time.Now,
	}, nil
}

func (s *service) CreateHold(ctx context.Context, callerID uuid.UUID, input CreateHoldInput) (*HoldResult, error) {
	if callerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if input.BookingID == uuid.Nil || input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking_id and listing_id are required")
	}
	breakdown, err := s.calc.Rental(fees.RentalInput{
		BasePrice:     input.Amount,
		DeliveryFee:   input.DeliveryFee,
		DepositAmount: input.DepositAmount,
	})
	if err != nil {
		return nil, err
	}

	booking, err := s.repo.FindByID(ctx, input.BookingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	if booking == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	if booking.ShopperID != callerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the renter can authorize this booking")
	}
	if booking.ListingID != input.ListingID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing_id does not match booking")
	}
	if booking.Status != enums.BookingStatusPending || booking.PaymentStatus != enums.PaymentStatusUnpaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "booking is not awaiting payment").
			WithDetails(map[string]any{"status": booking.Status, "payment_status": booking.PaymentStatus})
	}

	host, err := s.payees.ListingHost(ctx, input.ListingID)
	if err != nil {
		return nil, err
	}

	bookingID := booking.ID.String()
	session, err := s.checkout.CreateCheckoutSession(ctx, stripe.CheckoutSessionInput{
		Currency:          s.currency,
		ClientReferenceID: bookingID,
		SuccessURL:        withBookingID(s.successURL, bookingID),
		CancelURL:         withBookingID(s.cancelURL, bookingID),
		LineItems:         lineItems(breakdown),
		Metadata: map[string]string{
			"booking_id":          bookingID,
			"listing_id":          input.ListingID.String(),
			"host_id":             host.UserID.String(),
			"shopper_id":          callerID.String(),
			"platform_fee_cents":  fmt.Sprint(breakdown.PlatformFeeCents),
			"host_receives_cents": fmt.Sprint(breakdown.HostReceivesCents),
			"deposit_cents":       fmt.Sprint(breakdown.DepositCents),
		},
		IdempotencyKey: fmt.Sprintf("booking:%s:hold:%d", bookingID, breakdown.CustomerTotalCents),
	})
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().UTC().Add(s.holdWindow)
	saved, err := s.repo.SaveHold(ctx, booking.ID, HoldUpdate{
		CheckoutSessionID: session.ID,
		ExpiresAt:         expiresAt,
		TotalPrice:        breakdown.Subtotal,
		DepositAmount:     breakdown.Deposit,
	})
	if err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"booking_id": bookingID, "checkout_session_id": session.ID})
		s.logg.Error(logCtx, "failed to persist booking hold", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist booking hold")
	}
	if !saved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "booking is no longer awaiting payment")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"booking_id":           bookingID,
		"checkout_session_id":  session.ID,
		"customer_total_cents": breakdown.CustomerTotalCents,
	})
	s.logg.Info(logCtx, "booking hold created")

	return &HoldResult{
		SessionID:     session.ID,
		URL:           session.URL,
		HoldExpiresAt: expiresAt,
		Fees:          breakdown,
	}, nil
}

func lineItems(b fees.RentalBreakdown) []stripe.LineItem {
	items := []stripe.LineItem{{
		Name:        "Rental booking",
		AmountCents: b.CustomerTotalCents - b.DepositCents,
	}}
	if b.DepositCents > 0 {
		items = append(items, stripe.LineItem{Name: "Refundable security deposit", AmountCents: b.DepositCents})
	}
	return items
}

func withBookingID(template, bookingID string) string {
	return strings.ReplaceAll(template, bookingIDPlaceholder, bookingID)
}
