package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/vendibook/vendibook-backend/pkg/errors"
)

const captureMethodManual = "manual"

// LineItem is a single priced row on a checkout session.
type LineItem struct {
	Name        string
	AmountCents int64
}

// CheckoutSessionInput describes a manual-capture checkout.
type CheckoutSessionInput struct {
	Currency          string
	ClientReferenceID string
	SuccessURL        string
	CancelURL         string
	LineItems         []LineItem
	Metadata          map[string]string
	IdempotencyKey    string
}

// CheckoutSession is the subset of the session the caller persists.
type CheckoutSession struct {
	ID  string
	URL string
}

// TransferInput moves platform balance to a connected account.
type TransferInput struct {
	AmountCents    int64
	Currency       string
	Destination    string
	TransferGroup  string
	Metadata       map[string]string
	IdempotencyKey string
}

// Transfer is the provider result of a transfer.
type Transfer struct {
	ID          string
	AmountCents int64
}

// RefundInput refunds a payment intent or a charge. Zero AmountCents refunds
// the remaining captured amount.
type RefundInput struct {
	PaymentIntentID string
	ChargeID        string
	AmountCents     int64
	Reason          string
	Metadata        map[string]string
	IdempotencyKey  string
}

// Refund is the provider result of a refund.
type Refund struct {
	ID          string
	Status      string
	AmountCents int64
}

// HostPayoutTransfer is the transfer paying the host of a booking. Every path
// that pays a booking builds its input here: the processor rejects a reused
// idempotency key whose parameters differ, so nothing caller-specific may
// reach the request.
func HostPayoutTransfer(bookingID string, attempts int, cents int64, currency, destination string) TransferInput {
	return TransferInput{
		AmountCents:    cents,
		Currency:       currency,
		Destination:    destination,
		TransferGroup:  "booking_" + bookingID,
		Metadata:       map[string]string{"booking_id": bookingID},
		IdempotencyKey: fmt.Sprintf("booking:%s:payout:%d", bookingID, attempts),
	}
}

// SellerPayoutTransfer is the sale counterpart of HostPayoutTransfer.
func SellerPayoutTransfer(saleID string, attempts int, cents int64, currency, destination string) TransferInput {
	return TransferInput{
		AmountCents:    cents,
		Currency:       currency,
		Destination:    destination,
		TransferGroup:  "sale_" + saleID,
		Metadata:       map[string]string{"sale_id": saleID},
		IdempotencyKey: fmt.Sprintf("sale:%s:payout:%d", saleID, attempts),
	}
}

// BookingRefundKey keys a booking refund by its amount and reason, so a retry
// with different parameters is a new request instead of a key conflict.
// Zero cents means the full remaining amount.
func BookingRefundKey(bookingID string, cents int64, reason string) string {
	amount := "full"
	if cents > 0 {
		amount = fmt.Sprintf("%d", cents)
	}
	key := fmt.Sprintf("booking:%s:refund:%s", bookingID, amount)
	if reason = strings.TrimSpace(reason); reason != "" {
		key += ":" + reason
	}
	return key
}

// CreateCheckoutSession opens a checkout that authorizes now and captures later.
// No destination transfer is attached; funds stay on the platform.
func (c *Client) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*CheckoutSession, error) {
	params := c.checkoutParams(in)
	session, err := c.api.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return nil, translateError(err, "create checkout session")
	}
	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

func (c *Client) checkoutParams(in CheckoutSessionInput) *stripe.CheckoutSessionCreateParams {
	currency := c.currencyOr(in.Currency)
	items := make([]*stripe.CheckoutSessionCreateLineItemParams, 0, len(in.LineItems))
	for _, item := range in.LineItems {
		if item.AmountCents <= 0 {
			continue
		}
		items = append(items, &stripe.CheckoutSessionCreateLineItemParams{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(item.AmountCents),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
			Quantity: stripe.Int64(1),
		})
	}

	params := &stripe.CheckoutSessionCreateParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
		LineItems:  items,
		PaymentIntentData: &stripe.CheckoutSessionCreatePaymentIntentDataParams{
			CaptureMethod: stripe.String(captureMethodManual),
			Metadata:      in.Metadata,
		},
		Metadata: in.Metadata,
	}
	if in.ClientReferenceID != "" {
		params.ClientReferenceID = stripe.String(in.ClientReferenceID)
	}
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}
	return params
}

// CreateTransfer sends funds from the platform balance to a connected account.
func (c *Client) CreateTransfer(ctx context.Context, in TransferInput) (*Transfer, error) {
	params := &stripe.TransferCreateParams{
		Amount:      stripe.Int64(in.AmountCents),
		Currency:    stripe.String(c.currencyOr(in.Currency)),
		Destination: stripe.String(in.Destination),
		Metadata:    in.Metadata,
	}
	if in.TransferGroup != "" {
		params.TransferGroup = stripe.String(in.TransferGroup)
	}
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}

	transfer, err := c.api.V1Transfers.Create(ctx, params)
	if err != nil {
		return nil, translateError(err, "create transfer")
	}
	return &Transfer{ID: transfer.ID, AmountCents: transfer.Amount}, nil
}

// CreateRefund refunds against the original payment reference.
func (c *Client) CreateRefund(ctx context.Context, in RefundInput) (*Refund, error) {
	params := c.refundParams(in)
	refund, err := c.api.V1Refunds.Create(ctx, params)
	if err != nil {
		return nil, translateError(err, "create refund")
	}
	return &Refund{ID: refund.ID, Status: string(refund.Status), AmountCents: refund.Amount}, nil
}

func (c *Client) refundParams(in RefundInput) *stripe.RefundCreateParams {
	params := &stripe.RefundCreateParams{Metadata: in.Metadata}
	if in.ChargeID != "" {
		params.Charge = stripe.String(in.ChargeID)
	} else {
		params.PaymentIntent = stripe.String(in.PaymentIntentID)
	}
	if in.AmountCents > 0 {
		params.Amount = stripe.Int64(in.AmountCents)
	}
	if in.Reason != "" {
		params.Reason = stripe.String(in.Reason)
	}
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}
	return params
}

// AvailableBalance returns the available platform balance in cents for currency.
func (c *Client) AvailableBalance(ctx context.Context, currency string) (int64, error) {
	balance, err := c.api.V1Balance.Retrieve(ctx, &stripe.BalanceRetrieveParams{})
	if err != nil {
		return 0, translateError(err, "retrieve balance")
	}
	return availableFor(balance, c.currencyOr(currency)), nil
}

func availableFor(balance *stripe.Balance, currency string) int64 {
	if balance == nil {
		return 0
	}
	var total int64
	for _, amount := range balance.Available {
		if amount != nil && strings.EqualFold(string(amount.Currency), currency) {
			total += amount.Amount
		}
	}
	return total
}

func (c *Client) currencyOr(currency string) string {
	if trimmed := strings.ToLower(strings.TrimSpace(currency)); trimmed != "" {
		return trimmed
	}
	if c != nil && c.currency != "" {
		return c.currency
	}
	return string(stripe.CurrencyUSD)
}

// translateError maps processor failures onto typed errors, passing the
// provider's message through.
func translateError(err error, op string) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return pkgerrors.Wrap(pkgerrors.CodePaymentProvider, err, op+" failed")
	}
	msg := strings.TrimSpace(stripeErr.Msg)
	if msg == "" {
		msg = op + " failed"
	}
	if stripeErr.Code == stripe.ErrorCodeBalanceInsufficient {
		return pkgerrors.Wrap(pkgerrors.CodeInsufficientBalance, err, msg)
	}
	return pkgerrors.Wrap(pkgerrors.CodePaymentProvider, err, msg).WithDetails(map[string]any{
		"provider_code": string(stripeErr.Code),
		"http_status":   stripeErr.HTTPStatusCode,
	})
}

// Definitive reports whether the processor rejected the request outright, in
// which case retrying with the same idempotency key would replay the rejection.
// Network failures, rate limits, idempotency conflicts and 5xx responses are not
// definitive. An idempotency conflict means an earlier request under the key may
// already have succeeded, so the key must not be abandoned.
func Definitive(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	if stripeErr.Type == stripe.ErrorTypeIdempotency {
		return false
	}
	status := stripeErr.HTTPStatusCode
	if status == http.StatusConflict || status == http.StatusTooManyRequests {
		return false
	}
	return status >= 400 && status < 500
}
