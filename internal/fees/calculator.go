package fees

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vendibook/vendibook-backend/pkg/config"
	pkgerrors "github.com/vendibook/vendibook-backend/pkg/errors"
)

var (
	hundred = decimal.NewFromInt(100)

	// DefaultRentalPercent is quoted to both renter and host at authorization.
	DefaultRentalPercent = decimal.RequireFromString("12.9")
	// DefaultSettlementPercent is the flat platform share withheld at payout.
	DefaultSettlementPercent = decimal.NewFromInt(10)
)

// Rates holds fee percentages expressed as whole percents (12.9 = 12.9%).
type Rates struct {
	RenterPercent     decimal.Decimal
	HostPercent       decimal.Decimal
	SettlementPercent decimal.Decimal
}

// DefaultRates returns the marketplace defaults.
func DefaultRates() Rates {
	return Rates{
		RenterPercent:     DefaultRentalPercent,
		HostPercent:       DefaultRentalPercent,
		SettlementPercent: DefaultSettlementPercent,
	}
}

// RatesFromConfig reads the configured percentages.
func RatesFromConfig(cfg config.FeesConfig) Rates {
	return Rates{
		RenterPercent:     cfg.RenterPercent(),
		HostPercent:       cfg.HostPercent(),
		SettlementPercent: cfg.SettlementPercent(),
	}
}

func (r Rates) validate() error {
	for name, pct := range map[string]decimal.Decimal{
		"renter":     r.RenterPercent,
		"host":       r.HostPercent,
		"settlement": r.SettlementPercent,
	} {
		if pct.IsNegative() || pct.GreaterThanOrEqual(hundred) {
			return fmt.Errorf("%s fee percent must be within [0, 100), got %s", name, pct)
		}
	}
	return nil
}

// Calculator computes rental fee breakdowns and settlement payouts. It performs
// no I/O.
type Calculator struct {
	rates Rates
}

// NewCalculator validates the rates and returns a calculator.
func NewCalculator(rates Rates) (*Calculator, error) {
	if err := rates.validate(); err != nil {
		return nil, err
	}
	return &Calculator{rates: rates}, nil
}

// Rates exposes the percentages the calculator applies.
func (c *Calculator) Rates() Rates {
	return c.rates
}

// RentalInput carries dollar amounts for a rental quote.
type RentalInput struct {
	BasePrice     decimal.Decimal
	DeliveryFee   decimal.Decimal
	DepositAmount decimal.Decimal
}

// RentalBreakdown is the authorization-time quote. Dollar fields are for
// display and storage, cent fields are what the processor receives.
type RentalBreakdown struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	RenterFee decimal.Decimal `json:"renter_fee"`
	HostFee   decimal.Decimal `json:"host_fee"`
	Deposit   decimal.Decimal `json:"deposit_amount"`

	SubtotalCents      int64 `json:"subtotal_cents"`
	RenterFeeCents     int64 `json:"renter_fee_cents"`
	HostFeeCents       int64 `json:"host_fee_cents"`
	DepositCents       int64 `json:"deposit_cents"`
	CustomerTotalCents int64 `json:"customer_total_cents"`
	PlatformFeeCents   int64 `json:"platform_fee_cents"`
	HostReceivesCents  int64 `json:"host_receives_cents"`
}

// Rental computes renter fee, host fee, platform fee and host net for a rental.
func (c *Calculator) Rental(in RentalInput) (RentalBreakdown, error) {
	if !in.BasePrice.IsPositive() {
		return RentalBreakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	if in.DeliveryFee.IsNegative() {
		return RentalBreakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "delivery_fee cannot be negative")
	}
	if in.DepositAmount.IsNegative() {
		return RentalBreakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "deposit_amount cannot be negative")
	}

	base := in.BasePrice.Round(2)
	delivery := in.DeliveryFee.Round(2)
	deposit := in.DepositAmount.Round(2)

	subtotal := base.Add(delivery)
	renterFee := subtotal.Mul(c.rates.RenterPercent).Div(hundred)
	hostFee := subtotal.Mul(c.rates.HostPercent).Div(hundred)

	subtotalCents := ToCents(subtotal)
	hostFeeCents := ToCents(hostFee)
	// Derived from the rounded host fee so fee and net always sum to the subtotal.
	hostReceivesCents := subtotalCents - hostFeeCents

	return RentalBreakdown{
		Subtotal:  subtotal,
		RenterFee: renterFee.Round(2),
		HostFee:   hostFee.Round(2),
		Deposit:   deposit,

		SubtotalCents:      subtotalCents,
		RenterFeeCents:     ToCents(renterFee),
		HostFeeCents:       hostFeeCents,
		DepositCents:       ToCents(deposit),
		CustomerTotalCents: ToCents(subtotal.Add(renterFee).Add(deposit)),
		PlatformFeeCents:   ToCents(renterFee.Add(hostFee)),
		HostReceivesCents:  hostReceivesCents,
	}, nil
}

// Payout is a settlement-time split of a booking total.
type Payout struct {
	GrossCents       int64 `json:"gross_cents"`
	PlatformFeeCents int64 `json:"platform_fee_cents"`
	PayoutCents      int64 `json:"payout_cents"`
}

// SettlementPayout applies the flat settlement percentage to a booking total.
func (c *Calculator) SettlementPayout(total decimal.Decimal) (Payout, error) {
	if !total.IsPositive() {
		return Payout{}, pkgerrors.New(pkgerrors.CodeValidation, "booking total must be greater than zero")
	}
	gross := ToCents(total)
	fee := ToCents(total.Mul(c.rates.SettlementPercent).Div(hundred))
	return Payout{
		GrossCents:       gross,
		PlatformFeeCents: fee,
		PayoutCents:      gross - fee,
	}, nil
}

// ToCents converts dollars to integer cents, rounding half away from zero.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromCents converts integer cents to dollars.
func FromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Shift(-2)
}
