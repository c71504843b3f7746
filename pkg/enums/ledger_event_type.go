package enums

import "fmt"

// LedgerEventType maps to the ledger_event_type enum in Postgres.
type LedgerEventType string

const (
	LedgerEventTypeHostPayout    LedgerEventType = "host_payout"
	LedgerEventTypeSellerPayout  LedgerEventType = "seller_payout"
	LedgerEventTypeRefund        LedgerEventType = "refund"
	LedgerEventTypeDepositRefund LedgerEventType = "deposit_refund"
)

var validLedgerEventTypes = []LedgerEventType{
	LedgerEventTypeHostPayout,
	LedgerEventTypeSellerPayout,
	LedgerEventTypeRefund,
	LedgerEventTypeDepositRefund,
}

// IsValid reports whether the value is a known LedgerEventType.
func (l LedgerEventType) IsValid() bool {
	for _, candidate := range validLedgerEventTypes {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLedgerEventType converts raw input into a LedgerEventType.
func ParseLedgerEventType(value string) (LedgerEventType, error) {
	for _, candidate := range validLedgerEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger event type %q", value)
}
