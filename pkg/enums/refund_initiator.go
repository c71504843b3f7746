package enums

import "fmt"

// RefundInitiator records which party asked for a refund.
type RefundInitiator string

const (
	RefundInitiatorShopper RefundInitiator = "shopper"
	RefundInitiatorHost    RefundInitiator = "host"
	RefundInitiatorAdmin   RefundInitiator = "admin"
)

var validRefundInitiators = []RefundInitiator{
	RefundInitiatorShopper,
	RefundInitiatorHost,
	RefundInitiatorAdmin,
}

func (r RefundInitiator) IsValid() bool {
	for _, candidate := range validRefundInitiators {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRefundInitiator converts raw input into a RefundInitiator.
func ParseRefundInitiator(value string) (RefundInitiator, error) {
	for _, candidate := range validRefundInitiators {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund initiator %q", value)
}
