package enums

import "fmt"

// DepositStatus tracks the security deposit attached to a booking.
type DepositStatus string

const (
	DepositStatusNone     DepositStatus = "none"
	DepositStatusCharged  DepositStatus = "charged"
	DepositStatusRefunded DepositStatus = "refunded"
)

var validDepositStatuses = []DepositStatus{
	DepositStatusNone,
	DepositStatusCharged,
	DepositStatusRefunded,
}

// String implements fmt.Stringer.
func (d DepositStatus) String() string {
	return string(d)
}

func (d DepositStatus) IsValid() bool {
	for _, candidate := range validDepositStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDepositStatus converts raw input into a DepositStatus.
func ParseDepositStatus(value string) (DepositStatus, error) {
	for _, candidate := range validDepositStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid deposit status %q", value)
}
