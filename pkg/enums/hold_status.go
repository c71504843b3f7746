package enums

import "fmt"

// HoldStatus tracks the manual-capture authorization on a booking.
type HoldStatus string

const (
	HoldStatusPending    HoldStatus = "pending"
	HoldStatusAuthorized HoldStatus = "authorized"
	HoldStatusCaptured   HoldStatus = "captured"
	HoldStatusReleased   HoldStatus = "released"
)

var validHoldStatuses = []HoldStatus{
	HoldStatusPending,
	HoldStatusAuthorized,
	HoldStatusCaptured,
	HoldStatusReleased,
}

// IsValid reports whether the value is a known HoldStatus.
func (h HoldStatus) IsValid() bool {
	for _, candidate := range validHoldStatuses {
		if candidate == h {
			return true
		}
	}
	return false
}

// ParseHoldStatus converts raw input into a HoldStatus.
func ParseHoldStatus(value string) (HoldStatus, error) {
	for _, candidate := range validHoldStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid hold status %q", value)
}
