package enums

import "fmt"

// PaymentStatus maps to the payment_status enum. It moves independently of
// BookingStatus and only ever forward: unpaid, then paid, then refunded.
type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

var paymentStatusOrder = map[PaymentStatus]int{
	PaymentStatusUnpaid:   0,
	PaymentStatusPaid:     1,
	PaymentStatusRefunded: 2,
}

func (p PaymentStatus) IsValid() bool {
	_, ok := paymentStatusOrder[p]
	return ok
}

// CanTransitionTo reports whether next is the single step after p.
func (p PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	from, ok := paymentStatusOrder[p]
	if !ok {
		return false
	}
	to, ok := paymentStatusOrder[next]
	return ok && to == from+1
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	status := PaymentStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid payment status %q", value)
	}
	return status, nil
}
