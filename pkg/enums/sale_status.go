package enums

import "fmt"

// SaleStatus maps to the sale_status enum.
type SaleStatus string

const (
	SaleStatusPaid            SaleStatus = "paid"
	SaleStatusBuyerConfirmed  SaleStatus = "buyer_confirmed"
	SaleStatusSellerConfirmed SaleStatus = "seller_confirmed"
	SaleStatusCompleted       SaleStatus = "completed"
)

var validSaleStatuses = []SaleStatus{
	SaleStatusPaid,
	SaleStatusBuyerConfirmed,
	SaleStatusSellerConfirmed,
	SaleStatusCompleted,
}

// IsValid reports whether the value is a known SaleStatus.
func (s SaleStatus) IsValid() bool {
	for _, candidate := range validSaleStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSaleStatus converts raw input into a SaleStatus.
func ParseSaleStatus(value string) (SaleStatus, error) {
	for _, candidate := range validSaleStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale status %q", value)
}

// AutoReleasable reports whether a sale in this status may be force-completed
// once the confirmation window lapses.
func (s SaleStatus) AutoReleasable() bool {
	return s == SaleStatusPaid || s == SaleStatusBuyerConfirmed || s == SaleStatusSellerConfirmed
}
