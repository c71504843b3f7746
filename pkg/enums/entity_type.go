package enums

import "fmt"

// EntityType names the settlement record a ledger row or admin note points at.
type EntityType string

const (
	EntityTypeBookingRequest  EntityType = "booking_request"
	EntityTypeSaleTransaction EntityType = "sale_transaction"
)

var validEntityTypes = []EntityType{
	EntityTypeBookingRequest,
	EntityTypeSaleTransaction,
}

// String implements fmt.Stringer.
func (e EntityType) String() string {
	return string(e)
}

func (e EntityType) IsValid() bool {
	for _, candidate := range validEntityTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEntityType converts raw input into a EntityType.
func ParseEntityType(value string) (EntityType, error) {
	for _, candidate := range validEntityTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entity type %q", value)
}
