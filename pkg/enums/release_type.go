package enums

import "fmt"

type ReleaseType string

const (
	ReleaseTypePayout  ReleaseType = "payout"
	ReleaseTypeDeposit ReleaseType = "deposit"
	ReleaseTypeBoth    ReleaseType = "both"
)

var validReleaseTypes = []ReleaseType{
	ReleaseTypePayout,
	ReleaseTypeDeposit,
	ReleaseTypeBoth,
}

func (r ReleaseType) IsValid() bool {
	for _, candidate := range validReleaseTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReleaseType converts raw input into a ReleaseType.
func ParseReleaseType(value string) (ReleaseType, error) {
	for _, candidate := range validReleaseTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid release type %q", value)
}

// IncludesPayout reports whether the release moves the host payout.
func (r ReleaseType) IncludesPayout() bool {
	return r == ReleaseTypePayout || r == ReleaseTypeBoth
}

// IncludesDeposit reports whether the release refunds the deposit.
func (r ReleaseType) IncludesDeposit() bool {
	return r == ReleaseTypeDeposit || r == ReleaseTypeBoth
}
