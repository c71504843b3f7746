package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// HostProfile carries the payout account of a host or seller.
type HostProfile struct {
	UserID                   uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	StripeAccountID          *string   `gorm:"column:stripe_account_id"`
	StripeOnboardingComplete bool      `gorm:"column:stripe_onboarding_complete;not null;default:false"`
	CreatedAt                time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Payable reports whether transfers can be sent to this profile.
func (h HostProfile) Payable() bool {
	return h.StripeAccountID != nil && strings.TrimSpace(*h.StripeAccountID) != "" && h.StripeOnboardingComplete
}
