package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendibook/vendibook-backend/pkg/enums"
)

// SaleTransaction is a one-time asset sale. The platform_fee/seller_payout
// split is fixed when the sale is captured.
type SaleTransaction struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID   uuid.UUID `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID  uuid.UUID `gorm:"column:seller_id;type:uuid;not null"`
	ListingID uuid.UUID `gorm:"column:listing_id;type:uuid;not null"`

	Amount       decimal.Decimal  `gorm:"column:amount;type:numeric(12,2);not null"`
	PlatformFee  decimal.Decimal  `gorm:"column:platform_fee;type:numeric(12,2);not null"`
	SellerPayout decimal.Decimal  `gorm:"column:seller_payout;type:numeric(12,2);not null"`
	Status       enums.SaleStatus `gorm:"column:status;type:sale_status;not null;default:'paid'"`

	// PayoutCompletedAt stays null while the payout is still owed.
	PayoutCompletedAt *time.Time `gorm:"column:payout_completed_at"`
	TransferID        *string    `gorm:"column:transfer_id"`
	Message           *string    `gorm:"column:message"`
	PayoutAttempts    int        `gorm:"column:payout_attempts;not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
