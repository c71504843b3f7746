package models

import (
	"time"

	"github.com/google/uuid"
)

// Listing is the subset of a marketplace listing the settlement core reads.
type Listing struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	HostID    uuid.UUID `gorm:"column:host_id;type:uuid;not null"`
	Title     string    `gorm:"column:title;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
