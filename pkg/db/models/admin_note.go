package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vendibook/vendibook-backend/pkg/enums"
)

// AdminNote is an append-only audit record of a manual override.
type AdminNote struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	EntityType enums.EntityType `gorm:"column:entity_type;type:entity_type;not null"`
	EntityID   uuid.UUID        `gorm:"column:entity_id;type:uuid;not null"`
	CreatedBy  uuid.UUID        `gorm:"column:created_by;type:uuid;not null"`
	Note       string           `gorm:"column:note;type:text;not null"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
}
