package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/vendibook/vendibook-backend/pkg/enums"
)

// LedgerEvent records an immutable money movement tied to a booking or sale.
type LedgerEvent struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	EntityType   enums.EntityType      `gorm:"column:entity_type;type:entity_type;not null"`
	EntityID     uuid.UUID             `gorm:"column:entity_id;type:uuid;not null"`
	Type         enums.LedgerEventType `gorm:"column:type;type:ledger_event_type;not null"`
	AmountCents  int64                 `gorm:"column:amount_cents;not null"`
	Currency     string                `gorm:"column:currency;not null;default:'usd'"`
	ProcessorRef string                `gorm:"column:processor_ref;not null"`
	ActorUserID  *uuid.UUID            `gorm:"column:actor_user_id;type:uuid"`
	Metadata     json.RawMessage       `gorm:"column:metadata;type:jsonb"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
}
