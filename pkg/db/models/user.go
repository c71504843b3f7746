package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vendibook/vendibook-backend/pkg/enums"
)

// User is the contact record used for settlement emails.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email     string    `gorm:"type:text;not null;uniqueIndex"`
	FullName  string    `gorm:"column:full_name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// UserRole grants a platform role to a user.
type UserRole struct {
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;primaryKey"`
	Role      enums.Role `gorm:"column:role;type:app_role;primaryKey"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}
