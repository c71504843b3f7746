package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Primary keys are assigned client side so the same rows work against sqlite.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (b *BookingRequest) BeforeCreate(*gorm.DB) error {
	assignID(&b.ID)
	return nil
}

func (s *SaleTransaction) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}

func (l *Listing) BeforeCreate(*gorm.DB) error {
	assignID(&l.ID)
	return nil
}

func (n *AdminNote) BeforeCreate(*gorm.DB) error {
	assignID(&n.ID)
	return nil
}

func (e *LedgerEvent) BeforeCreate(*gorm.DB) error {
	assignID(&e.ID)
	return nil
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	assignID(&n.ID)
	return nil
}

func (u *User) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	return nil
}
