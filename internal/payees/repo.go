package payees

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendibook/vendibook-backend/pkg/db/models"
)

// Repository reads listings and host payout profiles.
type Repository interface {
	FindListing(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	FindHostProfile(ctx context.Context, userID uuid.UUID) (*models.HostProfile, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payees repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// FindListing returns nil without error when the listing does not exist.
func (r *repository) FindListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).First(&listing, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// FindHostProfile returns nil without error when the user has no profile.
func (r *repository) FindHostProfile(ctx context.Context, userID uuid.UUID) (*models.HostProfile, error) {
	var profile models.HostProfile
	err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
