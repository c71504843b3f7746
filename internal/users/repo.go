package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendibook/vendibook-backend/pkg/db/models"
	"github.com/vendibook/vendibook-backend/pkg/enums"
	pkgerrors "github.com/vendibook/vendibook-backend/pkg/errors"
)

// Repository exposes the user lookups the settlement flows need.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return &user, nil
}

// EmailFor returns the contact email of a user.
func (r *Repository) EmailFor(ctx context.Context, id uuid.UUID) (string, error) {
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	return user.Email, nil
}

// HasRole reports whether a user_roles row grants role to userID.
func (r *Repository) HasRole(ctx context.Context, userID uuid.UUID, role enums.Role) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.UserRole{}).
		Where("user_id = ? AND role = ?", userID, role).
		Count(&count).Error; err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user role")
	}
	return count > 0, nil
}

// IsAdmin reports whether the user holds the admin role.
func (r *Repository) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	return r.HasRole(ctx, userID, enums.RoleAdmin)
}
