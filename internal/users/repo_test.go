package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendibook/vendibook-backend/pkg/db/dbtest"
	"github.com/vendibook/vendibook-backend/pkg/db/models"
	"github.com/vendibook/vendibook-backend/pkg/enums"
	pkgerrors "github.com/vendibook/vendibook-backend/pkg/errors"
)

func TestRepositoryLookups(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	admin := models.User{Email: "ops@vendibook.com", FullName: "Ops"}
	require.NoError(t, db.Create(&admin).Error)
	require.NoError(t, db.Create(&models.UserRole{UserID: admin.ID, Role: enums.RoleAdmin}).Error)

	renter := models.User{Email: "renter@example.com", FullName: "Renter"}
	require.NoError(t, db.Create(&renter).Error)

	isAdmin, err := repo.IsAdmin(ctx, admin.ID)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	isAdmin, err = repo.IsAdmin(ctx, renter.ID)
	require.NoError(t, err)
	assert.False(t, isAdmin)

	email, err := repo.EmailFor(ctx, renter.ID)
	require.NoError(t, err)
	assert.Equal(t, "renter@example.com", email)

	_, err = repo.FindByID(ctx, uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
