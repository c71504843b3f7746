package sales

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendibook/vendibook-backend/pkg/db/models"
	"github.com/vendibook/vendibook-backend/pkg/enums"
)

// Repository persists sale transactions and their payout markers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.SaleTransaction, error)
	ListAutoReleasable(ctx context.Context, cutoff time.Time) ([]models.SaleTransaction, error)
	ListPendingPayouts(ctx context.Context) ([]models.SaleTransaction, error)
	CompleteWithMessage(ctx context.Context, id uuid.UUID, message string) (bool, error)
	RecordPayout(ctx context.Context, id uuid.UUID, transferID string, at time.Time) (bool, error)
	UpdateMessage(ctx context.Context, id uuid.UUID, message string) error
	IncrementPayoutAttempts(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a sales repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByID returns nil without error when the sale does not exist.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.SaleTransaction, error) {
	var sale models.SaleTransaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&sale).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sale, nil
}

// ListAutoReleasable returns unconfirmed sales created before cutoff whose
// payout is still owed, oldest first.
func (r *repository) ListAutoReleasable(ctx context.Context, cutoff time.Time) ([]models.SaleTransaction, error) {
	var rows []models.SaleTransaction
	err := r.db.WithContext(ctx).
		Where("status IN ?", autoReleasableStatuses()).
		Where("payout_completed_at IS NULL AND created_at < ?", cutoff).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// ListPendingPayouts returns completed sales still owed a payout, oldest first.
func (r *repository) ListPendingPayouts(ctx context.Context) ([]models.SaleTransaction, error) {
	var rows []models.SaleTransaction
	err := r.db.WithContext(ctx).
		Where("status = ? AND payout_completed_at IS NULL", enums.SaleStatusCompleted).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// CompleteWithMessage completes a sale whose payout could not be made yet.
func (r *repository) CompleteWithMessage(ctx context.Context, id uuid.UUID, message string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.SaleTransaction{}).
		Where("id = ? AND status IN ? AND payout_completed_at IS NULL", id, autoReleasableStatuses()).
		Updates(map[string]any{
			"status":  enums.SaleStatusCompleted,
			"message": message,
		})
	return res.RowsAffected > 0, res.Error
}

// RecordPayout completes a sale and sets payout_completed_at once. Any
// pending message is cleared.
func (r *repository) RecordPayout(ctx context.Context, id uuid.UUID, transferID string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.SaleTransaction{}).
		Where("id = ? AND payout_completed_at IS NULL", id).
		Updates(map[string]any{
			"status":              enums.SaleStatusCompleted,
			"payout_completed_at": at,
			"transfer_id":         transferID,
			"message":             nil,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) UpdateMessage(ctx context.Context, id uuid.UUID, message string) error {
	return r.db.WithContext(ctx).
		Model(&models.SaleTransaction{}).
		Where("id = ? AND payout_completed_at IS NULL", id).
		Update("message", message).Error
}

func (r *repository) IncrementPayoutAttempts(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.SaleTransaction{}).
		Where("id = ?", id).
		UpdateColumn("payout_attempts", gorm.Expr("payout_attempts + ?", 1)).Error
}

func autoReleasableStatuses() []enums.SaleStatus {
	return []enums.SaleStatus{enums.SaleStatusPaid, enums.SaleStatusBuyerConfirmed, enums.SaleStatusSellerConfirmed}
}
