package payoutoverride

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendibook/vendibook-backend/pkg/db/models"
	"github.com/vendibook/vendibook-backend/pkg/enums"
)

// NotesRepository appends and reads admin audit notes. Notes are never
// updated or deleted.
type NotesRepository interface {
	WithTx(tx *gorm.DB) NotesRepository
	Create(ctx context.Context, note *models.AdminNote) error
	ListByEntity(ctx context.Context, entityType enums.EntityType, entityID uuid.UUID) ([]models.AdminNote, error)
}

type notesRepository struct {
	db *gorm.DB
}

// NewNotesRepository returns an admin notes repository bound to db.
func NewNotesRepository(db *gorm.DB) NotesRepository {
	return &notesRepository{db: db}
}

func (r *notesRepository) WithTx(tx *gorm.DB) NotesRepository {
	if tx == nil {
		return r
	}
	return &notesRepository{db: tx}
}

func (r *notesRepository) Create(ctx context.Context, note *models.AdminNote) error {
	return r.db.WithContext(ctx).Create(note).Error
}

func (r *notesRepository) ListByEntity(ctx context.Context, entityType enums.EntityType, entityID uuid.UUID) ([]models.AdminNote, error) {
	var notes []models.AdminNote
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at ASC, id ASC").
		Find(&notes).Error
	return notes, err
}
