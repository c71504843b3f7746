package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vendibook/vendibook-backend/pkg/db"
	"github.com/vendibook/vendibook-backend/pkg/db/models"
	"github.com/vendibook/vendibook-backend/pkg/enums"
)

// Service defines operations that record money movements.
type Service interface {
	RecordEvent(ctx context.Context, input RecordLedgerEventInput) (*models.LedgerEvent, error)
	History(ctx context.Context, entityType enums.EntityType, entityID uuid.UUID) ([]models.LedgerEvent, error)
}

type service struct {
	repo Repository
}

// RecordLedgerEventInput captures the immutable data a ledger event requires.
type RecordLedgerEventInput struct {
	EntityType   enums.EntityType      `json:"entity_type"`
	EntityID     uuid.UUID             `json:"entity_id"`
	Type         enums.LedgerEventType `json:"type"`
	AmountCents  int64                 `json:"amount_cents"`
	Currency     string                `json:"currency"`
	ProcessorRef string                `json:"processor_ref"`
	ActorUserID  *uuid.UUID            `json:"actor_user_id,omitempty"`
	Metadata     json.RawMessage       `json:"metadata,omitempty"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

// RecordEvent appends a ledger row. Recording the same processor reference
// twice returns the existing row.
func (s *service) RecordEvent(ctx context.Context, input RecordLedgerEventInput) (*models.LedgerEvent, error) {
	if !input.EntityType.IsValid() {
		return nil, fmt.Errorf("invalid entity type %q", input.EntityType)
	}
	if input.EntityID == uuid.Nil {
		return nil, fmt.Errorf("entity id is required")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid ledger event type %q", input.Type)
	}
	if input.AmountCents <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	ref := strings.TrimSpace(input.ProcessorRef)
	if ref == "" {
		return nil, fmt.Errorf("processor reference is required")
	}
	currency := strings.ToLower(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "usd"
	}

	event := &models.LedgerEvent{
		EntityType:   input.EntityType,
		EntityID:     input.EntityID,
		Type:         input.Type,
		AmountCents:  input.AmountCents,
		Currency:     currency,
		ProcessorRef: ref,
		ActorUserID:  input.ActorUserID,
		Metadata:     input.Metadata,
	}

	if err := s.repo.Create(ctx, event); err != nil {
		if db.IsUniqueViolation(err, "") {
			return s.repo.FindByProcessorRef(ctx, input.Type, ref)
		}
		return nil, err
	}
	return event, nil
}

func (s *service) History(ctx context.Context, entityType enums.EntityType, entityID uuid.UUID) ([]models.LedgerEvent, error) {
	if entityID == uuid.Nil {
		return nil, fmt.Errorf("entity id is required")
	}
	return s.repo.ListByEntity(ctx, entityType, entityID)
}
