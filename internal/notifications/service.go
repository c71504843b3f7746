package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/vendibook/vendibook-backend/pkg/db/models"
	pkgerrors "github.com/vendibook/vendibook-backend/pkg/errors"
	"github.com/vendibook/vendibook-backend/pkg/mailer"
)

// ContactLookup resolves a user's email address.
type ContactLookup interface {
	EmailFor(ctx context.Context, userID uuid.UUID) (string, error)
}

// MailSender delivers transactional email.
type MailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// PushPublisher fans push payloads out to devices.
type PushPublisher interface {
	PublishPush(ctx context.Context, data []byte, attrs map[string]string) (string, error)
}

// DelivererParams groups channel dependencies. Mail and Push are optional; a
// nil channel is skipped.
type DelivererParams struct {
	Repo     Repository
	Contacts ContactLookup
	Mail     MailSender
	Push     PushPublisher
}

// Deliverer sends one notice through its channels.
type Deliverer struct {
	repo     Repository
	contacts ContactLookup
	mail     MailSender
	push     PushPublisher
}

// NewDeliverer validates channel dependencies.
func NewDeliverer(params DelivererParams) (*Deliverer, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if params.Mail != nil && params.Contacts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "contact lookup required for email")
	}
	return &Deliverer{
		repo:     params.Repo,
		contacts: params.Contacts,
		mail:     params.Mail,
		push:     params.Push,
	}, nil
}

// Deliver attempts every requested channel and returns the combined failures.
func (d *Deliverer) Deliver(ctx context.Context, notice Notice) error {
	if notice.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification user id required")
	}

	var errs error
	if notice.InApp {
		errs = multierr.Append(errs, d.persist(ctx, notice))
	}
	if notice.Email && d.mail != nil {
		errs = multierr.Append(errs, d.email(ctx, notice))
	}
	if notice.Push && d.push != nil {
		errs = multierr.Append(errs, d.publish(ctx, notice))
	}
	return errs
}

func (d *Deliverer) persist(ctx context.Context, notice Notice) error {
	row := &models.Notification{
		UserID:  notice.UserID,
		Type:    notice.Type,
		Title:   notice.Title,
		Message: notice.Message,
	}
	if link := strings.TrimSpace(notice.Link); link != "" {
		row.Link = &link
	}
	if err := d.repo.Create(ctx, row); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}
	return nil
}

func (d *Deliverer) email(ctx context.Context, notice Notice) error {
	address, err := d.contacts.EmailFor(ctx, notice.UserID)
	if err != nil {
		return fmt.Errorf("lookup email: %w", err)
	}
	return d.mail.Send(ctx, mailer.Message{
		To:      []string{address},
		Subject: notice.Title,
		Body:    notice.Message,
	})
}

func (d *Deliverer) publish(ctx context.Context, notice Notice) error {
	data, err := json.Marshal(pushPayload{
		UserID:  notice.UserID,
		Type:    notice.Type,
		Title:   notice.Title,
		Message: notice.Message,
		Link:    notice.Link,
	})
	if err != nil {
		return err
	}
	_, err = d.push.PublishPush(ctx, data, map[string]string{
		"user_id": notice.UserID.String(),
		"type":    string(notice.Type),
	})
	return err
}
