package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/vendibook/vendibook-backend/pkg/config"
)

// ErrDisabled is returned when SMTP is not configured.
var ErrDisabled = errors.New("smtp delivery disabled")

// Message is a single transactional email.
type Message struct {
	To      []string
	Subject string
	Body    string
	HTML    bool
}

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Mailer sends transactional email over SMTP.
type Mailer struct {
	client   sender
	from     string
	fromName string
}

// New builds an SMTP mailer. It returns ErrDisabled when no host is configured.
func New(cfg config.MailConfig) (*Mailer, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}
	client, err := mail.NewClient(
		cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("init smtp client: %w", err)
	}
	return &Mailer{client: client, from: cfg.FromAddress, fromName: cfg.FromName}, nil
}

// Send delivers msg.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	built, err := m.build(msg)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, built); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func (m *Mailer) build(msg Message) (*mail.Msg, error) {
	recipients := make([]string, 0, len(msg.To))
	for _, to := range msg.To {
		if trimmed := strings.TrimSpace(to); trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}
	if len(recipients) == 0 {
		return nil, errors.New("mail recipient required")
	}

	out := mail.NewMsg()
	if err := out.FromFormat(m.fromName, m.from); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := out.To(recipients...); err != nil {
		return nil, fmt.Errorf("set to: %w", err)
	}
	out.Subject(msg.Subject)
	if msg.HTML {
		out.SetBodyString(mail.TypeTextHTML, msg.Body)
	} else {
		out.SetBodyString(mail.TypeTextPlain, msg.Body)
	}
	return out, nil
}
