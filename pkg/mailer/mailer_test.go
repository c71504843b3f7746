package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/vendibook/vendibook-backend/pkg/config"
)

type fakeSender struct {
	sent []*mail.Msg
	err  error
}

func (f *fakeSender) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, messages...)
	return nil
}

func TestNewDisabledWithoutHost(t *testing.T) {
	_, err := New(config.MailConfig{})
	require.ErrorIs(t, err, ErrDisabled)
}

func TestSendBuildsMessage(t *testing.T) {
	fake := &fakeSender{}
	m := &Mailer{client: fake, from: "notifications@vendibook.com", fromName: "Vendibook"}

	err := m.Send(context.Background(), Message{
		To:      []string{" host@example.com ", ""},
		Subject: "Your payout is on the way",
		Body:    "We sent $99.00 to your account.",
	})
	require.NoError(t, err)
	require.Len(t, fake.sent, 1)

	msg := fake.sent[0]
	assert.Equal(t, []string{"Your payout is on the way"}, msg.GetGenHeader(mail.HeaderSubject))
	to := msg.GetToString()
	require.Len(t, to, 1)
	assert.Contains(t, to[0], "host@example.com")
}

func TestSendRequiresRecipient(t *testing.T) {
	m := &Mailer{client: &fakeSender{}, from: "notifications@vendibook.com"}
	err := m.Send(context.Background(), Message{To: []string{"  "}, Subject: "x"})
	require.Error(t, err)
}

func TestSendWrapsTransportError(t *testing.T) {
	m := &Mailer{client: &fakeSender{err: errors.New("dial tcp: refused")}, from: "notifications@vendibook.com"}
	err := m.Send(context.Background(), Message{To: []string{"shopper@example.com"}, Subject: "x", Body: "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send mail")
}
