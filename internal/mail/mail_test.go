package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	impl *mailgun.MailgunImpl
	sent int
	err  error
}

func (f *fakeSender) NewMessage(from, subject, text string, to ...string) *mailgun.Message {
	return f.impl.NewMessage(from, subject, text, to...)
}

func (f *fakeSender) Send(context.Context, *mailgun.Message) (string, string, error) {
	f.sent++
	return "Queued", "<id@mg.example>", f.err
}

func TestNew_KeepsExactKey(t *testing.T) {
	c, err := New(Config{APIKey: "key-abc", Domain: "mg.example"})
	require.NoError(t, err)
	assert.Equal(t, "key-abc", c.APIKey())
	assert.Equal(t, "mg.example", c.Domain())

	_, err = New(Config{})
	assert.Error(t, err)
}

func TestSend(t *testing.T) {
	c, err := New(Config{APIKey: "key", Domain: "mg.example", From: "billing@mg.example"})
	require.NoError(t, err)
	fake := &fakeSender{impl: mailgun.NewMailgun("mg.example", "key")}
	c.mg = fake

	id, err := c.Send(context.Background(), Message{To: []string{"c@example.com"}, Subject: "Invoice", Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "<id@mg.example>", id)
	assert.Equal(t, 1, fake.sent)

	fake.err = errors.New("rejected")
	_, err = c.Send(context.Background(), Message{To: []string{"c@example.com"}})
	assert.Error(t, err)

	_, err = c.Send(context.Background(), Message{})
	assert.Error(t, err, "no recipients")
}

func TestSend_NoDomain(t *testing.T) {
	c, err := New(Config{APIKey: "key"})
	require.NoError(t, err)

	_, err = c.Send(context.Background(), Message{To: []string{"x@example.com"}})
	assert.ErrorIs(t, err, ErrNoDomain)
}
