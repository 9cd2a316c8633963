// Package mail wraps the Mailgun transactional-email API.
//
// The client exists only when the MAILGUN key is present.  Consumers get it
// from the registry as an optional capability and must check for absence.
package mail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
)

// ErrNoDomain is returned by Send when no sending domain is configured.
var ErrNoDomain = errors.New("mail: sending domain not configured")

// Config holds the provider settings.  APIKey comes from MAILGUN; Domain and
// From come from the application config.
type Config struct {
	APIKey string
	Domain string
	From   string
}

// Message is a plain transactional email.
type Message struct {
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
}

// sender is the subset of mailgun.Mailgun the client needs.
type sender interface {
	NewMessage(from, subject, text string, to ...string) *mailgun.Message
	Send(ctx context.Context, m *mailgun.Message) (string, string, error)
}

// Client sends mail through Mailgun.  Safe for concurrent use.
type Client struct {
	cfg Config
	mg  sender
}

// New builds a client.  No request is made.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("mail: API key must be non-empty")
	}
	return &Client{cfg: cfg, mg: mailgun.NewMailgun(cfg.Domain, cfg.APIKey)}, nil
}

func (c *Client) APIKey() string { return c.cfg.APIKey }
func (c *Client) Domain() string { return c.cfg.Domain }

// Send queues m and returns the provider's message ID.  An empty From uses
// the configured default sender.
func (c *Client) Send(ctx context.Context, m Message) (string, error) {
	if c.cfg.Domain == "" {
		return "", ErrNoDomain
	}
	from := m.From
	if from == "" {
		from = c.cfg.From
	}
	if from == "" || len(m.To) == 0 {
		return "", errors.New("mail: sender and at least one recipient are required")
	}

	msg := c.mg.NewMessage(from, m.Subject, m.Text, m.To...)
	if m.HTML != "" {
		msg.SetHtml(m.HTML)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, id, err := c.mg.Send(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("mail: send: %w", err)
	}
	return id, nil
}
