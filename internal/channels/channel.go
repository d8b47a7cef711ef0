// Package channels provides outbound message delivery over WhatsApp and email.
package channels

import "context"

// SendResult reports the outcome of one delivery attempt.
type SendResult struct {
	Success           bool
	ProviderMessageID string
}

// MessageChannel delivers outbound content to a recipient identity.
type MessageChannel interface {
	// Name returns the channel identifier (matches message.channel values).
	Name() string
	// Send delivers content to the recipient. to is a channel identity:
	// a phone number for WhatsApp, an email address for email.
	Send(ctx context.Context, to, content string) (SendResult, error)
}
