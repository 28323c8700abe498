package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrFailedToSend  = errors.New("failed to send email")
	ErrInvalidConfig = errors.New("invalid mailer configuration")
	ErrInvalidParams = errors.New("invalid email parameters")
)

// Sender delivers a single message
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a rendered email ready for delivery
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
	// Tag groups messages of one kind in provider dashboards and metrics
	Tag string
}

// Validate checks that the message can be handed to a provider
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("%w: recipient is required", ErrInvalidParams)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidParams)
	}
	if m.Text == "" && m.HTML == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidParams)
	}
	return nil
}
