package mailer

import (
	"context"

	"go.uber.org/zap"
)

// LogSender writes messages to the log instead of delivering them.
// Meant for local development where codes are read from the console.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a sender that logs every message at info level
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send implements Sender
func (s *LogSender) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	s.logger.Info("email not delivered, logged instead",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("tag", msg.Tag),
		zap.String("body", msg.Text),
	)
	return nil
}
