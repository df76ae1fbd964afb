// Package notify delivers e-mail notifications asynchronously. Services only
// publish messages; delivery happens on background workers.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Message is one e-mail to deliver.
type Message struct {
	Subject   string `json:"subject"`
	Recipient string `json:"recipient"`
	Body      string `json:"body"`
}

// Publisher enqueues messages for delivery.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct {
	log *zap.Logger
}

// NewLogSender creates a new LogSender.
func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log.Named("mail")}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.log.Info("Email",
		zap.String("to", msg.Recipient),
		zap.String("subject", msg.Subject),
		zap.Int("body_bytes", len(msg.Body)),
	)
	return nil
}

// deliver sends msg and logs, never returns, a delivery failure.
func deliver(ctx context.Context, sender Sender, msg Message, log *zap.Logger) {
	if err := sender.Send(ctx, msg); err != nil {
		log.Error("Failed to send notification",
			zap.String("to", msg.Recipient),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
	}
}
