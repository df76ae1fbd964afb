package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"cinema/pkg/rabbitmq"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Broker is the part of the RabbitMQ client the publisher needs.
type Broker interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

// AMQPPublisher puts JSON messages on a durable RabbitMQ queue.
type AMQPPublisher struct {
	broker Broker
	queue  string
}

// NewAMQPPublisher creates a new AMQPPublisher.
func NewAMQPPublisher(broker Broker, queue string) *AMQPPublisher {
	return &AMQPPublisher{broker: broker, queue: queue}
}

func (p *AMQPPublisher) Publish(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	return p.broker.Publish(ctx, p.queue, body)
}

// Handler decodes queued messages and delivers them. Undecodable messages are
// rejected; delivery failures are logged and the message is acked.
func Handler(sender Sender, log *zap.Logger) rabbitmq.Handler {
	return func(ctx context.Context, d amqp.Delivery) error {
		var msg Message
		if err := json.Unmarshal(d.Body, &msg); err != nil {
			return fmt.Errorf("failed to decode notification: %w", err)
		}
		deliver(ctx, sender, msg, log)
		return nil
	}
}
