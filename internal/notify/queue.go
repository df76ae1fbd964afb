package notify

import (
	"context"
	"fmt"

	"cinema/internal/worker"

	"go.uber.org/zap"
)

// QueuePublisher delivers messages on an in-process worker pool.
type QueuePublisher struct {
	pool   *worker.Pool
	sender Sender
	log    *zap.Logger
}

// NewQueuePublisher creates a publisher on a started pool.
func NewQueuePublisher(pool *worker.Pool, sender Sender, log *zap.Logger) *QueuePublisher {
	return &QueuePublisher{pool: pool, sender: sender, log: log}
}

func (p *QueuePublisher) Publish(ctx context.Context, msg Message) error {
	err := p.pool.Submit(worker.Job{
		Name: "notify",
		Run: func(ctx context.Context) error {
			deliver(ctx, p.sender, msg, p.log)
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}
