package services

import (
	"context"
	"errors"

	"cinema/internal/apperr"
	"cinema/internal/logging"
	"cinema/internal/models"
	"cinema/internal/payments"
	"cinema/internal/worker"

	"go.uber.org/zap"
)

// Confirmer settles a payment by its processor reference.
type Confirmer interface {
	Confirm(ctx context.Context, externalID string) (*models.Payment, bool, error)
}

// WebhookService verifies processor events and hands confirmations to a
// background worker pool so the processor gets its acknowledgement quickly.
type WebhookService struct {
	processor payments.Processor
	confirmer Confirmer
	pool      *worker.Pool
	log       *zap.Logger
}

// NewWebhookService creates a new WebhookService on a started pool.
func NewWebhookService(processor payments.Processor, confirmer Confirmer, pool *worker.Pool, log *zap.Logger) *WebhookService {
	return &WebhookService{
		processor: processor,
		confirmer: confirmer,
		pool:      pool,
		log:       log.Named("webhook"),
	}
}

// Handle verifies a raw event and schedules its processing. Events other
// than a succeeded payment intent are acknowledged and ignored.
func (s *WebhookService) Handle(ctx context.Context, payload []byte, signature string) error {
	log := logging.FromContext(ctx, s.log)
	event, err := s.processor.ParseEvent(payload, signature)
	if err != nil {
		log.Warn("Rejected webhook", zap.Error(err))
		return apperr.ErrInvalidSignature.With(err)
	}

	if event.Type != payments.EventPaymentSucceeded || event.IntentID == "" {
		log.Debug("Ignoring webhook event", zap.String("event_id", event.ID), zap.String("type", event.Type))
		return nil
	}

	intentID := event.IntentID
	err = s.pool.Submit(worker.Job{
		Name: "confirm " + event.ID,
		Run: func(ctx context.Context) error {
			_, changed, err := s.confirmer.Confirm(ctx, intentID)
			if err != nil {
				return err
			}
			log.Debug("Webhook processed", zap.String("intent_id", intentID), zap.Bool("changed", changed))
			return nil
		},
	})
	if errors.Is(err, worker.ErrQueueFull) || errors.Is(err, worker.ErrClosed) {
		log.Warn("Webhook queue unavailable", zap.String("event_id", event.ID), zap.Error(err))
		return apperr.ErrServiceOverloaded.With(err)
	}
	if err != nil {
		return err
	}

	log.Info("Webhook accepted", zap.String("event_id", event.ID), zap.String("intent_id", intentID))
	return nil
}
