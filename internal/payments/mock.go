package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// mockIdempotencyWindow is how many idempotency keys of each kind the mock
// remembers. The oldest key is forgotten first.
const mockIdempotencyWindow = 10000

// MockProcessor is an in-memory processor for development and tests. Webhooks
// are still verified with the Stripe signature scheme.
type MockProcessor struct {
	webhookSecret string

	mu      sync.Mutex
	intents *recentKeys[*Intent]
	refunds *recentKeys[string]
}

// NewMockProcessor creates a new MockProcessor.
func NewMockProcessor(webhookSecret string) *MockProcessor {
	return newMockProcessor(webhookSecret, mockIdempotencyWindow)
}

func newMockProcessor(webhookSecret string, window int) *MockProcessor {
	return &MockProcessor{
		webhookSecret: webhookSecret,
		intents:       newRecentKeys[*Intent](window),
		refunds:       newRecentKeys[string](window),
	}
}

func (p *MockProcessor) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("mock: amount must be positive, got %s", req.Amount)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if in, ok := p.intents.get(req.IdempotencyKey); ok && req.IdempotencyKey != "" {
		return in, nil
	}
	id := "pi_mock_" + uuid.NewString()
	in := &Intent{ID: id, ClientSecret: id + "_secret_" + uuid.NewString()}
	if req.IdempotencyKey != "" {
		p.intents.put(req.IdempotencyKey, in)
	}
	return in, nil
}

func (p *MockProcessor) CreateRefund(ctx context.Context, intentID, idempotencyKey string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if id, ok := p.refunds.get(idempotencyKey); ok && idempotencyKey != "" {
		return id, nil
	}
	id := "re_mock_" + uuid.NewString()
	if idempotencyKey != "" {
		p.refunds.put(idempotencyKey, id)
	}
	return id, nil
}

// recentKeys maps the most recent keys to values. Not safe for concurrent use.
type recentKeys[V any] struct {
	size   int
	values map[string]V
	order  []string
	next   int
}

func newRecentKeys[V any](size int) *recentKeys[V] {
	if size < 1 {
		size = 1
	}
	return &recentKeys[V]{size: size, values: make(map[string]V)}
}

func (r *recentKeys[V]) get(key string) (V, bool) {
	v, ok := r.values[key]
	return v, ok
}

func (r *recentKeys[V]) put(key string, v V) {
	if _, ok := r.values[key]; ok {
		r.values[key] = v
		return
	}
	if len(r.order) < r.size {
		r.order = append(r.order, key)
	} else {
		delete(r.values, r.order[r.next])
		r.order[r.next] = key
		r.next = (r.next + 1) % len(r.order)
	}
	r.values[key] = v
}

func (r *recentKeys[V]) len() int {
	return len(r.values)
}

func (p *MockProcessor) ParseEvent(payload []byte, signature string) (*Event, error) {
	return parseEvent(payload, signature, p.webhookSecret)
}

// EventPayload builds a Stripe-shaped event body for the given intent.
func EventPayload(eventType, intentID string) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"id":          "evt_" + uuid.NewString(),
		"object":      "event",
		"type":        eventType,
		"created":     time.Now().Unix(),
		"api_version": "2024-09-30.acacia",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":     intentID,
				"object": "payment_intent",
				"status": "succeeded",
			},
		},
	})
	return body
}
