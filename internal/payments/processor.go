// Package payments talks to the external payment processor.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"
)

// EventPaymentSucceeded is the only event type that settles a payment.
const EventPaymentSucceeded = "payment_intent.succeeded"

// ErrInvalidSignature is returned when a webhook payload fails verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Intent is a created payment intent. ClientSecret lets the client complete
// the payment and must never be logged or stored.
type Intent struct {
	ID           string
	ClientSecret string
}

// IntentRequest describes the payment intent to create.
type IntentRequest struct {
	Amount         decimal.Decimal
	Currency       string
	OrderID        string
	IdempotencyKey string
}

// Event is a verified webhook event.
type Event struct {
	ID       string
	Type     string
	IntentID string // set for payment_intent.* events
}

// Processor is the payment processor used by the payment service.
type Processor interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	CreateRefund(ctx context.Context, intentID, idempotencyKey string) (string, error)
	ParseEvent(payload []byte, signature string) (*Event, error)
}

// MinorUnits converts an amount to the processor's integer minor units.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}

func parseEvent(payload []byte, signature, secret string) (*Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: ev.ID, Type: string(ev.Type)}
	if strings.HasPrefix(out.Type, "payment_intent.") && ev.Data != nil {
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("failed to decode payment intent of event %s: %w", ev.ID, err)
		}
		out.IntentID = pi.ID
	}
	return out, nil
}
