package payments

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
)

// StripeProcessor creates intents and refunds through the Stripe API.
type StripeProcessor struct {
	sc            *client.API
	webhookSecret string
}

// NewStripeProcessor builds a processor with its own API client instead of the
// package-level stripe.Key.
func NewStripeProcessor(apiKey, webhookSecret string) *StripeProcessor {
	return &StripeProcessor{
		sc:            client.New(apiKey, nil),
		webhookSecret: webhookSecret,
	}
}

func (p *StripeProcessor) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(MinorUnits(req.Amount)),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("order_id", req.OrderID)
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := p.sc.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create payment intent for order %s: %w", req.OrderID, err)
	}
	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (p *StripeProcessor) CreateRefund(ctx context.Context, intentID, idempotencyKey string) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	re, err := p.sc.Refunds.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: refund payment intent %s: %w", intentID, err)
	}
	return re.ID, nil
}

func (p *StripeProcessor) ParseEvent(payload []byte, signature string) (*Event, error) {
	return parseEvent(payload, signature, p.webhookSecret)
}
