package payments_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cinema/internal/payments"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80/webhook"
)

const secret = "whsec_test"

func sign(payload []byte, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  secret,
	}).Header
}

func TestParseEventVerifiesSignature(t *testing.T) {
	p := payments.NewMockProcessor(secret)
	payload := payments.EventPayload(payments.EventPaymentSucceeded, "pi_mock_1")

	ev, err := p.ParseEvent(payload, sign(payload, secret))
	require.NoError(t, err)
	assert.Equal(t, payments.EventPaymentSucceeded, ev.Type)
	assert.Equal(t, "pi_mock_1", ev.IntentID)

	_, err = p.ParseEvent(payload, sign(payload, "whsec_other"))
	assert.True(t, errors.Is(err, payments.ErrInvalidSignature))

	_, err = p.ParseEvent(payload, "")
	assert.True(t, errors.Is(err, payments.ErrInvalidSignature))
}

func TestParseEventRejectsTamperedPayload(t *testing.T) {
	p := payments.NewStripeProcessor("sk_test_unused", secret)
	payload := payments.EventPayload(payments.EventPaymentSucceeded, "pi_1")
	header := sign(payload, secret)

	tampered := []byte(strings.Replace(string(payload), "pi_1", "pi_2", 1))
	_, err := p.ParseEvent(tampered, header)
	assert.True(t, errors.Is(err, payments.ErrInvalidSignature))
}

func TestMockProcessorIdempotency(t *testing.T) {
	p := payments.NewMockProcessor(secret)
	ctx := context.Background()
	req := payments.IntentRequest{
		Amount:         decimal.RequireFromString("9.99"),
		Currency:       "usd",
		OrderID:        "order-1",
		IdempotencyKey: "order-1-attempt",
	}

	first, err := p.CreateIntent(ctx, req)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.ID, "pi_mock_"))
	assert.NotEmpty(t, first.ClientSecret)

	again, err := p.CreateIntent(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	r1, err := p.CreateRefund(ctx, first.ID, "refund-1")
	require.NoError(t, err)
	r2, err := p.CreateRefund(ctx, first.ID, "refund-1")
	require.NoError(t, err)
	assert.Equal(t, r1, r2)

	_, err = p.CreateIntent(ctx, payments.IntentRequest{Amount: decimal.Zero, Currency: "usd"})
	assert.Error(t, err)
}

func TestMinorUnits(t *testing.T) {
	assert.EqualValues(t, 999, payments.MinorUnits(decimal.RequireFromString("9.99")))
	assert.EqualValues(t, 1000, payments.MinorUnits(decimal.RequireFromString("9.995")))
	assert.EqualValues(t, 1500, payments.MinorUnits(decimal.NewFromInt(15)))
}
