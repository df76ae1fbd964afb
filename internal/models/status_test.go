package models_test

import (
	"errors"
	"testing"

	"cinema/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from  models.OrderStatus
		event models.OrderEvent
		to    models.OrderStatus
		ok    bool
	}{
		{models.OrderPending, models.OrderEventPay, models.OrderPaid, true},
		{models.OrderPending, models.OrderEventCancel, models.OrderCanceled, true},
		{models.OrderPending, models.OrderEventRefund, models.OrderPending, false},
		{models.OrderPaid, models.OrderEventRefund, models.OrderCanceled, true},
		{models.OrderPaid, models.OrderEventCancel, models.OrderPaid, false},
		{models.OrderPaid, models.OrderEventPay, models.OrderPaid, false},
		{models.OrderCanceled, models.OrderEventCancel, models.OrderCanceled, false},
		{models.OrderCanceled, models.OrderEventPay, models.OrderCanceled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.event), func(t *testing.T) {
			next, err := tt.from.Next(tt.event)
			assert.Equal(t, tt.to, next)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, models.ErrIllegalTransition))
			}
		})
	}
}

func TestPaymentStatusTransitions(t *testing.T) {
	tests := []struct {
		from  models.PaymentStatus
		event models.PaymentEvent
		to    models.PaymentStatus
		ok    bool
	}{
		{models.PaymentPending, models.PaymentEventConfirm, models.PaymentSuccessful, true},
		{models.PaymentPending, models.PaymentEventCancel, models.PaymentCanceled, true},
		{models.PaymentPending, models.PaymentEventRefund, models.PaymentPending, false},
		{models.PaymentSuccessful, models.PaymentEventRefund, models.PaymentRefunded, true},
		{models.PaymentSuccessful, models.PaymentEventConfirm, models.PaymentSuccessful, false},
		{models.PaymentRefunded, models.PaymentEventRefund, models.PaymentRefunded, false},
		{models.PaymentCanceled, models.PaymentEventConfirm, models.PaymentCanceled, false},
		{models.PaymentCanceled, models.PaymentEventRefund, models.PaymentCanceled, false},
		{models.PaymentPending, models.PaymentEventReverse, models.PaymentRefunded, true},
		{models.PaymentCanceled, models.PaymentEventReverse, models.PaymentRefunded, true},
		{models.PaymentSuccessful, models.PaymentEventReverse, models.PaymentSuccessful, false},
		{models.PaymentRefunded, models.PaymentEventReverse, models.PaymentRefunded, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.event), func(t *testing.T) {
			next, err := tt.from.Next(tt.event)
			assert.Equal(t, tt.to, next)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, models.ErrIllegalTransition))
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	s, err := models.ParseOrderStatus("paid")
	assert.NoError(t, err)
	assert.Equal(t, models.OrderPaid, s)
	_, err = models.ParseOrderStatus("shipped")
	assert.Error(t, err)

	p, err := models.ParsePaymentStatus("refunded")
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, p)
	_, err = models.ParsePaymentStatus("successful-ish")
	assert.Error(t, err)
}
