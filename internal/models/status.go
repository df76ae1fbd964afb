package models

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition is returned when a status has no transition for an event.
var ErrIllegalTransition = errors.New("illegal status transition")

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending  OrderStatus = "pending"
	OrderPaid     OrderStatus = "paid"
	OrderCanceled OrderStatus = "canceled"
)

// OrderEvent drives an order from one status to the next.
type OrderEvent string

const (
	OrderEventPay    OrderEvent = "pay"
	OrderEventCancel OrderEvent = "cancel"
	OrderEventRefund OrderEvent = "refund"
)

var orderTransitions = map[OrderStatus]map[OrderEvent]OrderStatus{
	OrderPending: {
		OrderEventPay:    OrderPaid,
		OrderEventCancel: OrderCanceled,
	},
	OrderPaid: {
		OrderEventRefund: OrderCanceled,
	},
}

// Next returns the status reached from s on event e.
func (s OrderStatus) Next(e OrderEvent) (OrderStatus, error) {
	if next, ok := orderTransitions[s][e]; ok {
		return next, nil
	}
	return s, fmt.Errorf("%w: order %s on %s", ErrIllegalTransition, s, e)
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPaid, OrderCanceled:
		return true
	}
	return false
}

// ParseOrderStatus converts user input into an OrderStatus.
func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return st, nil
}

// PaymentStatus is the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentSuccessful PaymentStatus = "successful"
	PaymentCanceled   PaymentStatus = "canceled"
	PaymentRefunded   PaymentStatus = "refunded"
)

// PaymentEvent drives a payment from one status to the next.
type PaymentEvent string

const (
	PaymentEventConfirm PaymentEvent = "confirm"
	PaymentEventCancel  PaymentEvent = "cancel"
	PaymentEventRefund  PaymentEvent = "refund"
	// PaymentEventReverse returns a charge the processor captured for a
	// payment that can no longer settle its order.
	PaymentEventReverse PaymentEvent = "reverse"
)

var paymentTransitions = map[PaymentStatus]map[PaymentEvent]PaymentStatus{
	PaymentPending: {
		PaymentEventConfirm: PaymentSuccessful,
		PaymentEventCancel:  PaymentCanceled,
		PaymentEventReverse: PaymentRefunded,
	},
	PaymentSuccessful: {
		PaymentEventRefund: PaymentRefunded,
	},
	PaymentCanceled: {
		PaymentEventReverse: PaymentRefunded,
	},
}

// Next returns the status reached from s on event e.
func (s PaymentStatus) Next(e PaymentEvent) (PaymentStatus, error) {
	if next, ok := paymentTransitions[s][e]; ok {
		return next, nil
	}
	return s, fmt.Errorf("%w: payment %s on %s", ErrIllegalTransition, s, e)
}

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentSuccessful, PaymentCanceled, PaymentRefunded:
		return true
	}
	return false
}

// ParsePaymentStatus converts user input into a PaymentStatus.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	st := PaymentStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown payment status %q", s)
	}
	return st, nil
}
