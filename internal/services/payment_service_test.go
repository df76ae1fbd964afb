package services_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"cinema/internal/access"
	"cinema/internal/apperr"
	"cinema/internal/models"
	"cinema/internal/notify"
	"cinema/internal/payments"
	"cinema/internal/services"
	"cinema/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80/webhook"
	"go.uber.org/zap"
)

func TestConfirmSettlesOrderOnce(t *testing.T) {
	s := newMockShop(t)
	ctx := context.Background()
	alice := s.user(t, "alice@example.com", access.RoleUser)
	res := s.checkout(t, alice, s.movie(t, "The Matrix", "9.99"))
	intentID := res.Payment.Payment.ExternalPaymentID

	payment, changed, err := s.payments.Confirm(ctx, intentID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.PaymentSuccessful, payment.Status)

	payment, changed, err = s.payments.Confirm(ctx, intentID)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, models.PaymentSuccessful, payment.Status)

	order, err := s.orders.Get(ctx, alice, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, order.Status)

	s.publisher.AssertNumberOfCalls(t, "Publish", 1)
	s.publisher.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(msg notify.Message) bool {
		return msg.Recipient == "alice@example.com" && strings.Contains(msg.Body, "9.99")
	}))
}

func TestConfirmUnknownIntent(t *testing.T) {
	s := newMockShop(t)

	payment, changed, err := s.payments.Confirm(context.Background(), "pi_unknown")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Nil(t, payment)
	s.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestConfirmAfterCancelRefundsCharge(t *testing.T) {
	s := newMockShop(t)
	ctx := context.Background()
	alice := s.user(t, "alice@example.com", access.RoleUser)
	res := s.checkout(t, alice, s.movie(t, "The Matrix", "9.99"))
	intentID := res.Payment.Payment.ExternalPaymentID

	_, err := s.orders.Cancel(ctx, alice, res.Order.ID)
	require.NoError(t, err)

	payment, changed, err := s.payments.Confirm(ctx, intentID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.PaymentRefunded, payment.Status)
	require.NotNil(t, payment.ExternalRefundID)
	assert.True(t, strings.HasPrefix(*payment.ExternalRefundID, "re_mock_"))

	order, err := s.orders.Get(ctx, alice, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCanceled, order.Status)

	again, changed, err := s.payments.Confirm(ctx, intentID)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, *payment.ExternalRefundID, *again.ExternalRefundID)
	s.publisher.AssertNumberOfCalls(t, "Publish", 1)
}

func TestConfirmSecondAttemptOnPaidOrder(t *testing.T) {
	processor := new(MockProcessor)
	processor.On("CreateIntent", mock.Anything, mock.Anything).Return(&payments.Intent{ID: "pi_first", ClientSecret: "s1"}, nil).Once()
	processor.On("CreateIntent", mock.Anything, mock.Anything).Return(&payments.Intent{ID: "pi_second", ClientSecret: "s2"}, nil).Once()
	s := newShop(t, processor, false)
	ctx := context.Background()
	alice := s.user(t, "alice@example.com", access.RoleUser)

	_, err := s.carts.AddItem(ctx, alice.UserID, s.movie(t, "The Matrix", "9.99").ID)
	require.NoError(t, err)
	res, err := s.orders.CreateFromCart(ctx, alice, false)
	require.NoError(t, err)
	_, err = s.orders.Pay(ctx, alice, res.Order.ID)
	require.NoError(t, err)
	second, err := s.orders.Pay(ctx, alice, res.Order.ID)
	require.NoError(t, err)

	_, changed, err := s.payments.Confirm(ctx, "pi_first")
	require.NoError(t, err)
	assert.True(t, changed)

	var stored models.Payment
	require.NoError(t, s.db.First(&stored, "id = ?", second.Payment.ID).Error)
	assert.Equal(t, models.PaymentCanceled, stored.Status)

	processor.On("CreateRefund", mock.Anything, "pi_second", "refund-"+second.Payment.ID).Return("re_second", nil).Once()
	payment, changed, err := s.payments.Confirm(ctx, "pi_second")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.PaymentRefunded, payment.Status)
	require.NotNil(t, payment.ExternalRefundID)
	assert.Equal(t, "re_second", *payment.ExternalRefundID)

	order, err := s.orders.Get(ctx, alice, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, order.Status)
	processor.AssertExpectations(t)
}

func TestConfirmReversalFailureKeepsPayment(t *testing.T) {
	processor := new(MockProcessor)
	processor.On("CreateIntent", mock.Anything, mock.Anything).Return(&payments.Intent{ID: "pi_1", ClientSecret: "secret"}, nil)
	processor.On("CreateRefund", mock.Anything, "pi_1", mock.Anything).Return("", errors.New("timeout"))
	s := newShop(t, processor, false)
	ctx := context.Background()
	alice := s.user(t, "alice@example.com", access.RoleUser)
	res := s.checkout(t, alice, s.movie(t, "The Matrix", "9.99"))

	_, err := s.orders.Cancel(ctx, alice, res.Order.ID)
	require.NoError(t, err)

	_, changed, err := s.payments.Confirm(ctx, "pi_1")
	assert.True(t, errors.Is(err, apperr.ErrPaymentProcessor))
	assert.False(t, changed)

	var stored models.Payment
	require.NoError(t, s.db.First(&stored, "id = ?", res.Payment.Payment.ID).Error)
	assert.Equal(t, models.PaymentCanceled, stored.Status)
	assert.Nil(t, stored.ExternalRefundID)
}

func TestRefund(t *testing.T) {
	s := newMockShop(t)
	ctx := context.Background()
	alice := s.user(t, "alice@example.com", access.RoleUser)
	mod := s.user(t, "mod@example.com", access.RoleModerator)
	payment := s.paid(t, alice, s.movie(t, "The Matrix", "9.99"))

	_, err := s.payments.Refund(ctx, alice, payment.ID)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	refunded, err := s.payments.Refund(ctx, mod, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, refunded.Status)
	require.NotNil(t, refunded.ExternalRefundID)
	assert.NotEmpty(t, *refunded.ExternalRefundID)

	order, err := s.orders.Get(ctx, alice, payment.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCanceled, order.Status)

	_, err = s.payments.Refund(ctx, mod, payment.ID)
	assert.True(t, errors.Is(err, apperr.ErrCannotRefund))

	_, err = s.payments.Refund(ctx, mod, "missing")
	assert.True(t, errors.Is(err, apperr.ErrPaymentNotFound))

	s.publisher.AssertNumberOfCalls(t, "Publish", 2)
}

func TestRefundPendingPayment(t *testing.T) {
	s := newMockShop(t)
	alice := s.user(t, "alice@example.com", access.RoleUser)
	mod := s.user(t, "mod@example.com", access.RoleModerator)
	res := s.checkout(t, alice, s.movie(t, "The Matrix", "9.99"))

	_, err := s.payments.Refund(context.Background(), mod, res.Payment.Payment.ID)
	assert.True(t, errors.Is(err, apperr.ErrCannotRefund))
}

func TestRefundCanceledPayment(t *testing.T) {
	processor := new(MockProcessor)
	processor.On("CreateIntent", mock.Anything, mock.Anything).Return(&payments.Intent{ID: "pi_1", ClientSecret: "secret"}, nil)
	s := newShop(t, processor, false)
	ctx := context.Background()
	alice := s.user(t, "alice@example.com", access.RoleUser)
	admin := s.user(t, "admin@example.com", access.RoleAdmin)
	res := s.checkout(t, alice, s.movie(t, "The Matrix", "9.99"))

	_, err := s.orders.Cancel(ctx, alice, res.Order.ID)
	require.NoError(t, err)

	_, err = s.payments.Refund(ctx, admin, res.Payment.Payment.ID)
	assert.True(t, errors.Is(err, apperr.ErrCannotRefund))
	processor.AssertNotCalled(t, "CreateRefund", mock.Anything, mock.Anything, mock.Anything)

	var stored models.Payment
	require.NoError(t, s.db.First(&stored, "id = ?", res.Payment.Payment.ID).Error)
	assert.Equal(t, models.PaymentCanceled, stored.Status)
	assert.Nil(t, stored.ExternalRefundID)
	s.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestRefundProcessorFailureKeepsPayment(t *testing.T) {
	processor := new(MockProcessor)
	processor.On("CreateIntent", mock.Anything, mock.Anything).Return(&payments.Intent{ID: "pi_1", ClientSecret: "secret"}, nil)
	processor.On("CreateRefund", mock.Anything, "pi_1", mock.Anything).Return("", errors.New("timeout"))
	s := newShop(t, processor, false)
	ctx := context.Background()
	alice := s.user(t, "alice@example.com", access.RoleUser)
	admin := s.user(t, "admin@example.com", access.RoleAdmin)
	payment := s.paid(t, alice, s.movie(t, "The Matrix", "9.99"))

	_, err := s.payments.Refund(ctx, admin, payment.ID)
	assert.True(t, errors.Is(err, apperr.ErrPaymentProcessor))

	var stored models.Payment
	require.NoError(t, s.db.First(&stored, "id = ?", payment.ID).Error)
	assert.Equal(t, models.PaymentSuccessful, stored.Status)
}

func TestPaymentListScoping(t *testing.T) {
	s := newMockShop(t)
	ctx := context.Background()
	alice := s.user(t, "alice@example.com", access.RoleUser)
	bob := s.user(t, "bob@example.com", access.RoleUser)
	mod := s.user(t, "mod@example.com", access.RoleModerator)
	s.paid(t, alice, s.movie(t, "The Matrix", "9.99"))
	s.checkout(t, bob, s.movie(t, "Heat", "4.99"))

	list, total, err := s.payments.List(ctx, bob, services.PaymentQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, bob.UserID, list[0].UserID)

	_, total, err = s.payments.List(ctx, mod, services.PaymentQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	_, total, err = s.payments.List(ctx, mod, services.PaymentQuery{Status: "successful"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestSimulateSuccess(t *testing.T) {
	s := newMockShop(t)
	ctx := context.Background()
	alice := s.user(t, "alice@example.com", access.RoleUser)
	mod := s.user(t, "mod@example.com", access.RoleModerator)
	res := s.checkout(t, alice, s.movie(t, "The Matrix", "9.99"))

	_, err := s.payments.SimulateSuccess(ctx, alice, res.Payment.Payment.ID)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	payment, err := s.payments.SimulateSuccess(ctx, mod, res.Payment.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccessful, payment.Status)

	_, err = s.payments.SimulateSuccess(ctx, mod, res.Payment.Payment.ID)
	assert.True(t, errors.Is(err, apperr.ErrCannotPay))
}

func TestSimulateSuccessDisabled(t *testing.T) {
	s := newShop(t, new(MockProcessor), false)
	mod := s.user(t, "mod@example.com", access.RoleModerator)

	_, err := s.payments.SimulateSuccess(context.Background(), mod, "any")
	assert.True(t, errors.Is(err, apperr.ErrMockPaymentsOff))
}

// recordingConfirmer captures the intents handed to it by the webhook workers.
type recordingConfirmer struct {
	mu      sync.Mutex
	intents []string
	done    chan struct{}
}

func (r *recordingConfirmer) Confirm(ctx context.Context, externalID string) (*models.Payment, bool, error) {
	r.mu.Lock()
	r.intents = append(r.intents, externalID)
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil, true, nil
}

func signed(payload []byte, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: secret}).Header
}

func TestWebhookServiceHandle(t *testing.T) {
	processor := payments.NewMockProcessor(webhookSecret)
	confirmer := &recordingConfirmer{done: make(chan struct{}, 1)}
	pool := worker.NewPool("webhooks", 1, 4, time.Second, zap.NewNop())
	pool.Start()
	t.Cleanup(func() { pool.Close(context.Background()) })
	svc := services.NewWebhookService(processor, confirmer, pool, zap.NewNop())
	ctx := context.Background()

	payload := payments.EventPayload(payments.EventPaymentSucceeded, "pi_mock_42")
	require.NoError(t, svc.Handle(ctx, payload, signed(payload, webhookSecret)))

	select {
	case <-confirmer.done:
	case <-time.After(2 * time.Second):
		t.Fatal("confirmation was not processed")
	}
	assert.Equal(t, []string{"pi_mock_42"}, confirmer.intents)

	err := svc.Handle(ctx, payload, signed(payload, "whsec_wrong"))
	assert.True(t, errors.Is(err, apperr.ErrInvalidSignature))

	other := payments.EventPayload("payment_intent.created", "pi_mock_43")
	require.NoError(t, svc.Handle(ctx, other, signed(other, webhookSecret)))
}

func TestWebhookServiceOverloaded(t *testing.T) {
	processor := payments.NewMockProcessor(webhookSecret)
	confirmer := &recordingConfirmer{done: make(chan struct{}, 2)}
	pool := worker.NewPool("webhooks", 1, 1, time.Second, zap.NewNop())
	t.Cleanup(func() { pool.Close(context.Background()) })
	svc := services.NewWebhookService(processor, confirmer, pool, zap.NewNop())
	ctx := context.Background()

	payload := payments.EventPayload(payments.EventPaymentSucceeded, "pi_mock_1")
	require.NoError(t, svc.Handle(ctx, payload, signed(payload, webhookSecret)))

	err := svc.Handle(ctx, payload, signed(payload, webhookSecret))
	assert.True(t, errors.Is(err, apperr.ErrServiceOverloaded))
}

func TestTokenCleanerSweep(t *testing.T) {
	tokens := new(MockTokenRepository)
	tokens.On("DeleteExpired", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(3), nil).Once()
	tokens.On("DeleteExpired", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(0), errors.New("db down")).Once()
	cleaner := services.NewTokenCleaner(tokens, time.Hour, zap.NewNop())

	assert.EqualValues(t, 3, cleaner.Sweep(context.Background()))
	assert.EqualValues(t, 0, cleaner.Sweep(context.Background()))
	tokens.AssertExpectations(t)
}

func TestTokenCleanerRunStopsWithContext(t *testing.T) {
	tokens := new(MockTokenRepository)
	tokens.On("DeleteExpired", mock.Anything, mock.Anything).Return(int64(0), nil)
	cleaner := services.NewTokenCleaner(tokens, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cleaner.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cleaner did not stop")
	}
}
