package services

import (
	"context"
	"errors"
	"fmt"

	"cinema/internal/access"
	"cinema/internal/apperr"
	"cinema/internal/models"
	"cinema/internal/notify"
	"cinema/internal/payments"
	"cinema/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentResult is a created payment and the secret the client needs to
// complete it with the processor.
type PaymentResult struct {
	Payment      *models.Payment
	ClientSecret string
}

// PaymentQuery are the filters of a payment listing.
type PaymentQuery struct {
	Status string
	ListParams
}

// PaymentService drives payments through their lifecycle.
type PaymentService struct {
	paymentRepo repositories.PaymentRepository
	orderRepo   repositories.OrderRepository
	userRepo    repositories.UserRepository
	processor   payments.Processor
	publisher   notify.Publisher
	tx          Transactor
	currency    string
	mockMode    bool
	log         *zap.Logger
}

// NewPaymentService creates a new PaymentService. mockMode enables simulated
// confirmations.
func NewPaymentService(
	paymentRepo repositories.PaymentRepository,
	orderRepo repositories.OrderRepository,
	userRepo repositories.UserRepository,
	processor payments.Processor,
	publisher notify.Publisher,
	tx Transactor,
	currency string,
	mockMode bool,
	log *zap.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		userRepo:    userRepo,
		processor:   processor,
		publisher:   publisher,
		tx:          tx,
		currency:    currency,
		mockMode:    mockMode,
		log:         log.Named("payments"),
	}
}

// CreatePayment opens a payment intent for a pending order of the actor.
func (s *PaymentService) CreatePayment(ctx context.Context, actor access.Actor, orderID string) (*PaymentResult, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, notFoundAs(err, apperr.ErrOrderNotFound)
	}
	if order.UserID != actor.UserID {
		return nil, apperr.ErrOrderNotFound
	}
	if _, err := order.Status.Next(models.OrderEventPay); err != nil {
		return nil, apperr.ErrCannotPay
	}

	payment := &models.Payment{
		Base:     models.Base{ID: uuid.NewString()},
		UserID:   order.UserID,
		OrderID:  order.ID,
		Status:   models.PaymentPending,
		Amount:   order.TotalAmount,
		Currency: s.currency,
	}

	intent, err := s.processor.CreateIntent(ctx, payments.IntentRequest{
		Amount:         order.TotalAmount,
		Currency:       s.currency,
		OrderID:        order.ID,
		IdempotencyKey: "payment-" + payment.ID,
	})
	if err != nil {
		s.log.Error("Failed to create payment intent", zap.String("order_id", order.ID), zap.Error(err))
		return nil, apperr.ErrPaymentProcessor.With(err)
	}
	payment.ExternalPaymentID = intent.ID

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.orderRepo.GetForUpdate(ctx, order.ID)
		if err != nil {
			return notFoundAs(err, apperr.ErrOrderNotFound)
		}
		if locked.Status != models.OrderPending {
			return apperr.ErrCannotPay
		}

		payment.Items = make([]models.PaymentItem, 0, len(locked.Items))
		for _, item := range locked.Items {
			payment.Items = append(payment.Items, models.PaymentItem{
				OrderItemID:    item.ID,
				PriceAtPayment: item.PriceAtOrder,
			})
		}
		return s.paymentRepo.Create(ctx, payment)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Payment created",
		zap.String("payment_id", payment.ID),
		zap.String("order_id", order.ID),
		zap.String("intent_id", intent.ID),
	)
	return &PaymentResult{Payment: payment, ClientSecret: intent.ClientSecret}, nil
}

// Confirm settles the payment with the given processor reference and its
// order. It reports whether anything changed: unknown references and payments
// already successful or refunded are no-ops. A captured payment that can no
// longer settle its order (canceled, or the order was paid by another
// attempt) is refunded at the processor instead.
func (s *PaymentService) Confirm(ctx context.Context, externalID string) (*models.Payment, bool, error) {
	payment, err := s.paymentRepo.GetByExternalID(ctx, externalID)
	if errors.Is(err, repositories.ErrNotFound) {
		s.log.Warn("Confirmation for unknown payment", zap.String("intent_id", externalID))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if settled(payment.Status) {
		s.log.Info("Skipping duplicate confirmation", zap.String("payment_id", payment.ID))
		return payment, false, nil
	}

	changed, reversed := false, false
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.paymentRepo.GetForUpdate(ctx, payment.ID)
		if err != nil {
			return err
		}
		if settled(locked.Status) {
			return nil
		}

		order, err := s.orderRepo.GetForUpdate(ctx, locked.OrderID)
		if err != nil {
			return err
		}
		next, payErr := locked.Status.Next(models.PaymentEventConfirm)
		orderNext, orderErr := order.Status.Next(models.OrderEventPay)
		if payErr != nil || orderErr != nil {
			if err := s.reverse(ctx, locked); err != nil {
				return fmt.Errorf("reverse payment %s of %s order %s: %w", locked.ID, order.Status, order.ID, err)
			}
			changed, reversed = true, true
			return nil
		}

		if err := s.paymentRepo.UpdateStatus(ctx, locked.ID, locked.Status, next); err != nil {
			return err
		}
		if err := s.orderRepo.UpdateStatus(ctx, order.ID, order.Status, orderNext); err != nil {
			return err
		}
		// Other open attempts on this order can no longer settle it.
		if _, err := s.paymentRepo.UpdateStatusByOrder(ctx, order.ID, models.PaymentPending, models.PaymentCanceled); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	payment, err = s.paymentRepo.GetByID(ctx, payment.ID)
	if err != nil {
		return nil, changed, err
	}
	switch {
	case reversed:
		s.log.Warn("Refunded payment that could not settle its order",
			zap.String("payment_id", payment.ID),
			zap.String("order_id", payment.OrderID),
		)
		s.notifyOwner(ctx, payment, notify.PaymentRefundedMessage)
	case changed:
		s.log.Info("Payment confirmed", zap.String("payment_id", payment.ID), zap.String("order_id", payment.OrderID))
		s.notifyOwner(ctx, payment, notify.PaymentConfirmedMessage)
	}
	return payment, changed, nil
}

func settled(status models.PaymentStatus) bool {
	return status == models.PaymentSuccessful || status == models.PaymentRefunded
}

// reverse refunds the captured charge of a locked payment and records it.
func (s *PaymentService) reverse(ctx context.Context, payment *models.Payment) error {
	next, err := payment.Status.Next(models.PaymentEventReverse)
	if err != nil {
		return err
	}
	refundID, err := s.processor.CreateRefund(ctx, payment.ExternalPaymentID, "refund-"+payment.ID)
	if err != nil {
		s.log.Error("Failed to refund unsettled payment", zap.String("payment_id", payment.ID), zap.Error(err))
		return apperr.ErrPaymentProcessor.With(err)
	}
	if err := s.paymentRepo.UpdateStatus(ctx, payment.ID, payment.Status, next); err != nil {
		return err
	}
	return s.paymentRepo.SetRefundID(ctx, payment.ID, refundID)
}

// Refund returns the money of a successful payment and cancels its order.
func (s *PaymentService) Refund(ctx context.Context, actor access.Actor, paymentID string) (*models.Payment, error) {
	if !actor.Can(access.RefundPayments) {
		return nil, apperr.ErrForbidden
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		payment, err := s.paymentRepo.GetForUpdate(ctx, paymentID)
		if err != nil {
			return notFoundAs(err, apperr.ErrPaymentNotFound)
		}
		next, err := payment.Status.Next(models.PaymentEventRefund)
		if err != nil {
			return apperr.ErrCannotRefund
		}

		order, err := s.orderRepo.GetForUpdate(ctx, payment.OrderID)
		if err != nil {
			return err
		}
		orderNext, err := order.Status.Next(models.OrderEventRefund)
		if err != nil {
			return apperr.ErrCannotRefund
		}

		refundID, err := s.processor.CreateRefund(ctx, payment.ExternalPaymentID, "refund-"+payment.ID)
		if err != nil {
			s.log.Error("Failed to refund payment", zap.String("payment_id", payment.ID), zap.Error(err))
			return apperr.ErrPaymentProcessor.With(err)
		}

		if err := s.paymentRepo.UpdateStatus(ctx, payment.ID, payment.Status, next); err != nil {
			return staleAs(err, apperr.ErrCannotRefund)
		}
		if err := s.paymentRepo.SetRefundID(ctx, payment.ID, refundID); err != nil {
			return err
		}
		if err := s.orderRepo.UpdateStatus(ctx, order.ID, order.Status, orderNext); err != nil {
			return staleAs(err, apperr.ErrCannotRefund)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	s.log.Info("Payment refunded", zap.String("payment_id", payment.ID), zap.String("by", actor.UserID))
	s.notifyOwner(ctx, payment, notify.PaymentRefundedMessage)
	return payment, nil
}

// List returns the actor's payments, or everybody's for roles that may see them.
func (s *PaymentService) List(ctx context.Context, actor access.Actor, q PaymentQuery) ([]models.Payment, int64, error) {
	filter := repositories.PaymentFilter{
		DateRange: q.dates(),
		Page:      q.page(),
	}
	if !actor.Can(access.ViewAllPayments) {
		filter.UserID = actor.UserID
	}
	if q.Status != "" {
		status, err := models.ParsePaymentStatus(q.Status)
		if err != nil {
			return nil, 0, apperr.ErrValidation.With(err)
		}
		filter.Status = status
	}
	return s.paymentRepo.List(ctx, filter)
}

// SimulateSuccess confirms a payment without a processor event. Only
// available with the mock processor.
func (s *PaymentService) SimulateSuccess(ctx context.Context, actor access.Actor, paymentID string) (*models.Payment, error) {
	if !s.mockMode {
		return nil, apperr.ErrMockPaymentsOff
	}
	if !actor.Can(access.SimulatePayments) {
		return nil, apperr.ErrForbidden
	}

	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, notFoundAs(err, apperr.ErrPaymentNotFound)
	}
	if payment.Status != models.PaymentPending {
		return nil, apperr.ErrCannotPay
	}
	order, err := s.orderRepo.GetByID(ctx, payment.OrderID)
	if err != nil {
		return nil, notFoundAs(err, apperr.ErrOrderNotFound)
	}
	if order.Status != models.OrderPending {
		return nil, apperr.ErrCannotPay
	}

	confirmed, _, err := s.Confirm(ctx, payment.ExternalPaymentID)
	if err != nil {
		if errors.Is(err, models.ErrIllegalTransition) || errors.Is(err, repositories.ErrStaleStatus) {
			return nil, apperr.ErrCannotPay.With(err)
		}
		return nil, err
	}
	if confirmed.Status != models.PaymentSuccessful {
		return nil, apperr.ErrCannotPay
	}
	return confirmed, nil
}

func (s *PaymentService) notifyOwner(ctx context.Context, payment *models.Payment, build func(string, string, decimal.Decimal, string) notify.Message) {
	user, err := s.userRepo.GetByID(ctx, payment.UserID)
	if err != nil {
		s.log.Error("Failed to load payment owner", zap.String("payment_id", payment.ID), zap.Error(err))
		return
	}
	msg := build(user.Email, payment.OrderID, payment.Amount, payment.Currency)
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.log.Error("Failed to enqueue notification", zap.String("payment_id", payment.ID), zap.Error(err))
	}
}

func staleAs(err error, appErr *apperr.Error) error {
	if errors.Is(err, repositories.ErrStaleStatus) {
		return appErr.With(err)
	}
	return err
}
