package services

import (
	"context"
	"errors"

	"cinema/internal/access"
	"cinema/internal/apperr"
	"cinema/internal/models"
	"cinema/internal/repositories"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderQuery are the filters of an order listing.
type OrderQuery struct {
	Status string
	ListParams
}

// CheckoutResult is the order created from a cart and, when requested, the
// payment opened for it.
type CheckoutResult struct {
	Order   *models.Order
	Payment *PaymentResult
}

// OrderService handles business logic related to orders.
type OrderService struct {
	cartRepo    repositories.CartRepository
	orderRepo   repositories.OrderRepository
	paymentRepo repositories.PaymentRepository
	payments    *PaymentService
	tx          Transactor
	log         *zap.Logger
}

// NewOrderService creates a new OrderService.
func NewOrderService(
	cartRepo repositories.CartRepository,
	orderRepo repositories.OrderRepository,
	paymentRepo repositories.PaymentRepository,
	payments *PaymentService,
	tx Transactor,
	log *zap.Logger,
) *OrderService {
	return &OrderService{
		cartRepo:    cartRepo,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		payments:    payments,
		tx:          tx,
		log:         log.Named("orders"),
	}
}

// CreateFromCart turns the actor's cart into a pending order with frozen
// prices and empties the cart. With withPayment set a payment is opened too;
// if that fails the order is still returned alongside the error.
func (s *OrderService) CreateFromCart(ctx context.Context, actor access.Actor, withPayment bool) (*CheckoutResult, error) {
	var orderID string
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		cart, err := s.cartRepo.LockByUser(ctx, actor.UserID)
		if err != nil {
			return err
		}
		items, err := s.cartRepo.Items(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return apperr.ErrCartEmpty
		}

		order := &models.Order{
			UserID: actor.UserID,
			Status: models.OrderPending,
			Items:  make([]models.OrderItem, 0, len(items)),
		}
		total := decimal.Zero
		ids := make([]string, 0, len(items))
		for _, item := range items {
			if item.Movie == nil {
				return apperr.ErrMovieNotFound
			}
			total = total.Add(item.Movie.Price)
			order.Items = append(order.Items, models.OrderItem{
				MovieID:      item.MovieID,
				PriceAtOrder: item.Movie.Price,
			})
			ids = append(ids, item.ID)
		}
		order.TotalAmount = total

		if err := s.orderRepo.Create(ctx, order); err != nil {
			return err
		}

		removed, err := s.cartRepo.DeleteItems(ctx, cart.ID, ids)
		if err != nil {
			return err
		}
		if removed != int64(len(ids)) {
			return apperr.ErrCheckoutConflict
		}
		orderID = order.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.log.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", actor.UserID),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)

	result := &CheckoutResult{Order: order}
	if !withPayment {
		return result, nil
	}
	result.Payment, err = s.payments.CreatePayment(ctx, actor, order.ID)
	if err != nil {
		return result, err
	}
	return result, nil
}

// List returns the actor's orders, or everybody's for roles that may see them.
func (s *OrderService) List(ctx context.Context, actor access.Actor, q OrderQuery) ([]models.Order, int64, error) {
	filter := repositories.OrderFilter{
		DateRange: q.dates(),
		Page:      q.page(),
	}
	if !actor.Can(access.ViewAllOrders) {
		filter.UserID = actor.UserID
	}
	if q.Status != "" {
		status, err := models.ParseOrderStatus(q.Status)
		if err != nil {
			return nil, 0, apperr.ErrValidation.With(err)
		}
		filter.Status = status
	}
	return s.orderRepo.List(ctx, filter)
}

// Get returns one order. Orders of other users look missing unless the actor
// may view all orders.
func (s *OrderService) Get(ctx context.Context, actor access.Actor, id string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, apperr.ErrOrderNotFound)
	}
	if order.UserID != actor.UserID && !actor.Can(access.ViewAllOrders) {
		return nil, apperr.ErrOrderNotFound
	}
	return order, nil
}

// Pay opens a payment for one of the actor's pending orders.
func (s *OrderService) Pay(ctx context.Context, actor access.Actor, id string) (*PaymentResult, error) {
	return s.payments.CreatePayment(ctx, actor, id)
}

// Cancel cancels a pending order of the actor along with its pending payments.
func (s *OrderService) Cancel(ctx context.Context, actor access.Actor, id string) (*models.Order, error) {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := s.orderRepo.GetForUpdate(ctx, id)
		if err != nil {
			return notFoundAs(err, apperr.ErrOrderNotFound)
		}
		if order.UserID != actor.UserID {
			return apperr.ErrOrderNotFound
		}
		next, err := order.Status.Next(models.OrderEventCancel)
		if err != nil {
			return apperr.ErrCannotCancel
		}
		if err := s.orderRepo.UpdateStatus(ctx, order.ID, order.Status, next); err != nil {
			if errors.Is(err, repositories.ErrStaleStatus) {
				return apperr.ErrCannotCancel
			}
			return err
		}

		canceled, err := models.PaymentPending.Next(models.PaymentEventCancel)
		if err != nil {
			return err
		}
		n, err := s.paymentRepo.UpdateStatusByOrder(ctx, order.ID, models.PaymentPending, canceled)
		if err != nil {
			return err
		}
		if n > 0 {
			s.log.Info("Canceled pending payments", zap.String("order_id", order.ID), zap.Int64("count", n))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Order canceled", zap.String("order_id", id), zap.String("user_id", actor.UserID))
	return s.orderRepo.GetByID(ctx, id)
}
