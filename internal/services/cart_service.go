package services

import (
	"context"
	"errors"

	"cinema/internal/apperr"
	"cinema/internal/models"
	"cinema/internal/repositories"

	"go.uber.org/zap"
)

// CartService manages the per-user shopping cart.
type CartService struct {
	carts  repositories.CartRepository
	movies repositories.MovieRepository
	orders repositories.OrderRepository
	tx     Transactor
	log    *zap.Logger
}

// NewCartService creates a new CartService.
func NewCartService(carts repositories.CartRepository, movies repositories.MovieRepository, orders repositories.OrderRepository, tx Transactor, log *zap.Logger) *CartService {
	return &CartService{
		carts:  carts,
		movies: movies,
		orders: orders,
		tx:     tx,
		log:    log.Named("cart"),
	}
}

// Get returns the user's cart with items, creating an empty cart on first access.
func (s *CartService) Get(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart.Items, err = s.carts.Items(ctx, cart.ID); err != nil {
		return nil, err
	}
	return cart, nil
}

// AddItem puts a movie in the user's cart.
func (s *CartService) AddItem(ctx context.Context, userID, movieID string) (*models.Cart, error) {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.movies.GetByID(ctx, movieID); err != nil {
			return notFoundAs(err, apperr.ErrMovieNotFound)
		}

		purchased, err := s.orders.HasPaidMovie(ctx, userID, movieID)
		if err != nil {
			return err
		}
		if purchased {
			return apperr.ErrAlreadyPurchased
		}

		cart, err := s.carts.LockByUser(ctx, userID)
		if err != nil {
			return err
		}
		inCart, err := s.carts.HasMovie(ctx, cart.ID, movieID)
		if err != nil {
			return err
		}
		if inCart {
			return apperr.ErrAlreadyInCart
		}

		if err := s.carts.AddItem(ctx, &models.CartItem{CartID: cart.ID, MovieID: movieID}); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return apperr.ErrAlreadyInCart
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// RemoveItem deletes an item from the user's own cart. Items of other carts
// are reported as not found.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) (*models.Cart, error) {
	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.carts.RemoveItem(ctx, cart.ID, itemID); err != nil {
		return nil, notFoundAs(err, apperr.ErrCartItemNotFound)
	}
	return s.Get(ctx, userID)
}

// Clear empties the user's cart.
func (s *CartService) Clear(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	n, err := s.carts.Clear(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	s.log.Debug("Cart cleared", zap.String("cart_id", cart.ID), zap.Int64("items", n))
	cart.Items = []models.CartItem{}
	return cart, nil
}
