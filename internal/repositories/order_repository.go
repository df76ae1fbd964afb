package repositories

import (
	"context"

	"cinema/internal/models"
)

// OrderFilter narrows an order listing. An empty UserID lists every user's orders.
type OrderFilter struct {
	UserID string
	Status models.OrderStatus
	DateRange
	Page
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetForUpdate(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error)
	UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) error
	HasPaidMovie(ctx context.Context, userID, movieID string) (bool, error)
}
