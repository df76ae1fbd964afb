package repositories

import (
	"context"

	"cinema/internal/models"
)

// CartRepository defines the interface for cart data access.
type CartRepository interface {
	GetOrCreate(ctx context.Context, userID string) (*models.Cart, error)
	LockByUser(ctx context.Context, userID string) (*models.Cart, error)
	Items(ctx context.Context, cartID string) ([]models.CartItem, error)
	HasMovie(ctx context.Context, cartID, movieID string) (bool, error)
	AddItem(ctx context.Context, item *models.CartItem) error
	RemoveItem(ctx context.Context, cartID, itemID string) error
	Clear(ctx context.Context, cartID string) (int64, error)
	DeleteItems(ctx context.Context, cartID string, itemIDs []string) (int64, error)
}
