package repositories

import (
	"context"
	"errors"
	"fmt"

	"cinema/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db *gorm.DB
}

// NewGORMCartRepository creates a new instance of GORMCartRepository.
func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{db: db}
}

// GetOrCreate returns the user's cart, creating it on first access. A lost
// creation race is resolved by the unique user_id index and a re-read.
func (r *GORMCartRepository) GetOrCreate(ctx context.Context, userID string) (*models.Cart, error) {
	db := conn(ctx, r.db)

	var cart models.Cart
	err := db.First(&cart, "user_id = ?", userID).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get cart of user %s: %w", userID, err)
	}

	cart = models.Cart{UserID: userID}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&cart).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create cart for user %s: %w", userID, err)
	}

	cart = models.Cart{}
	if err := db.First(&cart, "user_id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("failed to get cart of user %s: %w", userID, translate(err))
	}
	return &cart, nil
}

// LockByUser returns the user's cart row locked for the rest of the
// transaction bound to ctx.
func (r *GORMCartRepository) LockByUser(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := r.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	var locked models.Cart
	if err := forUpdate(conn(ctx, r.db)).First(&locked, "id = ?", cart.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to lock cart %s: %w", cart.ID, translate(err))
	}
	return &locked, nil
}

// Items returns the cart's items with movies preloaded, oldest first.
func (r *GORMCartRepository) Items(ctx context.Context, cartID string) ([]models.CartItem, error) {
	items := []models.CartItem{}
	err := conn(ctx, r.db).
		Preload("Movie").
		Where("cart_id = ?", cartID).
		Order("added_at, id").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get items of cart %s: %w", cartID, err)
	}
	return items, nil
}

func (r *GORMCartRepository) HasMovie(ctx context.Context, cartID, movieID string) (bool, error) {
	var n int64
	err := conn(ctx, r.db).Model(&models.CartItem{}).
		Where("cart_id = ? AND movie_id = ?", cartID, movieID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check cart %s: %w", cartID, err)
	}
	return n > 0, nil
}

// AddItem inserts an item; a movie already in the cart yields ErrDuplicate.
func (r *GORMCartRepository) AddItem(ctx context.Context, item *models.CartItem) error {
	if err := conn(ctx, r.db).Omit("Movie").Create(item).Error; err != nil {
		return fmt.Errorf("failed to add movie %s to cart %s: %w", item.MovieID, item.CartID, translate(err))
	}
	return nil
}

// RemoveItem deletes an item only when it belongs to cartID.
func (r *GORMCartRepository) RemoveItem(ctx context.Context, cartID, itemID string) error {
	res := conn(ctx, r.db).Delete(&models.CartItem{}, "id = ? AND cart_id = ?", itemID, cartID)
	if res.Error != nil {
		return fmt.Errorf("failed to remove cart item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cart item %s: %w", itemID, ErrNotFound)
	}
	return nil
}

func (r *GORMCartRepository) Clear(ctx context.Context, cartID string) (int64, error) {
	res := conn(ctx, r.db).Delete(&models.CartItem{}, "cart_id = ?", cartID)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to clear cart %s: %w", cartID, res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteItems deletes exactly the given items of the cart and reports how many
// rows were removed.
func (r *GORMCartRepository) DeleteItems(ctx context.Context, cartID string, itemIDs []string) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	res := conn(ctx, r.db).Delete(&models.CartItem{}, "cart_id = ? AND id IN ?", cartID, itemIDs)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete items of cart %s: %w", cartID, res.Error)
	}
	return res.RowsAffected, nil
}
