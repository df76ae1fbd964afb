package repositories

import (
	"context"
	"fmt"

	"cinema/internal/models"

	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

// Create inserts the order together with its items.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if err := conn(ctx, r.db).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", translate(err))
	}
	return nil
}

func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := conn(ctx, r.db).Preload("Items.Movie").First(&order, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, translate(err))
	}
	return &order, nil
}

// GetForUpdate loads the order and its items holding the order row lock.
func (r *GORMOrderRepository) GetForUpdate(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := forUpdate(conn(ctx, r.db)).First(&order, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to lock order %s: %w", id, translate(err))
	}
	if err := conn(ctx, r.db).Where("order_id = ?", id).Find(&order.Items).Error; err != nil {
		return nil, fmt.Errorf("failed to get items of order %s: %w", id, err)
	}
	return &order, nil
}

// List returns one page of orders, newest first, and the total match count.
func (r *GORMOrderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	q := conn(ctx, r.db).Model(&models.Order{})
	if filter.UserID != "" {
		q = q.Where("orders.user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("orders.status = ?", filter.Status)
	}
	q = createdBetween(q, "orders", filter.DateRange)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	orders := []models.Order{}
	err := paginate(q, filter.Page).
		Preload("Items.Movie").
		Order("orders.created_at DESC, orders.id").
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

// UpdateStatus moves the order from one status to another only if it still
// has the expected status.
func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) error {
	res := conn(ctx, r.db).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return fmt.Errorf("failed to update status of order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order %s %s -> %s: %w", id, from, to, ErrStaleStatus)
	}
	return nil
}

// HasPaidMovie reports whether the user owns a paid order containing the movie.
func (r *GORMOrderRepository) HasPaidMovie(ctx context.Context, userID, movieID string) (bool, error) {
	var n int64
	err := conn(ctx, r.db).Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND orders.status = ? AND order_items.movie_id = ?", userID, models.OrderPaid, movieID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check purchases of user %s: %w", userID, err)
	}
	return n > 0, nil
}
