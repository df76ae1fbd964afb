package repositories

import (
	"context"
	"fmt"

	"cinema/internal/models"

	"gorm.io/gorm"
)

// GORMPaymentRepository is a GORM implementation of PaymentRepository.
type GORMPaymentRepository struct {
	db *gorm.DB
}

// NewGORMPaymentRepository creates a new instance of GORMPaymentRepository.
func NewGORMPaymentRepository(db *gorm.DB) *GORMPaymentRepository {
	return &GORMPaymentRepository{db: db}
}

// Create inserts the payment together with its items.
func (r *GORMPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if err := conn(ctx, r.db).Create(payment).Error; err != nil {
		return fmt.Errorf("failed to create payment: %w", translate(err))
	}
	return nil
}

func (r *GORMPaymentRepository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	if err := conn(ctx, r.db).Preload("Items").First(&payment, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get payment by ID %s: %w", id, translate(err))
	}
	return &payment, nil
}

// GetByExternalID looks a payment up by the processor's intent id.
func (r *GORMPaymentRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Payment, error) {
	var payment models.Payment
	if err := conn(ctx, r.db).First(&payment, "external_payment_id = ?", externalID).Error; err != nil {
		return nil, fmt.Errorf("failed to get payment by external ID %s: %w", externalID, translate(err))
	}
	return &payment, nil
}

// GetForUpdate loads the payment holding its row lock.
func (r *GORMPaymentRepository) GetForUpdate(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	if err := forUpdate(conn(ctx, r.db)).First(&payment, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to lock payment %s: %w", id, translate(err))
	}
	return &payment, nil
}

// List returns one page of payments, newest first, and the total match count.
func (r *GORMPaymentRepository) List(ctx context.Context, filter PaymentFilter) ([]models.Payment, int64, error) {
	q := conn(ctx, r.db).Model(&models.Payment{})
	if filter.UserID != "" {
		q = q.Where("payments.user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("payments.status = ?", filter.Status)
	}
	q = createdBetween(q, "payments", filter.DateRange)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	payments := []models.Payment{}
	err := paginate(q, filter.Page).
		Preload("Items").
		Order("payments.created_at DESC, payments.id").
		Find(&payments).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, total, nil
}

// UpdateStatus moves the payment from one status to another only if it still
// has the expected status.
func (r *GORMPaymentRepository) UpdateStatus(ctx context.Context, id string, from, to models.PaymentStatus) error {
	res := conn(ctx, r.db).Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return fmt.Errorf("failed to update status of payment %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("payment %s %s -> %s: %w", id, from, to, ErrStaleStatus)
	}
	return nil
}

// UpdateStatusByOrder moves every payment of the order that has status from to
// status to, returning how many changed.
func (r *GORMPaymentRepository) UpdateStatusByOrder(ctx context.Context, orderID string, from, to models.PaymentStatus) (int64, error) {
	res := conn(ctx, r.db).Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", orderID, from).
		Update("status", to)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to update payments of order %s: %w", orderID, res.Error)
	}
	return res.RowsAffected, nil
}

func (r *GORMPaymentRepository) SetRefundID(ctx context.Context, id, refundID string) error {
	res := conn(ctx, r.db).Model(&models.Payment{}).Where("id = ?", id).Update("external_refund_id", refundID)
	if res.Error != nil {
		return fmt.Errorf("failed to store refund of payment %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("payment %s: %w", id, ErrNotFound)
	}
	return nil
}
