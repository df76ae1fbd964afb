package repositories

import (
	"context"

	"cinema/internal/models"
)

// PaymentFilter narrows a payment listing. An empty UserID lists every user's payments.
type PaymentFilter struct {
	UserID string
	Status models.PaymentStatus
	DateRange
	Page
}

// PaymentRepository defines the interface for payment data access.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.Payment, error)
	GetForUpdate(ctx context.Context, id string) (*models.Payment, error)
	List(ctx context.Context, filter PaymentFilter) ([]models.Payment, int64, error)
	UpdateStatus(ctx context.Context, id string, from, to models.PaymentStatus) error
	UpdateStatusByOrder(ctx context.Context, orderID string, from, to models.PaymentStatus) (int64, error)
	SetRefundID(ctx context.Context, id, refundID string) error
}
