package services_test

import (
	"context"
	"fmt"
	"testing"

	"cinema/internal/access"
	"cinema/internal/config"
	"cinema/internal/database"
	"cinema/internal/models"
	"cinema/internal/payments"
	"cinema/internal/repositories"
	"cinema/internal/services"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const webhookSecret = "whsec_test"

// shop wires the cart, order and payment services over an in-memory database.
type shop struct {
	db        *gorm.DB
	processor payments.Processor
	publisher *MockPublisher
	catalog   *services.CatalogService
	carts     *services.CartService
	orders    *services.OrderService
	payments  *services.PaymentService
}

func newShop(t *testing.T, processor payments.Processor, mockMode bool) *shop {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	tx := repositories.NewTransactor(db)
	users := repositories.NewGORMUserRepository(db)
	movies := repositories.NewGORMMovieRepository(db)
	cartRepo := repositories.NewGORMCartRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	paymentRepo := repositories.NewGORMPaymentRepository(db)

	paymentSvc := services.NewPaymentService(paymentRepo, orderRepo, users, processor, pub, tx, "usd", mockMode, zap.NewNop())
	return &shop{
		db:        db,
		processor: processor,
		publisher: pub,
		catalog:   services.NewCatalogService(movies, repositories.NewGORMCatalogRepository(db), tx, zap.NewNop()),
		carts:     services.NewCartService(cartRepo, movies, orderRepo, tx, zap.NewNop()),
		orders:    services.NewOrderService(cartRepo, orderRepo, paymentRepo, paymentSvc, tx, zap.NewNop()),
		payments:  paymentSvc,
	}
}

func newMockShop(t *testing.T) *shop {
	return newShop(t, payments.NewMockProcessor(webhookSecret), true)
}

func (s *shop) user(t *testing.T, email string, role access.Role) access.Actor {
	t.Helper()
	u := &models.User{Email: email, Password: "hash", IsActive: true, Role: role}
	require.NoError(t, s.db.Create(u).Error)
	return access.Actor{UserID: u.ID, Email: u.Email, Role: u.Role}
}

func (s *shop) movie(t *testing.T, name, price string) *models.Movie {
	t.Helper()
	cert := &models.Certification{Name: "cert-" + name}
	require.NoError(t, s.db.Create(cert).Error)
	m := &models.Movie{
		Name:            name,
		Year:            1999,
		Time:            136,
		IMDb:            8.7,
		Votes:           2000000,
		Description:     name,
		Price:           decimal.RequireFromString(price),
		CertificationID: cert.ID,
	}
	require.NoError(t, s.db.Create(m).Error)
	return m
}

// checkout fills the actor's cart with movies and orders it with a payment.
func (s *shop) checkout(t *testing.T, actor access.Actor, movies ...*models.Movie) *services.CheckoutResult {
	t.Helper()
	ctx := context.Background()
	for _, m := range movies {
		_, err := s.carts.AddItem(ctx, actor.UserID, m.ID)
		require.NoError(t, err)
	}
	res, err := s.orders.CreateFromCart(ctx, actor, true)
	require.NoError(t, err)
	require.NotNil(t, res.Payment)
	return res
}

// paid checks out and confirms the payment.
func (s *shop) paid(t *testing.T, actor access.Actor, movies ...*models.Movie) *models.Payment {
	t.Helper()
	res := s.checkout(t, actor, movies...)
	payment, changed, err := s.payments.Confirm(context.Background(), res.Payment.Payment.ExternalPaymentID)
	require.NoError(t, err)
	require.True(t, changed)
	return payment
}
