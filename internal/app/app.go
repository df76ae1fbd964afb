// Package app wires configuration, storage, services and HTTP routes into a
// runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cinema/internal/config"
	"cinema/internal/handlers"
	"cinema/internal/logging"
	"cinema/internal/middleware"
	"cinema/internal/notify"
	"cinema/internal/payments"
	"cinema/internal/repositories"
	"cinema/internal/services"
	"cinema/internal/worker"
	"cinema/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const authRequestsPerMinute = 60

// App is the assembled service with its background workers.
type App struct {
	HTTP *fiber.App

	cfg      *config.Config
	db       *gorm.DB
	log      *zap.Logger
	sender   notify.Sender
	broker   *rabbitmq.Client
	notifier *worker.Pool
	webhooks *worker.Pool
	cleaner  *services.TokenCleaner
	cancel   context.CancelFunc
}

// New builds the application. Background work starts with Start.
func New(cfg *config.Config, db *gorm.DB, log *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, db: db, log: log}

	sender, err := newSender(cfg.Notify, log)
	if err != nil {
		return nil, err
	}
	a.sender = sender

	publisher, err := a.newPublisher()
	if err != nil {
		return nil, err
	}
	processor := newProcessor(cfg.Payments)

	tx := repositories.NewTransactor(db)
	userRepo := repositories.NewGORMUserRepository(db)
	tokenRepo := repositories.NewGORMTokenRepository(db)
	movieRepo := repositories.NewGORMMovieRepository(db)
	catalogRepo := repositories.NewGORMCatalogRepository(db)
	cartRepo := repositories.NewGORMCartRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	paymentRepo := repositories.NewGORMPaymentRepository(db)

	a.webhooks = worker.NewPool("webhooks", cfg.Webhook.Workers, cfg.Webhook.QueueSize, cfg.Webhook.JobTimeout, log)

	authService := services.NewAuthService(userRepo, tokenRepo, tx, publisher, cfg.Auth, cfg.BaseURL, log)
	catalogService := services.NewCatalogService(movieRepo, catalogRepo, tx, log)
	cartService := services.NewCartService(cartRepo, movieRepo, orderRepo, tx, log)
	paymentService := services.NewPaymentService(paymentRepo, orderRepo, userRepo, processor, publisher, tx,
		cfg.Payments.Currency, cfg.Payments.Mock(), log)
	orderService := services.NewOrderService(cartRepo, orderRepo, paymentRepo, paymentService, tx, log)
	webhookService := services.NewWebhookService(processor, paymentService, a.webhooks, log)
	a.cleaner = services.NewTokenCleaner(tokenRepo, cfg.TokenCleanupInterval, log)

	validate := handlers.NewValidator()
	a.HTTP = fiber.New(fiber.Config{
		AppName:      "cinema",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	a.HTTP.Use(recover.New())
	a.HTTP.Use(requestid.New(requestid.Config{ContextKey: logging.RequestIDKey}))
	a.HTTP.Use(logging.RequestLogger(log.Named("http")))

	a.HTTP.Get("/health", a.handleHealth)

	auth := middleware.AuthRequired(authService, log)
	apiV1 := a.HTTP.Group("/api/v1")
	apiV1.Use("/auth", middleware.RateLimit(authRequestsPerMinute, time.Minute))
	handlers.NewAuthHandler(authService, validate, log).RegisterRoutes(apiV1, auth)
	handlers.NewMovieHandler(catalogService, validate, log).RegisterRoutes(apiV1, auth)
	handlers.NewCartHandler(cartService, validate, log).RegisterRoutes(apiV1, auth)
	handlers.NewOrderHandler(orderService, validate, log).RegisterRoutes(apiV1, auth)

	paymentHandler := handlers.NewPaymentHandler(paymentService, webhookService, validate, log)
	paymentHandler.RegisterRoutes(apiV1, auth)
	paymentHandler.RegisterWebhook(a.HTTP)

	return a, nil
}

func newSender(cfg config.NotifyConfig, log *zap.Logger) (notify.Sender, error) {
	if cfg.Sender == "smtp" {
		return notify.NewSMTPSender(cfg.SMTP)
	}
	return notify.NewLogSender(log), nil
}

// newPublisher returns the configured notification transport: an in-process
// worker pool or a RabbitMQ queue consumed by this same process.
func (a *App) newPublisher() (notify.Publisher, error) {
	if a.cfg.Notify.Transport == "amqp" {
		client, err := rabbitmq.NewClient(rabbitmq.Config{
			URL:    a.cfg.RabbitMQ.URL,
			Queues: []string{a.cfg.RabbitMQ.NotifyQueue},
		}, a.log)
		if err != nil {
			return nil, err
		}
		a.broker = client
		return notify.NewAMQPPublisher(client, a.cfg.RabbitMQ.NotifyQueue), nil
	}

	a.notifier = worker.NewPool("notify", a.cfg.Notify.Workers, a.cfg.Notify.QueueSize, time.Minute, a.log)
	return notify.NewQueuePublisher(a.notifier, a.sender, a.log.Named("notify")), nil
}

func newProcessor(cfg config.PaymentsConfig) payments.Processor {
	if cfg.Mock() {
		return payments.NewMockProcessor(cfg.WebhookSecret)
	}
	return payments.NewStripeProcessor(cfg.StripeAPIKey, cfg.WebhookSecret)
}

func (a *App) handleHealth(c *fiber.Ctx) error {
	status := fiber.StatusOK
	body := fiber.Map{
		"status":   "healthy",
		"time":     time.Now().UTC().Format(time.RFC3339),
		"database": "connected",
		"payments": a.cfg.Payments.Mode,
	}
	if sqlDB, err := a.db.DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
		status = fiber.StatusServiceUnavailable
		body["status"] = "unhealthy"
		body["database"] = "unreachable"
	}
	return c.Status(status).JSON(body)
}

// Start launches the worker pools, the token cleaner and, with the amqp
// transport, the notification consumer.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	a.webhooks.Start()
	if a.notifier != nil {
		a.notifier.Start()
	}
	if a.broker != nil {
		handler := notify.Handler(a.sender, a.log.Named("notify"))
		if err := a.broker.Consume(ctx, a.cfg.RabbitMQ.NotifyQueue, handler); err != nil {
			return fmt.Errorf("failed to start notification consumer: %w", err)
		}
	}
	go a.cleaner.Run(ctx)
	return nil
}

// Shutdown stops the HTTP server, drains the pools and closes the broker.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.HTTP.ShutdownWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http: %w", err))
	}
	if a.cancel != nil {
		a.cancel()
	}
	if err := a.webhooks.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("webhook pool: %w", err))
	}
	if a.notifier != nil {
		if err := a.notifier.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("notify pool: %w", err))
		}
	}
	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
