package handlers

import (
	"cinema/internal/access"
	"cinema/internal/middleware"
	"cinema/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// PaymentHandler handles HTTP requests for payments and processor webhooks.
type PaymentHandler struct {
	service  *services.PaymentService
	webhooks *services.WebhookService
	validate *validator.Validate
	log      *zap.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service *services.PaymentService, webhooks *services.WebhookService, validate *validator.Validate, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:  service,
		webhooks: webhooks,
		validate: validate,
		log:      log.Named("payment_handler"),
	}
}

// RegisterRoutes registers the payment routes under the API prefix.
func (h *PaymentHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	paymentRoutes := router.Group("/payments", auth)
	paymentRoutes.Get("/", h.HandleGetPayments)
	paymentRoutes.Post("/:order_id", h.HandleCreatePayment)
	paymentRoutes.Post("/:id/refund", middleware.RequireCapability(access.RefundPayments), h.HandleRefund)
	paymentRoutes.Post("/:id/mock-success", middleware.RequireCapability(access.SimulatePayments), h.HandleMockSuccess)
}

// RegisterWebhook registers the processor webhook, which sits outside the
// API prefix and authenticates by signature.
func (h *PaymentHandler) RegisterWebhook(router fiber.Router) {
	router.Post("/webhooks/stripe", h.HandleStripeWebhook)
}

func (h *PaymentHandler) HandleGetPayments(c *fiber.Ctx) error {
	q, params, err := parseList(c, h.validate)
	if err != nil {
		return writeError(c, h.log, err)
	}

	payments, total, err := h.service.List(c.UserContext(), middleware.ActorFrom(c), services.PaymentQuery{
		Status:     q.Status,
		ListParams: params,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(page(total, "payments", payments))
}

func (h *PaymentHandler) HandleCreatePayment(c *fiber.Ctx) error {
	res, err := h.service.CreatePayment(c.UserContext(), middleware.ActorFrom(c), c.Params("order_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(paymentCreated(res))
}

func (h *PaymentHandler) HandleRefund(c *fiber.Ctx) error {
	payment, err := h.service.Refund(c.UserContext(), middleware.ActorFrom(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(payment)
}

func (h *PaymentHandler) HandleMockSuccess(c *fiber.Ctx) error {
	payment, err := h.service.SimulateSuccess(c.UserContext(), middleware.ActorFrom(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(payment)
}

// HandleStripeWebhook verifies the event and acknowledges it before the
// confirmation runs in the background.
func (h *PaymentHandler) HandleStripeWebhook(c *fiber.Ctx) error {
	payload := append([]byte(nil), c.Body()...)
	if err := h.webhooks.Handle(c.UserContext(), payload, c.Get("Stripe-Signature")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"status": "received"})
}

func paymentCreated(res *services.PaymentResult) fiber.Map {
	return fiber.Map{
		"payment_id":    res.Payment.ID,
		"payment":       res.Payment,
		"client_secret": res.ClientSecret,
	}
}
