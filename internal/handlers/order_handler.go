package handlers

import (
	"cinema/internal/apperr"
	"cinema/internal/middleware"
	"cinema/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
	log      *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, validate *validator.Validate, log *zap.Logger) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validate,
		log:      log.Named("order_handler"),
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	orderRoutes := router.Group("/orders", auth)
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Post("/:id/cancel", h.HandleCancelOrder)
	orderRoutes.Post("/:id/pay", h.HandlePayOrder)
}

// HandleGetOrders lists the caller's orders; staff see everybody's.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	q, params, err := parseList(c, h.validate)
	if err != nil {
		return writeError(c, h.log, err)
	}

	orders, total, err := h.service.List(c.UserContext(), middleware.ActorFrom(c), services.OrderQuery{
		Status:     q.Status,
		ListParams: params,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(page(total, "orders", orders))
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.Get(c.UserContext(), middleware.ActorFrom(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(order)
}

// HandleCreateOrder turns the cart into an order. Unless ?pay=false is given
// a payment is opened right away.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	withPayment := c.QueryBool("pay", true)
	res, err := h.service.CreateFromCart(c.UserContext(), middleware.ActorFrom(c), withPayment)
	if err != nil {
		if res != nil && res.Order != nil {
			// the order exists; the client can retry through /orders/:id/pay
			return h.writeOrderError(c, res, err)
		}
		return writeError(c, h.log, err)
	}

	body := fiber.Map{
		"order_id": res.Order.ID,
		"order":    res.Order,
	}
	if res.Payment != nil {
		body["payment_id"] = res.Payment.Payment.ID
		body["client_secret"] = res.Payment.ClientSecret
	}
	return c.Status(fiber.StatusCreated).JSON(body)
}

func (h *OrderHandler) writeOrderError(c *fiber.Ctx, res *services.CheckoutResult, err error) error {
	appErr, ok := apperr.From(err)
	if !ok {
		return writeError(c, h.log, err)
	}
	h.log.Warn("Order created without payment", zap.String("order_id", res.Order.ID), zap.Error(err))
	return c.Status(appErr.Code).JSON(fiber.Map{
		"message":  appErr.Message,
		"order_id": res.Order.ID,
	})
}

// HandleCancelOrder cancels a pending order of the caller.
func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	order, err := h.service.Cancel(c.UserContext(), middleware.ActorFrom(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(order)
}

// HandlePayOrder opens a new payment for a pending order of the caller.
func (h *OrderHandler) HandlePayOrder(c *fiber.Ctx) error {
	res, err := h.service.Pay(c.UserContext(), middleware.ActorFrom(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(paymentCreated(res))
}
