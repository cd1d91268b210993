package handlers

import (
	"errors"
	"fmt"

	"storefront/internal/middleware"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// OrderHandler handles HTTP requests for the caller's orders.
type OrderHandler struct {
	service *services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service: service,
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
}

// HandleGetOrders lists the caller's orders, newest first.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	claims, _ := middleware.CurrentUser(c)
	orders, err := h.service.GetOrdersForUser(claims.UserID)
	if err != nil {
		zap.L().Error("failed to list orders", zap.String("user_id", claims.UserID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve orders",
			"error":   err.Error(),
		})
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order owned by the caller.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	orderID := c.Params("id")
	claims, _ := middleware.CurrentUser(c)
	order, err := h.service.GetOrderByID(orderID, claims)
	if err != nil {
		return orderError(c, orderID, err)
	}
	return c.JSON(order)
}

func orderError(c *fiber.Ctx, orderID string, err error) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": fmt.Sprintf("Order with ID %s not found", orderID),
		})
	case errors.Is(err, services.ErrInvalidStatus), errors.Is(err, services.ErrInvalidStatusTransition):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": fmt.Sprintf("Order update failed: %v", err),
		})
	}
	zap.L().Error("order request failed", zap.String("order_id", orderID), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Could not process order request",
		"error":   err.Error(),
	})
}
