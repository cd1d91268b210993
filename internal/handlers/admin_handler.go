package handlers

import (
	"fmt"

	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AdminHandler serves the admin dashboard and order administration.
type AdminHandler struct {
	admin  *services.AdminService
	orders *services.OrderService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(admin *services.AdminService, orders *services.OrderService) *AdminHandler {
	return &AdminHandler{
		admin:  admin,
		orders: orders,
	}
}

// RegisterRoutes registers the admin routes on a router already guarded for admins.
func (h *AdminHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/stats", h.HandleStats)
	router.Get("/orders", h.HandleGetAllOrders)
	router.Patch("/orders/:id/status", h.HandleUpdateOrderStatus)
}

// HandleStats returns the dashboard figures.
func (h *AdminHandler) HandleStats(c *fiber.Ctx) error {
	stats, err := h.admin.Stats()
	if err != nil {
		zap.L().Error("failed to compute stats", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not compute stats",
			"error":   err.Error(),
		})
	}
	return c.JSON(stats)
}

// HandleGetAllOrders lists every order, newest first.
func (h *AdminHandler) HandleGetAllOrders(c *fiber.Ctx) error {
	orders, err := h.orders.GetAllOrders()
	if err != nil {
		zap.L().Error("failed to list all orders", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve orders",
			"error":   err.Error(),
		})
	}
	return c.JSON(orders)
}

// HandleUpdateOrderStatus moves an order along its lifecycle.
func (h *AdminHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	orderID := c.Params("id")
	var updateData struct {
		Status string `json:"status"`
	}

	if err := c.BodyParser(&updateData); err != nil {
		return invalidBody(c, err)
	}

	if updateData.Status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Status is required for order status update.",
		})
	}

	if err := h.orders.UpdateOrderStatus(orderID, updateData.Status); err != nil {
		return orderError(c, orderID, err)
	}

	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Order %s status updated successfully to %s", orderID, updateData.Status),
	})
}
