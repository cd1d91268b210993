package handlers

import (
	"context"
	"errors"

	"storefront/internal/cart"
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CheckoutRequest is the body of POST /checkout.
type CheckoutRequest struct {
	DeliveryAddress string `json:"delivery_address"`
}

// CheckoutHandler triggers order placement for the caller's cart.
type CheckoutHandler struct {
	service *services.CheckoutService
	carts   *cart.Registry
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(service *services.CheckoutService, carts *cart.Registry) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		carts:   carts,
	}
}

// RegisterRoutes registers the checkout route.
func (h *CheckoutHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/checkout", h.HandleCheckout)
}

// HandleCheckout places an order from the cart. Step failures are reported to the
// client as a single generic error.
func (h *CheckoutHandler) HandleCheckout(c *fiber.Ctx) error {
	var req CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}

	claims, _ := middleware.CurrentUser(c)
	ctx := c.UserContext()
	sc := h.carts.Get(ctx, claims.UserID)

	order, err := h.service.PlaceOrder(ctx, claims.UserID, sc, req.DeliveryAddress)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnauthenticated):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authentication required",
			})
		case errors.Is(err, services.ErrEmptyCart):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Your cart is empty",
			})
		case errors.Is(err, services.ErrInvalidAddress):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Please provide a complete delivery address",
				"error":   err.Error(),
			})
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
				"message": "Checkout cancelled",
			})
		}
		zap.L().Error("checkout failed", zap.String("user_id", claims.UserID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to place order",
		})
	}

	h.carts.Save(ctx, claims.UserID)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Order placed successfully",
		"order":   order,
	})
}
