package handlers

import (
	"errors"

	"storefront/internal/cart"
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// CartView is the JSON shape of a cart.
type CartView struct {
	Items       []cart.Line     `json:"items"`
	TotalItems  int             `json:"total_items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func viewOf(c *cart.Cart) CartView {
	snapshot := c.Snapshot()
	items := 0
	for _, l := range snapshot.Lines {
		items += l.Quantity
	}
	return CartView{Items: snapshot.Lines, TotalItems: items, TotalAmount: snapshot.Total}
}

// AddItemRequest is the body of POST /cart/items. Quantity defaults to 1.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  *int   `json:"quantity"`
}

// SetQuantityRequest is the body of PATCH /cart/items/:productId.
type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CartHandler exposes the session cart.
type CartHandler struct {
	carts    *cart.Registry
	products *services.ProductService
	validate *validator.Validate
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(carts *cart.Registry, products *services.ProductService) *CartHandler {
	return &CartHandler{
		carts:    carts,
		products: products,
		validate: newValidator(),
	}
}

// RegisterRoutes registers the cart routes.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Delete("/", h.HandleClearCart)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Patch("/items/:productId", h.HandleSetQuantity)
	cartRoutes.Delete("/items/:productId", h.HandleRemoveItem)
}

func (h *CartHandler) cartOf(c *fiber.Ctx) (*cart.Cart, string) {
	claims, _ := middleware.CurrentUser(c)
	return h.carts.Get(c.UserContext(), claims.UserID), claims.UserID
}

// HandleGetCart returns the caller's cart.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	sc, _ := h.cartOf(c)
	return c.JSON(viewOf(sc))
}

// HandleAddItem looks the product up and adds it to the cart. When stock caps the
// quantity the response says how many units were actually added, and how many were
// dropped from the line if stock fell below what it already held.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	product, err := h.products.GetProductByID(req.ProductID)
	if err != nil {
		return productError(c, req.ProductID, err)
	}

	sc, userID := h.cartOf(c)
	result, err := sc.AddItem(*product, quantity)
	switch {
	case errors.Is(err, cart.ErrOutOfStock):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "Product is out of stock",
		})
	case errors.Is(err, cart.ErrInvalidQuantity):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": err.Error(),
		})
	case err != nil:
		return err
	}
	h.carts.Save(c.UserContext(), userID)

	return c.JSON(fiber.Map{
		"cart":      viewOf(sc),
		"requested": quantity,
		"added":     result.Added,
		"quantity":  result.Quantity,
		"reduced":   result.Reduced,
		"clamped":   result.Added < quantity,
	})
}

// HandleSetQuantity changes a line's quantity. Requests above the stock ceiling
// leave the line unchanged.
func (h *CartHandler) HandleSetQuantity(c *fiber.Ctx) error {
	var req SetQuantityRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}

	sc, userID := h.cartOf(c)
	if err := sc.SetQuantity(c.Params("productId"), req.Quantity); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": err.Error(),
		})
	}
	h.carts.Save(c.UserContext(), userID)
	return c.JSON(viewOf(sc))
}

// HandleRemoveItem drops a line from the cart.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	sc, userID := h.cartOf(c)
	sc.RemoveItem(c.Params("productId"))
	h.carts.Save(c.UserContext(), userID)
	return c.JSON(viewOf(sc))
}

// HandleClearCart empties the cart.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	sc, userID := h.cartOf(c)
	sc.Clear()
	h.carts.Save(c.UserContext(), userID)
	return c.JSON(viewOf(sc))
}
