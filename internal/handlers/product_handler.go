package handlers

import (
	"errors"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service *services.ProductService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service: service,
	}
}

// RegisterRoutes registers the product routes. Browsing is public; writes run behind
// the given guards, typically authentication followed by the admin check.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, writeGuards ...fiber.Handler) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	guarded := func(handler fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, writeGuards...), handler)
	}
	productRoutes.Post("/", guarded(h.HandleCreateProduct)...)
	productRoutes.Put("/:id", guarded(h.HandleUpdateProduct)...)
	productRoutes.Delete("/:id", guarded(h.HandleDeleteProduct)...)
}

// HandleGetProducts lists the catalog.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts()
	if err != nil {
		zap.L().Error("failed to list products", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve products",
			"error":   err.Error(),
		})
	}
	return c.JSON(products)
}

// HandleGetProductByID returns one product.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	productID := c.Params("id")
	product, err := h.service.GetProductByID(productID)
	if err != nil {
		return productError(c, productID, err)
	}
	return c.JSON(product)
}

// HandleCreateProduct adds a product to the catalog.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return invalidBody(c, err)
	}
	if err := h.service.CreateProduct(&product); err != nil {
		if errors.Is(err, services.ErrInvalidProduct) {
			return validationFailed(c, err)
		}
		zap.L().Error("failed to create product", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not create product",
			"error":   err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct replaces the editable fields of a product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	productID := c.Params("id")
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return invalidBody(c, err)
	}
	product.ID = productID

	if err := h.service.UpdateProduct(&product); err != nil {
		return productError(c, productID, err)
	}

	updated, err := h.service.GetProductByID(productID)
	if err != nil {
		return productError(c, productID, err)
	}
	return c.JSON(updated)
}

// HandleDeleteProduct removes a product from the catalog.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	productID := c.Params("id")
	if err := h.service.DeleteProduct(productID); err != nil {
		return productError(c, productID, err)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Product %s deleted successfully", productID),
	})
}

func productError(c *fiber.Ctx, productID string, err error) error {
	if errors.Is(err, services.ErrInvalidProduct) {
		return validationFailed(c, err)
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": fmt.Sprintf("Product with ID %s not found", productID),
		})
	}
	zap.L().Error("product request failed", zap.String("product_id", productID), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Could not process product request",
		"error":   err.Error(),
	})
}
