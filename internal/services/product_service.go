package services

import (
	"errors"
	"fmt"
	"strings"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// ErrInvalidProduct is returned when a product fails the catalog form rules. The
// validator's field errors are wrapped alongside it.
var ErrInvalidProduct = errors.New("invalid product")

// ProductService handles business logic related to products.
type ProductService struct {
	repo repositories.ProductRepository
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository) *ProductService {
	return &ProductService{
		repo: repo,
	}
}

// GetAllProducts retrieves the catalog ordered by name.
func (s *ProductService) GetAllProducts() ([]models.Product, error) {
	return s.repo.GetAll()
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(id string) (*models.Product, error) {
	return s.repo.GetByID(id)
}

// CreateProduct checks the form rules and stores a new product. Any client supplied
// ID is dropped so the store assigns one.
func (s *ProductService) CreateProduct(product *models.Product) error {
	product.ID = ""
	if err := checkProduct(product); err != nil {
		return err
	}
	if err := s.repo.Create(product); err != nil {
		return fmt.Errorf("failed to create product %q: %w", product.Name, err)
	}
	return nil
}

// UpdateProduct checks the form rules and replaces the editable fields of a product.
func (s *ProductService) UpdateProduct(product *models.Product) error {
	if product.ID == "" {
		return fmt.Errorf("%w: missing product ID", ErrInvalidProduct)
	}
	if err := checkProduct(product); err != nil {
		return err
	}
	return s.repo.Update(product)
}

// DeleteProduct removes a product from the catalog. Carts holding it keep their line
// until checkout, which skips its stock write.
func (s *ProductService) DeleteProduct(id string) error {
	return s.repo.Delete(id)
}

// checkProduct trims the text fields and applies the form rules: name, description
// and category required, price above zero, stock not negative, image URL optional.
func checkProduct(product *models.Product) error {
	product.Name = strings.TrimSpace(product.Name)
	product.Description = strings.TrimSpace(product.Description)
	product.Category = strings.TrimSpace(product.Category)
	product.ImageURL = strings.TrimSpace(product.ImageURL)

	if err := validate.Struct(product); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProduct, err)
	}
	return nil
}
