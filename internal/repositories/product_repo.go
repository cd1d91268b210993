package repositories

import (
	"storefront/internal/models"
)

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetAll() ([]models.Product, error)
	GetByID(id string) (*models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	Delete(id string) error
	// SetStock writes an absolute stock value without looking at the current one.
	SetStock(id string, stock int) error
	// DecrementStock subtracts quantity only when the current stock covers it.
	DecrementStock(id string, quantity int) error
}
