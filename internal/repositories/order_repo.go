package repositories

import (
	"storefront/internal/models"
)

// OrderRepository defines the interface for order data access.
// Orders are append-only apart from their status.
type OrderRepository interface {
	GetAll() ([]models.Order, error)
	GetByID(id string) (*models.Order, error)
	GetByUserID(userID string) ([]models.Order, error)
	// Create stores the order header only; Items are ignored.
	Create(order *models.Order) error
	// CreateItems stores a batch of order lines.
	CreateItems(items []models.OrderItem) error
	UpdateStatus(id string, status string) error
}
