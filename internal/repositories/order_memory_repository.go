package repositories

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
)

// MemoryOrderRepository is an in-memory implementation of OrderRepository.
type MemoryOrderRepository struct {
	orders map[string]models.Order
	items  map[string][]models.OrderItem // order ID -> lines
	mu     sync.RWMutex
}

// NewMemoryOrderRepository creates a new instance of MemoryOrderRepository.
func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders: make(map[string]models.Order),
		items:  make(map[string][]models.OrderItem),
	}
}

// GetAll returns all orders, newest first.
func (r *MemoryOrderRepository) GetAll() ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orderList := make([]models.Order, 0, len(r.orders))
	for _, order := range r.orders {
		orderList = append(orderList, r.withItems(order))
	}
	sortNewestFirst(orderList)
	return orderList, nil
}

// GetByID returns an order by its ID.
func (r *MemoryOrderRepository) GetByID(id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order with ID %s not found: %w", id, ErrNotFound)
	}
	order = r.withItems(order)
	return &order, nil
}

// GetByUserID returns the orders placed by a user, newest first.
func (r *MemoryOrderRepository) GetByUserID(userID string) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var orderList []models.Order
	for _, order := range r.orders {
		if order.UserID == userID {
			orderList = append(orderList, r.withItems(order))
		}
	}
	sortNewestFirst(orderList)
	return orderList, nil
}

// Create adds a new order header.
func (r *MemoryOrderRepository) Create(order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	header := *order
	header.Items = nil
	r.orders[order.ID] = header
	return nil
}

// CreateItems adds order lines. Every line must reference an existing order.
func (r *MemoryOrderRepository) CreateItems(items []models.OrderItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		if _, ok := r.orders[item.OrderID]; !ok {
			return fmt.Errorf("order with ID %s not found for items: %w", item.OrderID, ErrNotFound)
		}
	}
	now := time.Now()
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.New().String()
		}
		items[i].CreatedAt = now
		r.items[items[i].OrderID] = append(r.items[items[i].OrderID], items[i])
	}
	return nil
}

// UpdateStatus updates the status of an order.
func (r *MemoryOrderRepository) UpdateStatus(id string, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order with ID %s not found for status update: %w", id, ErrNotFound)
	}
	order.Status = status
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	return nil
}

func (r *MemoryOrderRepository) withItems(order models.Order) models.Order {
	order.Items = append([]models.OrderItem(nil), r.items[order.ID]...)
	return order
}

func sortNewestFirst(orders []models.Order) {
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
}
