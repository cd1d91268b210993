package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/pkg/rabbitmq"

	"go.uber.org/zap"
)

var (
	// ErrInvalidStatus is returned for statuses outside the order lifecycle.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrInvalidStatusTransition is returned when the lifecycle forbids the change.
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
)

// statusTransitions lists the statuses reachable from each status.
var statusTransitions = map[string][]string{
	models.OrderStatusPending:    {models.OrderStatusProcessing, models.OrderStatusCancelled},
	models.OrderStatusProcessing: {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:    {models.OrderStatusDelivered},
	models.OrderStatusDelivered:  nil,
	models.OrderStatusCancelled:  nil,
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderService handles reads and status administration of placed orders.
type OrderService struct {
	orderRepo repositories.OrderRepository
	publisher EventPublisher
}

// NewOrderService creates a new OrderService. publisher may be nil.
func NewOrderService(orderRepo repositories.OrderRepository, publisher EventPublisher) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		publisher: publisher,
	}
}

// GetAllOrders retrieves all orders, newest first.
func (s *OrderService) GetAllOrders() ([]models.Order, error) {
	return s.orderRepo.GetAll()
}

// GetOrdersForUser retrieves the orders of one user, newest first, with their lines.
func (s *OrderService) GetOrdersForUser(userID string) ([]models.Order, error) {
	orders, err := s.orderRepo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// GetOrderByID retrieves a single order visible to the caller. Orders of other
// users are reported as not found unless the caller is an admin.
func (s *OrderService) GetOrderByID(id string, caller Claims) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order.UserID != caller.UserID && !caller.IsAdmin() {
		return nil, fmt.Errorf("order with ID %s not found: %w", id, repositories.ErrNotFound)
	}
	return order, nil
}

// UpdateOrderStatus moves an order along its lifecycle.
func (s *OrderService) UpdateOrderStatus(id string, status string) error {
	if _, ok := statusTransitions[status]; !ok {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return err
	}
	if !CanTransition(order.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, order.Status, status)
	}

	if err := s.orderRepo.UpdateStatus(id, status); err != nil {
		return fmt.Errorf("failed to update order status for order %s: %w", id, err)
	}
	zap.L().Info("order status updated",
		zap.String("order_id", id), zap.String("from", order.Status), zap.String("to", status))

	s.publishStatusChange(order, status)
	return nil
}

func (s *OrderService) publishStatusChange(order *models.Order, status string) {
	if s.publisher == nil {
		return
	}
	body, err := json.Marshal(rabbitmq.OrderEvent{
		OrderID:     order.ID,
		UserID:      order.UserID,
		Status:      status,
		TotalAmount: order.TotalAmount.StringFixed(2),
		ItemCount:   len(order.Items),
		OccurredAt:  time.Now(),
	})
	if err != nil {
		return
	}
	if err := s.publisher.Publish(s.publisher.Exchange(), "order."+status, body); err != nil {
		zap.L().Warn("failed to publish order status event", zap.String("order_id", order.ID), zap.Error(err))
	}
}
