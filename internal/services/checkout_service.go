package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/cart"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/pkg/rabbitmq"

	"go.uber.org/zap"
)

// MinDeliveryAddressLength is the shortest delivery address accepted at checkout.
const MinDeliveryAddressLength = 10

// Checkout precondition errors. None of them leave any trace in the store.
var (
	ErrUnauthenticated = errors.New("no authenticated user")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidAddress  = fmt.Errorf("delivery address must be at least %d characters", MinDeliveryAddressLength)
)

// Checkout step failures. They are reported through *PlacementError.
var (
	ErrOrderCreationFailed = errors.New("order creation failed")
	ErrOrderLinesFailed    = errors.New("order lines creation failed")
	ErrStockUpdateFailed   = errors.New("stock update failed")
)

// Stage is a checkpoint of the order placement workflow.
type Stage string

// Stages in the order they are reached.
const (
	StageNone            Stage = ""
	StageCreated         Stage = "created"
	StageLinesWritten    Stage = "lines_written"
	StageStockReconciled Stage = "stock_reconciled"
	StageCleared         Stage = "cleared"
)

// StockMode selects how stock is reconciled after an order is written.
type StockMode int

const (
	// StockOverwrite writes line.Stock - line.Quantity as an absolute value. Concurrent
	// checkouts of the same product can oversell.
	StockOverwrite StockMode = iota
	// StockConditional decrements the stored value only when it still covers the quantity.
	StockConditional
)

// PlacementError describes a checkout that failed after validation. Completed steps
// are not undone, so Reached and OrderID tell what was left behind.
type PlacementError struct {
	Step      error  // one of ErrOrderCreationFailed, ErrOrderLinesFailed, ErrStockUpdateFailed
	Reached   Stage  // last stage completed before the failure
	OrderID   string // empty when no order was created
	ProductID string // product whose stock update failed
	Err       error
}

func (e *PlacementError) Error() string {
	msg := fmt.Sprintf("failed to place order: %v", e.Step)
	if e.OrderID != "" {
		msg += fmt.Sprintf(" (order %s, reached %q)", e.OrderID, e.Reached)
	}
	if e.ProductID != "" {
		msg += fmt.Sprintf(" (product %s)", e.ProductID)
	}
	return msg + ": " + e.Err.Error()
}

func (e *PlacementError) Unwrap() []error {
	return []error{e.Step, e.Err}
}

// EventPublisher sends order events to a broker.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
	// Exchange is the exchange order events are published to.
	Exchange() string
}

// CheckoutService turns a cart into an order.
type CheckoutService struct {
	orderRepo   repositories.OrderRepository
	productRepo repositories.ProductRepository
	publisher   EventPublisher
	stockMode   StockMode
}

// NewCheckoutService creates a CheckoutService. publisher may be nil.
func NewCheckoutService(orderRepo repositories.OrderRepository, productRepo repositories.ProductRepository, publisher EventPublisher, stockMode StockMode) *CheckoutService {
	return &CheckoutService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		publisher:   publisher,
		stockMode:   stockMode,
	}
}

// ValidateDeliveryAddress checks the minimum address length.
func ValidateDeliveryAddress(address string) error {
	if err := validate.Var(address, fmt.Sprintf("required,min=%d", MinDeliveryAddressLength)); err != nil {
		return ErrInvalidAddress
	}
	return nil
}

// PlaceOrder records the content of c as an order for userID.
//
// The steps run in a fixed order: order header, order lines, one stock write per
// line, cart clear. They are not transactional. A failure stops the remaining steps
// and leaves completed ones in place; the cart is only cleared when every step
// succeeded. A product removed from the catalog since it was added keeps its order
// line and is skipped by the stock step. ctx is honoured until the order header is
// written; after that the workflow runs to completion or to its first failure.
func (s *CheckoutService) PlaceOrder(ctx context.Context, userID string, c *cart.Cart, deliveryAddress string) (*models.Order, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	snapshot := c.Snapshot()
	if snapshot.IsEmpty() {
		return nil, ErrEmptyCart
	}
	if err := ValidateDeliveryAddress(deliveryAddress); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := zap.L().With(zap.String("user_id", userID))

	order := &models.Order{
		UserID:          userID,
		DeliveryAddress: deliveryAddress,
		TotalAmount:     snapshot.Total,
		Status:          models.OrderStatusPending,
	}
	if err := s.orderRepo.Create(order); err != nil {
		logger.Error("order creation failed", zap.Error(err))
		return nil, &PlacementError{Step: ErrOrderCreationFailed, Reached: StageNone, Err: err}
	}
	logger = logger.With(zap.String("order_id", order.ID))
	logger.Info("checkout stage", zap.String("stage", string(StageCreated)), zap.String("total_amount", order.TotalAmount.String()))

	items := make([]models.OrderItem, 0, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		items = append(items, models.OrderItem{
			OrderID:     order.ID,
			ProductID:   line.ProductID,
			ProductName: line.Name,
			ImageURL:    line.ImageURL,
			Quantity:    line.Quantity,
			Price:       line.Price,
		})
	}
	if err := s.orderRepo.CreateItems(items); err != nil {
		logger.Error("order lines creation failed, order left without lines", zap.Error(err))
		return nil, &PlacementError{Step: ErrOrderLinesFailed, Reached: StageCreated, OrderID: order.ID, Err: err}
	}
	order.Items = items
	logger.Info("checkout stage", zap.String("stage", string(StageLinesWritten)), zap.Int("lines", len(items)))

	for i, line := range snapshot.Lines {
		err := s.reconcileStock(line)
		if errors.Is(err, repositories.ErrNotFound) {
			logger.Warn("product no longer in catalog, stock not written", zap.String("product_id", line.ProductID))
			continue
		}
		if err != nil {
			logger.Error("stock update failed, earlier updates kept",
				zap.String("product_id", line.ProductID),
				zap.Int("applied", i),
				zap.Int("lines", len(snapshot.Lines)),
				zap.Error(err))
			return nil, &PlacementError{Step: ErrStockUpdateFailed, Reached: StageLinesWritten, OrderID: order.ID, ProductID: line.ProductID, Err: err}
		}
	}
	logger.Info("checkout stage", zap.String("stage", string(StageStockReconciled)))

	c.Clear()
	logger.Info("checkout stage", zap.String("stage", string(StageCleared)))

	s.publishOrderCreated(order, logger)
	return order, nil
}

func (s *CheckoutService) reconcileStock(line cart.Line) error {
	if s.stockMode == StockConditional {
		return s.productRepo.DecrementStock(line.ProductID, line.Quantity)
	}
	return s.productRepo.SetStock(line.ProductID, line.Stock-line.Quantity)
}

func (s *CheckoutService) publishOrderCreated(order *models.Order, logger *zap.Logger) {
	if s.publisher == nil {
		return
	}
	body, err := json.Marshal(rabbitmq.OrderEvent{
		OrderID:     order.ID,
		UserID:      order.UserID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount.StringFixed(2),
		ItemCount:   len(order.Items),
		OccurredAt:  time.Now(),
	})
	if err != nil {
		logger.Warn("failed to marshal order event", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(s.publisher.Exchange(), rabbitmq.RoutingKeyOrderCreated, body); err != nil {
		logger.Warn("failed to publish order created event", zap.Error(err))
	}
}
