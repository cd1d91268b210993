package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

// RoutingKeyOrderCreated is used for events emitted after a successful checkout.
const RoutingKeyOrderCreated = "order.created"

// OrderEvent is the payload of order.* messages.
type OrderEvent struct {
	OrderID     string    `json:"order_id"`
	UserID      string    `json:"user_id"`
	Status      string    `json:"status"`
	TotalAmount string    `json:"total_amount"`
	ItemCount   int       `json:"item_count"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// DecodeOrderEvent parses a delivery body. Malformed bodies wrap ErrPoisonMessage.
func DecodeOrderEvent(body []byte) (OrderEvent, error) {
	var event OrderEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return OrderEvent{}, fmt.Errorf("%w: %v", ErrPoisonMessage, err)
	}
	if event.OrderID == "" {
		return OrderEvent{}, fmt.Errorf("%w: missing order_id", ErrPoisonMessage)
	}
	return event, nil
}

// HandleOrderMessage is the default consumer: it records order events in the log.
func HandleOrderMessage(msg amqp.Delivery) error {
	event, err := DecodeOrderEvent(msg.Body)
	if err != nil {
		return err
	}
	zap.L().Info("order event received",
		zap.String("routing_key", msg.RoutingKey),
		zap.String("order_id", event.OrderID),
		zap.String("user_id", event.UserID),
		zap.String("status", event.Status),
		zap.String("total_amount", event.TotalAmount),
		zap.Int("item_count", event.ItemCount),
	)
	return nil
}
