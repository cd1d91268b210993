package rabbitmq

import (
	"errors"
	"fmt"
	"time"

	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Defaults used when Config leaves a field empty.
const (
	DefaultExchange   = "orders"
	DefaultQueue      = "order_queue"
	DefaultBindingKey = "order.#"
)

// ErrPoisonMessage marks a delivery that can never be processed. Such messages are
// dropped instead of requeued.
var ErrPoisonMessage = errors.New("unprocessable message")

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL      string
	Exchange string
	Queue    string
}

// NewClient connects to RabbitMQ, declares the order exchange and binds the order queue to it.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(ch, cfg.Exchange, cfg.Queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	zap.L().Info("RabbitMQ client connected",
		zap.String("exchange", cfg.Exchange), zap.String("queue", cfg.Queue))

	return &Client{
		conn:     conn,
		channel:  ch,
		exchange: cfg.Exchange,
		queue:    cfg.Queue,
	}, nil
}

func declareTopology(ch *amqp.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return fmt.Errorf("failed to declare %s: %w", queue, err)
	}

	if err := ch.QueueBind(queue, DefaultBindingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind %s to %s: %w", queue, exchange, err)
	}
	return nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Exchange is the exchange order events are published to.
func (c *Client) Exchange() string {
	return c.exchange
}

// Publish sends a persistent JSON message.
func (c *Client) Publish(exchange, routingKey string, body []byte) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	err := c.channel.Publish(
		exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// ConsumeOrderEvents registers a consumer on the order queue and processes deliveries
// in a goroutine until the channel closes. Deliveries are acked when messageHandler
// succeeds, dropped when it returns ErrPoisonMessage and requeued otherwise.
func (c *Client) ConsumeOrderEvents(messageHandler func(msg amqp.Delivery) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		c.queue, // queue
		"",      // consumer tag
		false,   // auto-ack
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	zap.L().Info("waiting for order events", zap.String("queue", c.queue))

	go func() {
		for msg := range msgs {
			settle(msg, messageHandler(msg))
		}
	}()

	return nil
}

func settle(msg amqp.Delivery, err error) {
	logger := zap.L().With(zap.Uint64("delivery_tag", msg.DeliveryTag))
	switch {
	case err == nil:
		if ackErr := msg.Ack(false); ackErr != nil {
			logger.Error("failed to ack message", zap.Error(ackErr))
		}
	case errors.Is(err, ErrPoisonMessage):
		logger.Error("dropping message", zap.Error(err))
		if nackErr := msg.Nack(false, false); nackErr != nil {
			logger.Error("failed to nack message", zap.Error(nackErr))
		}
	default:
		logger.Warn("failed to process message, requeueing", zap.Error(err))
		if nackErr := msg.Nack(false, true); nackErr != nil {
			logger.Error("failed to nack message", zap.Error(nackErr))
		}
	}
}
