package rabbitmq_test

import (
	"testing"

	"storefront/pkg/rabbitmq"

	amqp "github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeOrderEvent(t *testing.T) {
	event, err := rabbitmq.DecodeOrderEvent([]byte(`{"order_id":"o-1","user_id":"u-1","status":"pending","total_amount":"25","item_count":2}`))
	require.NoError(t, err)
	assert.Equal(t, "o-1", event.OrderID)
	assert.Equal(t, "25", event.TotalAmount)
	assert.Equal(t, 2, event.ItemCount)

	_, err = rabbitmq.DecodeOrderEvent([]byte(`{not json`))
	assert.ErrorIs(t, err, rabbitmq.ErrPoisonMessage)

	_, err = rabbitmq.DecodeOrderEvent([]byte(`{"user_id":"u-1"}`))
	assert.ErrorIs(t, err, rabbitmq.ErrPoisonMessage)
}

func TestHandleOrderMessage(t *testing.T) {
	err := rabbitmq.HandleOrderMessage(amqp.Delivery{
		RoutingKey: rabbitmq.RoutingKeyOrderCreated,
		Body:       []byte(`{"order_id":"o-1"}`),
	})
	assert.NoError(t, err)

	err = rabbitmq.HandleOrderMessage(amqp.Delivery{Body: []byte(`[]`)})
	assert.ErrorIs(t, err, rabbitmq.ErrPoisonMessage)
}
