package rabbit

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/paymesh/transfersaga/internal/infrastructure/metrics"
)

// HandlerFunc processes one delivery. A nil return acknowledges the
// message; an error requeues it for redelivery. Handlers are expected
// to swallow definitive business failures themselves and only return
// errors for transient faults.
type HandlerFunc func(ctx context.Context, messageID string, body []byte) error

// Consumer binds one durable queue to a set of routing keys on the
// topic exchange and dispatches deliveries to handlers.
type Consumer struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	name     string
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

// NewConsumer connects to the broker and declares the exchange.
func NewConsumer(amqpURL, exchange, name string, logger zerolog.Logger, metrics *metrics.Metrics) (*Consumer, error) {
	conn, err := amqp.DialConfig(amqpURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	if err := channel.Qos(16, 0, false); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	return &Consumer{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		name:     name,
		logger:   logger.With().Str("consumer", name).Logger(),
		metrics:  metrics,
	}, nil
}

// Consume declares the queue, binds the routing keys and dispatches
// deliveries until the context is cancelled or the channel closes.
func (c *Consumer) Consume(ctx context.Context, queueName string, bindings map[string]HandlerFunc) error {
	if len(bindings) == 0 {
		return fmt.Errorf("no bindings for queue %s", queueName)
	}

	queue, err := c.channel.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return err
	}

	for routingKey := range bindings {
		if err := c.channel.QueueBind(queue.Name, routingKey, c.exchange, false, nil); err != nil {
			return err
		}
	}

	deliveries, err := c.channel.Consume(queue.Name, c.name, false, false, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					c.logger.Warn().Msg("delivery channel closed")
					return
				}

				c.dispatch(ctx, bindings, delivery)
			}
		}
	}()

	return nil
}

func (c *Consumer) dispatch(ctx context.Context, bindings map[string]HandlerFunc, delivery amqp.Delivery) {
	handler, ok := bindings[delivery.RoutingKey]
	if !ok {
		c.logger.Warn().Str("routing_key", delivery.RoutingKey).Msg("no handler, dropping message")
		_ = delivery.Ack(false)
		return
	}

	messageID := delivery.MessageId
	if messageID == "" {
		// Broker-side tools can inject messages without an id; the
		// delivery tag at least dedups within this connection.
		messageID = fmt.Sprintf("tag-%d", delivery.DeliveryTag)
	}

	if err := handler(ctx, messageID, delivery.Body); err != nil {
		c.logger.Error().Err(err).
			Str("routing_key", delivery.RoutingKey).
			Str("message_id", messageID).
			Msg("handler failed, requeueing")

		c.count("requeued")
		_ = delivery.Nack(false, true)
		return
	}

	c.count("ok")
	_ = delivery.Ack(false)
}

func (c *Consumer) count(result string) {
	if c.metrics != nil {
		c.metrics.ConsumerMessages.WithLabelValues(c.name, result).Inc()
	}
}

// Close gracefully closes the channel and connection.
func (c *Consumer) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
