package rabbit

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/spendsphere/spendsphere-go/internal/infra/observability"
)

// Handler processes one inbound message body. Errors are logged, never
// redelivered: consumers acknowledge every message so a malformed or
// failing payload cannot poison-pill the queue.
type Handler func(ctx context.Context, body []byte) error

// Consumer runs one sequential processing loop over a queue.
type Consumer struct {
	client  *Client
	queue   string
	handler Handler
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewConsumer builds a consumer for the queue.
func NewConsumer(client *Client, queue string, handler Handler, metrics *observability.Metrics, logger *zap.Logger) *Consumer {
	return &Consumer{
		client:  client,
		queue:   queue,
		handler: handler,
		metrics: metrics,
		logger:  logger,
	}
}

// Run consumes messages until the context is cancelled or the delivery
// channel closes. It blocks; callers run it in its own goroutine.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.client.Consume(c.queue)
	if err != nil {
		return err
	}

	c.logger.Info("consumer started", zap.String("queue", c.queue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-deliveries:
			if !ok {
				c.logger.Warn("delivery channel closed", zap.String("queue", c.queue))
				return nil
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg amqp.Delivery) {
	if err := c.handler(ctx, msg.Body); err != nil {
		c.metrics.IncrMessageConsumed(c.queue, "error")
		c.logger.Error("message handling failed",
			zap.String("queue", c.queue),
			zap.Error(err),
		)
	} else {
		c.metrics.IncrMessageConsumed(c.queue, "ok")
	}

	if err := msg.Ack(false); err != nil {
		c.logger.Error("ack failed",
			zap.String("queue", c.queue),
			zap.Error(err),
		)
	}
}
