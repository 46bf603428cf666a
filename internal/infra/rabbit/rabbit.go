// Package rabbit adapts the message-bus port to RabbitMQ.
package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/spendsphere/spendsphere-go/internal/domain"
	"github.com/spendsphere/spendsphere-go/internal/infra/observability"
	"github.com/spendsphere/spendsphere-go/internal/infra/resilience"
)

// Client owns the broker connection and a shared publish channel.
// Publishes are serialised (an AMQP channel is not safe for concurrent
// use), retried with backoff, and guarded by a circuit breaker.
type Client struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	breaker *gobreaker.CircuitBreaker
	metrics *observability.Metrics
	logger  *zap.Logger

	mu sync.Mutex
}

// NewClient dials the broker and declares the given queues as durable.
func NewClient(url string, queues []string, metrics *observability.Metrics, logger *zap.Logger) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	return &Client{
		conn:    conn,
		ch:      ch,
		breaker: resilience.NewCircuitBreaker("rabbitmq"),
		metrics: metrics,
		logger:  logger,
	}, nil
}

// Publish sends a JSON message to the named queue.
func (c *Client) Publish(ctx context.Context, queue string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	_, err = c.breaker.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, resilience.Config{
			MaxRetries:     2,
			InitialBackoff: 100 * time.Millisecond,
		}, func() error {
			return c.publish(ctx, queue, payload)
		})
	})
	if err != nil {
		c.metrics.IncrPublishError(queue)
		c.logger.Error("publish failed",
			zap.String("queue", queue),
			zap.Error(err),
		)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &domain.ErrCircuitOpen{Service: "rabbitmq"}
		}
		return &domain.ErrExternalService{Service: "rabbitmq", Err: err}
	}

	c.metrics.IncrMessagePublished(queue)
	return nil
}

func (c *Client) publish(ctx context.Context, queue string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         payload,
	})
}

// Consume opens a dedicated channel for the queue and returns its
// delivery stream. Each consumer owns its channel.
func (c *Client) Consume(queue string) (<-chan amqp.Delivery, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open consumer channel: %w", err)
	}
	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("consume %s: %w", queue, err)
	}
	return deliveries, nil
}

// Close shuts down the channel and connection.
func (c *Client) Close() error {
	if err := c.ch.Close(); err != nil {
		c.conn.Close()
		return err
	}
	return c.conn.Close()
}
