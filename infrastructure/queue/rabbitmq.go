package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"ledger/application/ports"
	"ledger/infrastructure/config"
)

// RabbitMQQueue publishes JSON messages to durable queues on the default
// exchange. An AMQP channel is not safe for concurrent use, so publishes are
// serialized.
type RabbitMQQueue struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	declared map[string]bool
	timeout  time.Duration
	logger   ports.Logger
	metrics  ports.Metrics
}

func NewRabbitMQQueue(cfg *config.RabbitMQConfig, obs ports.Observability) (*RabbitMQQueue, error) {
	logger, metrics, err := obs.ComponentsScoped("queue.rabbitmq")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	conn, err := amqp091.Dial(cfg.URL)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		logger.Error("failed to create channel", "error", err)
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	logger.Info("RabbitMQ queue initialized")

	return &RabbitMQQueue{
		conn:     conn,
		channel:  channel,
		declared: make(map[string]bool),
		timeout:  timeout,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

func (q *RabbitMQQueue) Publish(ctx context.Context, message *ports.QueueMessage) error {
	start := time.Now()
	tags := map[string]string{"target": message.Target}
	defer func() {
		q.metrics.RecordHistogram("queue.publish.duration_ms", float64(time.Since(start).Milliseconds()), tags)
	}()

	body, err := json.Marshal(message.Body)
	if err != nil {
		q.metrics.IncrementCounter("queue.publish.error", map[string]string{"target": message.Target, "error": "marshal_failed"})
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.declared[message.Target] {
		_, err = q.channel.QueueDeclare(
			message.Target, // name
			true,           // durable
			false,          // auto-delete
			false,          // exclusive
			false,          // no-wait
			nil,
		)
		if err != nil {
			q.logger.Error("failed to declare queue", "error", err, "queue", message.Target)
			return fmt.Errorf("failed to declare queue: %w", err)
		}
		q.declared[message.Target] = true
	}

	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	err = q.channel.PublishWithContext(ctx, "", message.Target, false, false, amqp091.Publishing{
		DeliveryMode: amqp091.Persistent,
		ContentType:  "application/json",
		Body:         body,
		Timestamp:    time.Now(),
	})
	if err != nil {
		q.logger.Error("failed to publish message", "error", err, "target", message.Target)
		q.metrics.IncrementCounter("queue.publish.error", map[string]string{"target": message.Target, "error": "publish_failed"})
		return fmt.Errorf("failed to publish message: %w", err)
	}

	q.metrics.IncrementCounter("queue.publish.success", tags)
	return nil
}

func (q *RabbitMQQueue) PublishBatch(ctx context.Context, messages []*ports.QueueMessage) error {
	for _, msg := range messages {
		if err := q.Publish(ctx, msg); err != nil {
			return fmt.Errorf("failed to publish message in batch: %w", err)
		}
	}
	return nil
}

func (q *RabbitMQQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
