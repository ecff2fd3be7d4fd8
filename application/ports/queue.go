package ports

import (
	"context"
)

// QueueMessage is a message to be published to a queue
type QueueMessage struct {
	// Queue or topic to publish to
	Target string
	// Message body, JSON encoded by the adapter
	Body interface{}
}

// Queue publishes messages to a broker
type Queue interface {
	// Publish sends a message to the target queue
	Publish(ctx context.Context, message *QueueMessage) error

	// PublishBatch sends several messages, stopping at the first failure
	PublishBatch(ctx context.Context, messages []*QueueMessage) error

	// Close releases the broker connection
	Close() error
}
