package queue

import (
	"fmt"

	"ledger/application/ports"
	"ledger/infrastructure/config"
)

// CreateQueue returns the event publisher selected by cfg.Adapters.Queue, or
// nil when no queue adapter is configured.
func CreateQueue(cfg *config.Config, obs ports.Observability) (ports.Queue, error) {
	logger, err := obs.LoggerScoped("queue.factory")
	if err != nil {
		return nil, fmt.Errorf("failed to get logger from observability: %w", err)
	}

	switch cfg.Adapters.Queue {
	case "":
		logger.Info("No queue adapter configured, ledger events are disabled")
		return nil, nil

	case "rabbitmq":
		logger.Info("Creating RabbitMQ queue adapter", "target", cfg.Queue.EventsTarget)
		q, err := NewRabbitMQQueue(&cfg.Queue.RabbitMQ, obs)
		if err != nil {
			return nil, err
		}
		return q, nil

	case "sqs":
		logger.Info("Creating SQS queue adapter", "region", cfg.Queue.SQS.Region)
		q, err := NewSQSQueue(&cfg.Queue.SQS, obs)
		if err != nil {
			return nil, err
		}
		return q, nil

	default:
		return nil, fmt.Errorf("unsupported queue adapter: %s", cfg.Adapters.Queue)
	}
}
