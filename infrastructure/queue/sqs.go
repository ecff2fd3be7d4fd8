package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"ledger/application/ports"
	"ledger/infrastructure/config"
)

// SQS accepts at most 10 entries per SendMessageBatch call
const sqsMaxBatch = 10

type SQSQueue struct {
	client  *sqs.Client
	logger  ports.Logger
	metrics ports.Metrics

	mu        sync.Mutex
	queueURLs map[string]string
}

func NewSQSQueue(cfg *config.SQSConfig, obs ports.Observability) (*SQSQueue, error) {
	logger, metrics, err := obs.ComponentsScoped("queue.sqs")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.Region))
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("SQS queue initialized", "region", cfg.Region)

	return &SQSQueue{
		client:    sqs.NewFromConfig(awsCfg),
		logger:    logger,
		metrics:   metrics,
		queueURLs: make(map[string]string),
	}, nil
}

func (q *SQSQueue) queueURL(ctx context.Context, name string) (string, error) {
	q.mu.Lock()
	url, ok := q.queueURLs[name]
	q.mu.Unlock()
	if ok {
		return url, nil
	}

	result, err := q.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(name)})
	if err != nil {
		return "", fmt.Errorf("failed to get queue URL for %s: %w", name, err)
	}

	url = aws.ToString(result.QueueUrl)
	q.mu.Lock()
	q.queueURLs[name] = url
	q.mu.Unlock()
	return url, nil
}

func (q *SQSQueue) Publish(ctx context.Context, message *ports.QueueMessage) error {
	start := time.Now()
	tags := map[string]string{"target": message.Target}
	defer func() {
		q.metrics.RecordHistogram("queue.publish.duration_ms", float64(time.Since(start).Milliseconds()), tags)
	}()

	url, err := q.queueURL(ctx, message.Target)
	if err != nil {
		q.metrics.IncrementCounter("queue.publish.error", map[string]string{"target": message.Target, "error": "queue_url_failed"})
		return err
	}

	body, err := json.Marshal(message.Body)
	if err != nil {
		q.metrics.IncrementCounter("queue.publish.error", map[string]string{"target": message.Target, "error": "marshal_failed"})
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(url),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		q.logger.Error("failed to send message", "error", err, "target", message.Target)
		q.metrics.IncrementCounter("queue.publish.error", map[string]string{"target": message.Target, "error": "send_failed"})
		return fmt.Errorf("failed to send message: %w", err)
	}

	q.metrics.IncrementCounter("queue.publish.success", tags)
	return nil
}

// PublishBatch groups messages by target, keeping their relative order
func (q *SQSQueue) PublishBatch(ctx context.Context, messages []*ports.QueueMessage) error {
	var order []string
	batches := make(map[string][]*ports.QueueMessage)
	for _, msg := range messages {
		if _, ok := batches[msg.Target]; !ok {
			order = append(order, msg.Target)
		}
		batches[msg.Target] = append(batches[msg.Target], msg)
	}

	for _, target := range order {
		if err := q.publishBatchTo(ctx, target, batches[target]); err != nil {
			return err
		}
	}
	return nil
}

func (q *SQSQueue) publishBatchTo(ctx context.Context, target string, messages []*ports.QueueMessage) error {
	url, err := q.queueURL(ctx, target)
	if err != nil {
		return err
	}

	for i := 0; i < len(messages); i += sqsMaxBatch {
		end := min(i+sqsMaxBatch, len(messages))

		entries := make([]types.SendMessageBatchRequestEntry, 0, end-i)
		for j, msg := range messages[i:end] {
			body, err := json.Marshal(msg.Body)
			if err != nil {
				return fmt.Errorf("failed to marshal message: %w", err)
			}
			entries = append(entries, types.SendMessageBatchRequestEntry{
				Id:          aws.String(strconv.Itoa(j)),
				MessageBody: aws.String(string(body)),
			})
		}

		out, err := q.client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
			QueueUrl: aws.String(url),
			Entries:  entries,
		})
		if err != nil {
			return fmt.Errorf("failed to send batch: %w", err)
		}
		if len(out.Failed) > 0 {
			return fmt.Errorf("failed to send %d of %d messages to %s: %s",
				len(out.Failed), len(entries), target, aws.ToString(out.Failed[0].Message))
		}
	}
	return nil
}

func (q *SQSQueue) Close() error {
	return nil
}
