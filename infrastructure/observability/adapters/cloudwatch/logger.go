// Package cloudwatch ships logs to CloudWatch Logs and metrics to CloudWatch Metrics.
package cloudwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"ledger/application/ports"
	"ledger/infrastructure/config"
)

type logLevel int

const (
	debugLevel logLevel = iota
	infoLevel
	errorLevel
)

// logger implements ports.Logger on CloudWatch Logs
type logger struct {
	client     *cloudwatchlogs.Client
	logGroup   string
	logStream  string
	baseFields map[string]interface{}
	level      logLevel
}

// NewLogger creates the log group and stream when missing and returns a
// logger that puts one event per entry.
func NewLogger(cfg *config.Config) (ports.Logger, error) {
	logGroup := cfg.Observability.CloudWatchLogGroup
	if logGroup == "" {
		logGroup = fmt.Sprintf("/%s/%s", cfg.ServiceName, cfg.Environment)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region(cfg)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	l := &logger{
		client:     cloudwatchlogs.NewFromConfig(awsCfg),
		logGroup:   logGroup,
		logStream:  fmt.Sprintf("%s-%s-%d", cfg.ServiceName, cfg.Environment, time.Now().Unix()),
		baseFields: map[string]interface{}{"service": cfg.ServiceName, "environment": cfg.Environment},
		level:      parseLogLevel(cfg.LogLevel),
	}
	if cfg.Version != "" {
		l.baseFields["version"] = cfg.Version
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := l.ensureLogGroup(ctx); err != nil {
		return nil, err
	}
	if err := l.ensureLogStream(ctx); err != nil {
		return nil, err
	}

	return l, nil
}

func (l *logger) Info(msg string, fields ...interface{}) {
	if l.level > infoLevel {
		return
	}
	l.log("INFO", msg, fieldsToMap(fields...))
}

func (l *logger) Error(msg string, fields ...interface{}) {
	l.log("ERROR", msg, fieldsToMap(fields...))
}

func (l *logger) WithFields(fields map[string]interface{}) ports.Logger {
	merged := make(map[string]interface{}, len(l.baseFields)+len(fields))
	for k, v := range l.baseFields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	return &logger{
		client:     l.client,
		logGroup:   l.logGroup,
		logStream:  l.logStream,
		baseFields: merged,
		level:      l.level,
	}
}

func (l *logger) log(level, msg string, fields map[string]interface{}) {
	entry := make(map[string]interface{}, len(l.baseFields)+len(fields)+3)
	for k, v := range l.baseFields {
		entry[k] = v
	}
	for k, v := range fields {
		if err, ok := v.(error); ok && err != nil {
			entry[k] = err.Error()
			entry[k+"_type"] = fmt.Sprintf("%T", err)
			continue
		}
		entry[k] = v
	}
	entry["level"] = level
	entry["message"] = msg
	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(entry)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"level":%q,"message":%q,"error":"failed to marshal log"}`, level, msg))
	}

	input := &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  aws.String(l.logGroup),
		LogStreamName: aws.String(l.logStream),
		LogEvents: []types.InputLogEvent{{
			Message:   aws.String(string(data)),
			Timestamp: aws.Int64(time.Now().UnixMilli()),
		}},
	}

	// Sent asynchronously; a lost log line never fails the caller.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = l.client.PutLogEvents(ctx, input)
	}()
}

func (l *logger) ensureLogGroup(ctx context.Context) error {
	_, err := l.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: aws.String(l.logGroup),
	})
	if err != nil {
		var exists *types.ResourceAlreadyExistsException
		if errors.As(err, &exists) {
			return nil
		}
		return fmt.Errorf("failed to create log group: %w", err)
	}

	_, _ = l.client.PutRetentionPolicy(ctx, &cloudwatchlogs.PutRetentionPolicyInput{
		LogGroupName:    aws.String(l.logGroup),
		RetentionInDays: aws.Int32(30),
	})
	return nil
}

func (l *logger) ensureLogStream(ctx context.Context) error {
	_, err := l.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(l.logGroup),
		LogStreamName: aws.String(l.logStream),
	})
	if err != nil {
		var exists *types.ResourceAlreadyExistsException
		if errors.As(err, &exists) {
			return nil
		}
		return fmt.Errorf("failed to create log stream: %w", err)
	}
	return nil
}

func region(cfg *config.Config) string {
	if cfg.Observability.CloudWatchRegion != "" {
		return cfg.Observability.CloudWatchRegion
	}
	return cfg.Storage.S3.Region
}

func parseLogLevel(level string) logLevel {
	switch level {
	case "debug":
		return debugLevel
	case "error":
		return errorLevel
	default:
		return infoLevel
	}
}

// fieldsToMap converts key/value pairs to a map; a dangling key gets ""
func fieldsToMap(fields ...interface{}) map[string]interface{} {
	if len(fields)%2 != 0 {
		fields = append(fields, "")
	}
	result := make(map[string]interface{}, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", fields[i])
		}
		result[key] = fields[i+1]
	}
	return result
}
