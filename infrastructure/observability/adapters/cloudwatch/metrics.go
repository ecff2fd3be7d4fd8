package cloudwatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"ledger/application/ports"
	"ledger/infrastructure/config"
)

const (
	flushSize     = 20
	flushInterval = 10 * time.Second
)

type sink struct {
	client    *cloudwatch.Client
	namespace string
	ch        chan types.MetricDatum
}

// Metrics implements ports.Metrics by batching datums to PutMetricData
type Metrics struct {
	sink        *sink
	defaultTags map[string]string
}

// NewMetrics starts the background flusher and returns the metrics client
func NewMetrics(cfg *config.Config) (ports.Metrics, error) {
	namespace := cfg.Observability.CloudWatchNamespace
	if namespace == "" {
		namespace = fmt.Sprintf("%s/%s", cfg.ServiceName, cfg.Environment)
	}

	r := region(cfg)
	if r == "" {
		return nil, fmt.Errorf("no AWS region specified for metrics")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(r))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for metrics: %w", err)
	}

	s := &sink{
		client:    cloudwatch.NewFromConfig(awsCfg),
		namespace: namespace,
		ch:        make(chan types.MetricDatum, 100),
	}
	go s.run()

	return &Metrics{sink: s, defaultTags: make(map[string]string)}, nil
}

func (m *Metrics) WithTags(tags map[string]string) ports.Metrics {
	return &Metrics{sink: m.sink, defaultTags: m.mergeTags(tags)}
}

func (m *Metrics) IncrementCounter(name string, tags map[string]string) {
	m.push(name, 1, types.StandardUnitCount, tags)
}

func (m *Metrics) RecordHistogram(name string, value float64, tags map[string]string) {
	unit := types.StandardUnitNone
	if strings.HasSuffix(name, "_ms") {
		unit = types.StandardUnitMilliseconds
	}
	m.push(name, value, unit, tags)
}

func (m *Metrics) RecordGauge(name string, value float64, tags map[string]string) {
	m.push(name, value, types.StandardUnitNone, tags)
}

func (m *Metrics) push(name string, value float64, unit types.StandardUnit, tags map[string]string) {
	merged := m.mergeTags(tags)
	datum := types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(time.Now()),
		Dimensions: tagsToDimensions(merged),
	}

	select {
	case m.sink.ch <- datum:
	default:
		// buffer full: drop
	}
}

func (m *Metrics) mergeTags(tags map[string]string) map[string]string {
	merged := make(map[string]string, len(m.defaultTags)+len(tags))
	for k, v := range m.defaultTags {
		merged[k] = v
	}
	for k, v := range tags {
		merged[k] = v
	}
	return merged
}

func tagsToDimensions(tags map[string]string) []types.Dimension {
	dims := make([]types.Dimension, 0, len(tags))
	for name, value := range tags {
		dims = append(dims, types.Dimension{Name: aws.String(name), Value: aws.String(value)})
	}
	return dims
}

// run owns the buffer; only this goroutine touches it
func (s *sink) run() {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	buffer := make([]types.MetricDatum, 0, flushSize)
	for {
		select {
		case d := <-s.ch:
			buffer = append(buffer, d)
			if len(buffer) >= flushSize {
				s.flush(buffer)
				buffer = make([]types.MetricDatum, 0, flushSize)
			}
		case <-ticker.C:
			if len(buffer) > 0 {
				s.flush(buffer)
				buffer = make([]types.MetricDatum, 0, flushSize)
			}
		}
	}
}

func (s *sink) flush(data []types.MetricDatum) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = s.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(s.namespace),
			MetricData: data,
		})
	}()
}
