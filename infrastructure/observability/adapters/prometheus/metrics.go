// Package prometheus adapts ports.Metrics onto the Prometheus client library.
// Metric names such as "ledger.add_progress.success" become
// "<namespace>_ledger_add_progress_success_total"; tags become labels.
package prometheus

import (
	"sort"
	"strings"
	"sync"

	"ledger/application/ports"

	prom "github.com/prometheus/client_golang/prometheus"
)

// registry holds the lazily created collectors shared by every tagged view.
// The label set of a collector is fixed by its first observation; later
// observations fill missing labels with "" and drop unknown ones.
type registry struct {
	mu         sync.Mutex
	namespace  string
	registerer prom.Registerer
	counters   map[string]*prom.CounterVec
	histograms map[string]*prom.HistogramVec
	gauges     map[string]*prom.GaugeVec
	labels     map[string][]string
}

// Metrics implements ports.Metrics on Prometheus collectors
type Metrics struct {
	reg  *registry
	tags map[string]string
}

// NewMetrics creates a Prometheus metrics adapter. A nil registerer uses the
// default registry, which is what promhttp.Handler serves.
func NewMetrics(namespace string, registerer prom.Registerer) *Metrics {
	if registerer == nil {
		registerer = prom.DefaultRegisterer
	}
	return &Metrics{
		reg: &registry{
			namespace:  sanitize(namespace),
			registerer: registerer,
			counters:   make(map[string]*prom.CounterVec),
			histograms: make(map[string]*prom.HistogramVec),
			gauges:     make(map[string]*prom.GaugeVec),
			labels:     make(map[string][]string),
		},
		tags: make(map[string]string),
	}
}

func (m *Metrics) IncrementCounter(name string, tags map[string]string) {
	tags = m.merge(tags)
	vec, labels := m.reg.counter(name, tags)
	vec.WithLabelValues(labelValues(labels, tags)...).Inc()
}

func (m *Metrics) RecordHistogram(name string, value float64, tags map[string]string) {
	tags = m.merge(tags)
	vec, labels := m.reg.histogram(name, tags)
	vec.WithLabelValues(labelValues(labels, tags)...).Observe(value)
}

func (m *Metrics) RecordGauge(name string, value float64, tags map[string]string) {
	tags = m.merge(tags)
	vec, labels := m.reg.gauge(name, tags)
	vec.WithLabelValues(labelValues(labels, tags)...).Set(value)
}

// WithTags returns a view sharing the same collectors with extra default tags
func (m *Metrics) WithTags(tags map[string]string) ports.Metrics {
	return &Metrics{reg: m.reg, tags: m.merge(tags)}
}

func (m *Metrics) merge(tags map[string]string) map[string]string {
	merged := make(map[string]string, len(m.tags)+len(tags))
	for k, v := range m.tags {
		merged[k] = v
	}
	for k, v := range tags {
		merged[k] = v
	}
	return merged
}

func (r *registry) counter(name string, tags map[string]string) (*prom.CounterVec, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.metricName(name) + "_total"
	if vec, ok := r.counters[key]; ok {
		return vec, r.labels[key]
	}

	labels := labelNames(tags)
	vec := prom.NewCounterVec(prom.CounterOpts{Name: key, Help: "Counter " + name}, labels)
	vec = registerOrExisting(r.registerer, vec).(*prom.CounterVec)
	r.counters[key] = vec
	r.labels[key] = labels
	return vec, labels
}

func (r *registry) histogram(name string, tags map[string]string) (*prom.HistogramVec, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.metricName(name)
	if vec, ok := r.histograms[key]; ok {
		return vec, r.labels[key]
	}

	labels := labelNames(tags)
	vec := prom.NewHistogramVec(prom.HistogramOpts{
		Name:    key,
		Help:    "Histogram " + name,
		Buckets: bucketsFor(name),
	}, labels)
	vec = registerOrExisting(r.registerer, vec).(*prom.HistogramVec)
	r.histograms[key] = vec
	r.labels[key] = labels
	return vec, labels
}

func (r *registry) gauge(name string, tags map[string]string) (*prom.GaugeVec, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.metricName(name)
	if vec, ok := r.gauges[key]; ok {
		return vec, r.labels[key]
	}

	labels := labelNames(tags)
	vec := prom.NewGaugeVec(prom.GaugeOpts{Name: key, Help: "Gauge " + name}, labels)
	vec = registerOrExisting(r.registerer, vec).(*prom.GaugeVec)
	r.gauges[key] = vec
	r.labels[key] = labels
	return vec, labels
}

func (r *registry) metricName(name string) string {
	if r.namespace == "" {
		return sanitize(name)
	}
	return r.namespace + "_" + sanitize(name)
}

// registerOrExisting returns the already registered collector when another
// adapter instance registered the same name first.
func registerOrExisting(registerer prom.Registerer, c prom.Collector) prom.Collector {
	if err := registerer.Register(c); err != nil {
		if are, ok := err.(prom.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}

func bucketsFor(name string) []float64 {
	switch {
	case strings.HasSuffix(name, "duration_ms"):
		return prom.ExponentialBuckets(1, 2, 16) // 1ms .. ~32s
	case strings.HasSuffix(name, "bytes") || strings.HasSuffix(name, "size"):
		return []float64{
			1024,      // 1KB
			10240,     // 10KB
			102400,    // 100KB
			1048576,   // 1MB
			10485760,  // 10MB
			104857600, // 100MB
		}
	default:
		return prom.DefBuckets
	}
}

func labelNames(tags map[string]string) []string {
	names := make([]string, 0, len(tags))
	for k := range tags {
		names = append(names, sanitize(k))
	}
	sort.Strings(names)
	return names
}

func labelValues(labels []string, tags map[string]string) []string {
	sanitized := make(map[string]string, len(tags))
	for k, v := range tags {
		sanitized[sanitize(k)] = v
	}
	values := make([]string, len(labels))
	for i, l := range labels {
		values[i] = sanitized[l]
	}
	return values
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
