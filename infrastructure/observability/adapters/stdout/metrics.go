package stdout

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"ledger/application/ports"
)

type store struct {
	mu         sync.RWMutex
	counters   map[string]int64
	histograms map[string][]float64
	gauges     map[string]float64
}

// Metrics implements ports.Metrics by keeping values in memory and echoing
// each observation as a log line.
type Metrics struct {
	tags  map[string]string
	out   *syncWriter
	store *store
}

// NewMetrics creates metrics echoing to stdout
func NewMetrics() *Metrics {
	return NewMetricsTo(os.Stdout)
}

// NewMetricsTo creates metrics echoing to w
func NewMetricsTo(w io.Writer) *Metrics {
	return &Metrics{
		tags: make(map[string]string),
		out:  &syncWriter{w: w},
		store: &store{
			counters:   make(map[string]int64),
			histograms: make(map[string][]float64),
			gauges:     make(map[string]float64),
		},
	}
}

func (m *Metrics) IncrementCounter(name string, tags map[string]string) {
	all := m.combine(tags)
	key := buildKey(name, all)

	m.store.mu.Lock()
	m.store.counters[key]++
	value := m.store.counters[key]
	m.store.mu.Unlock()

	m.echo("COUNTER", name, float64(value), all)
}

func (m *Metrics) RecordHistogram(name string, value float64, tags map[string]string) {
	all := m.combine(tags)
	key := buildKey(name, all)

	m.store.mu.Lock()
	m.store.histograms[key] = append(m.store.histograms[key], value)
	m.store.mu.Unlock()

	m.echo("HISTOGRAM", name, value, all)
}

func (m *Metrics) RecordGauge(name string, value float64, tags map[string]string) {
	all := m.combine(tags)
	key := buildKey(name, all)

	m.store.mu.Lock()
	m.store.gauges[key] = value
	m.store.mu.Unlock()

	m.echo("GAUGE", name, value, all)
}

// WithTags returns metrics sharing the same storage with extra default tags
func (m *Metrics) WithTags(tags map[string]string) ports.Metrics {
	return &Metrics{tags: m.combine(tags), out: m.out, store: m.store}
}

// GetCounter returns the current value of a counter. Tags must include the
// default tags of the instance that recorded it.
func (m *Metrics) GetCounter(name string, tags map[string]string) int64 {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	return m.store.counters[buildKey(name, tags)]
}

// CounterTotal sums a counter across every tag set
func (m *Metrics) CounterTotal(name string) int64 {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()

	var total int64
	for key, v := range m.store.counters {
		if key == name || strings.HasPrefix(key, name+"{") {
			total += v
		}
	}
	return total
}

// GetHistogram returns a copy of the values recorded for a histogram
func (m *Metrics) GetHistogram(name string, tags map[string]string) []float64 {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()

	values := m.store.histograms[buildKey(name, tags)]
	result := make([]float64, len(values))
	copy(result, values)
	return result
}

func (m *Metrics) GetGauge(name string, tags map[string]string) float64 {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	return m.store.gauges[buildKey(name, tags)]
}

// Reset clears all recorded values
func (m *Metrics) Reset() {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	m.store.counters = make(map[string]int64)
	m.store.histograms = make(map[string][]float64)
	m.store.gauges = make(map[string]float64)
}

func (m *Metrics) combine(tags map[string]string) map[string]string {
	all := make(map[string]string, len(m.tags)+len(tags))
	for k, v := range m.tags {
		all[k] = v
	}
	for k, v := range tags {
		all[k] = v
	}
	return all
}

func (m *Metrics) echo(kind, name string, value float64, tags map[string]string) {
	ts := time.Now().UTC().Format(time.RFC3339)
	line := fmt.Sprintf("%s [METRIC] %s %s=%.2f", ts, kind, name, value)
	if pairs := sortedPairs(tags, "="); len(pairs) > 0 {
		line += " " + strings.Join(pairs, " ")
	}
	m.out.writeLine(line)
}

// buildKey renders name{k:v,...} with sorted tags so lookups are stable
func buildKey(name string, tags map[string]string) string {
	pairs := sortedPairs(tags, ":")
	if len(pairs) == 0 {
		return name
	}
	return fmt.Sprintf("%s{%s}", name, strings.Join(pairs, ","))
}

func sortedPairs(tags map[string]string, sep string) []string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+sep+tags[k])
	}
	return pairs
}
