package ports

// Observability hands out loggers and metrics scoped to a component.
type Observability interface {
	// Components returns the root logger and metrics without scoping
	Components() (Logger, Metrics, error)

	// ComponentsScoped returns logger and metrics tagged with the component name
	ComponentsScoped(component string) (Logger, Metrics, error)

	// LoggerScoped returns a logger tagged with the component name
	LoggerScoped(component string) (Logger, error)

	// MetricsScoped returns metrics tagged with the component name
	MetricsScoped(component string) (Metrics, error)
}

// Logger is the structured logger used across the service.
// Fields are passed as alternating key/value pairs.
type Logger interface {
	// Info logs normal operation: state changes, completed steps.
	Info(msg string, fields ...interface{})

	// Error logs a failure. Pass the error under the "error" key.
	Error(msg string, fields ...interface{})

	// WithFields returns a Logger that adds the given fields to every entry.
	WithFields(fields map[string]interface{}) Logger
}

// Metrics records counters, histograms and gauges.
type Metrics interface {
	// IncrementCounter increments a counter metric by 1.
	IncrementCounter(name string, tags map[string]string)

	// RecordHistogram records a value in a histogram distribution.
	// Use for latencies and sizes.
	RecordHistogram(name string, value float64, tags map[string]string)

	// RecordGauge records a point-in-time measurement.
	RecordGauge(name string, value float64, tags map[string]string)

	// WithTags returns a Metrics instance with additional default tags.
	WithTags(tags map[string]string) Metrics
}
