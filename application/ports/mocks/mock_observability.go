// Package mocks provides testify mocks of the application ports
package mocks

import (
	"ledger/application/ports"

	"github.com/stretchr/testify/mock"
)

// MockLogger is a mock implementation of ports.Logger
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Info(msg string, fields ...interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Error(msg string, fields ...interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) WithFields(fields map[string]interface{}) ports.Logger {
	args := m.Called(fields)
	if logger, ok := args.Get(0).(ports.Logger); ok {
		return logger
	}
	return m
}

// MockMetrics is a mock implementation of ports.Metrics
type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) IncrementCounter(name string, tags map[string]string) {
	m.Called(name, tags)
}

func (m *MockMetrics) RecordHistogram(name string, value float64, tags map[string]string) {
	m.Called(name, value, tags)
}

func (m *MockMetrics) RecordGauge(name string, value float64, tags map[string]string) {
	m.Called(name, value, tags)
}

func (m *MockMetrics) WithTags(tags map[string]string) ports.Metrics {
	args := m.Called(tags)
	if metrics, ok := args.Get(0).(ports.Metrics); ok {
		return metrics
	}
	return m
}

// MockObservability returns the configured logger and metrics for any component
type MockObservability struct {
	Logger  ports.Logger
	Metrics ports.Metrics
}

func (m *MockObservability) Components() (ports.Logger, ports.Metrics, error) {
	return m.Logger, m.Metrics, nil
}

func (m *MockObservability) ComponentsScoped(component string) (ports.Logger, ports.Metrics, error) {
	return m.Logger, m.Metrics, nil
}

func (m *MockObservability) LoggerScoped(component string) (ports.Logger, error) {
	return m.Logger, nil
}

func (m *MockObservability) MetricsScoped(component string) (ports.Metrics, error) {
	return m.Metrics, nil
}
