// Package ledger keeps each report's current-status pointer consistent with
// its history of progress entries while media blobs live in a separate,
// non-transactional store.
package ledger

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"ledger/application/ports"
	"ledger/infrastructure/config"
)

// Manager runs the progress ledger operations
type Manager struct {
	db       ports.Database
	repos    ports.Repositories
	blobs    ports.BlobStore
	limits   config.LedgerConfig
	validate *validator.Validate
	clock    func() time.Time

	events      ports.Queue
	eventTarget string

	logger  ports.Logger
	metrics ports.Metrics
}

// Option customizes a Manager
type Option func(*Manager)

// WithClock replaces the wall clock used for created_at/updated_at stamps
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithEvents publishes ledger events to target after each committed change.
// A nil queue disables publishing.
func WithEvents(queue ports.Queue, target string) Option {
	return func(m *Manager) {
		m.events = queue
		m.eventTarget = target
	}
}

// NewManager creates a ledger manager over the given store and blob store
func NewManager(
	db ports.Database,
	repos ports.Repositories,
	blobs ports.BlobStore,
	limits config.LedgerConfig,
	obs ports.Observability,
	opts ...Option,
) (*Manager, error) {
	logger, metrics, err := obs.ComponentsScoped("ledger")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability: %w", err)
	}

	m := &Manager{
		db:       db,
		repos:    repos,
		blobs:    blobs,
		limits:   limits,
		validate: newValidator(),
		clock:    time.Now,
		logger:   logger,
		metrics:  metrics,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// now returns the clock reading at the precision every supported store keeps
func (m *Manager) now() time.Time {
	return m.clock().UTC().Truncate(time.Microsecond)
}

func (m *Manager) record(op string, start time.Time, err error) {
	m.metrics.RecordHistogram("ledger."+op+".duration_ms",
		float64(time.Since(start).Milliseconds()), nil)
	if err != nil {
		m.metrics.IncrementCounter("ledger."+op+".failure",
			map[string]string{"code": string(CodeOf(err))})
		return
	}
	m.metrics.IncrementCounter("ledger."+op+".success", nil)
}
