package observability

import (
	"errors"
	"fmt"
	"sync"

	"ledger/application/ports"
	"ledger/infrastructure/config"
)

var errNotInitialized = errors.New("observability not initialized")

// scope is the pair handed to one ledger component (ledger, report, http,
// repository, blobstore, queue...)
type scope struct {
	logger  ports.Logger
	metrics ports.Metrics
}

type observability struct {
	logger   ports.Logger
	metrics  ports.Metrics
	identity map[string]interface{}

	mu     sync.Mutex
	scopes map[string]scope
}

// CreateObservability builds the logger and metrics adapters selected in cfg
func CreateObservability(cfg *config.Config) (ports.Observability, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	logger, metrics, err := createComponents(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create observability: %w", err)
	}

	return New(cfg, logger, metrics), nil
}

// New wraps existing adapters. Every scoped logger carries the deployment
// identity from cfg; scoped metrics are tagged with the component only, so
// prometheus series stay stable across releases.
func New(cfg *config.Config, logger ports.Logger, metrics ports.Metrics) ports.Observability {
	identity := map[string]interface{}{}
	if cfg != nil {
		identity["service"] = cfg.ServiceName
		identity["version"] = cfg.Version
		identity["env"] = cfg.Environment
	}
	return &observability{
		logger:   logger,
		metrics:  metrics,
		identity: identity,
		scopes:   make(map[string]scope),
	}
}

func (obs *observability) Components() (ports.Logger, ports.Metrics, error) {
	if obs.logger == nil || obs.metrics == nil {
		return nil, nil, errNotInitialized
	}
	return obs.logger, obs.metrics, nil
}

func (obs *observability) ComponentsScoped(component string) (ports.Logger, ports.Metrics, error) {
	if obs.logger == nil || obs.metrics == nil {
		return nil, nil, errNotInitialized
	}
	s := obs.scope(component)
	return s.logger, s.metrics, nil
}

func (obs *observability) LoggerScoped(component string) (ports.Logger, error) {
	if obs.logger == nil {
		return nil, fmt.Errorf("logger: %w", errNotInitialized)
	}
	return obs.scope(component).logger, nil
}

func (obs *observability) MetricsScoped(component string) (ports.Metrics, error) {
	if obs.metrics == nil {
		return nil, fmt.Errorf("metrics: %w", errNotInitialized)
	}
	return obs.scope(component).metrics, nil
}

// scope returns the cached pair for component, building it on first use.
// Either half is nil when the matching adapter is missing.
func (obs *observability) scope(component string) scope {
	obs.mu.Lock()
	defer obs.mu.Unlock()

	if s, ok := obs.scopes[component]; ok {
		return s
	}

	var s scope
	if obs.logger != nil {
		fields := make(map[string]interface{}, len(obs.identity)+1)
		for k, v := range obs.identity {
			fields[k] = v
		}
		fields["component"] = component
		s.logger = obs.logger.WithFields(fields)
	}
	if obs.metrics != nil {
		s.metrics = obs.metrics.WithTags(map[string]string{"component": component})
	}
	obs.scopes[component] = s
	return s
}
