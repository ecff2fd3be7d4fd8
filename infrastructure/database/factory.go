package database

import (
	"fmt"

	"ledger/application/ports"
	"ledger/infrastructure/config"
)

// Factory creates the ledger store selected by cfg.Adapters.Database
type Factory struct {
	logger  ports.Logger
	metrics ports.Metrics
}

func NewFactory(logger ports.Logger, metrics ports.Metrics) *Factory {
	return &Factory{logger: logger, metrics: metrics}
}

func (f *Factory) Create(cfg *config.Config) (ports.Database, error) {
	switch cfg.Adapters.Database {
	case DialectPostgres:
		db, err := NewPostgres(&cfg.Database, f.logger, f.metrics)
		if err != nil {
			return nil, err
		}
		return db, nil
	case DialectSQLite:
		db, err := NewSQLite(&cfg.Database, f.logger, f.metrics)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database adapter: %s", cfg.Adapters.Database)
	}
}
