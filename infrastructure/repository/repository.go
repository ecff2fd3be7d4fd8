package repository

import (
	"fmt"

	"ledger/application/ports"
	"ledger/domain/entity"
)

// Repositories implements ports.Repositories over a connection or a transaction
type Repositories struct {
	logger   ports.Logger
	metrics  ports.Metrics
	reports  *reportRepository
	progress *progressRepository
	users    *userRepository
}

// NewRepositories creates the repositories bound to the connection pool
func NewRepositories(db ports.Database, obs ports.Observability) (*Repositories, error) {
	logger, metrics, err := obs.ComponentsScoped("repository")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability: %w", err)
	}
	return newRepositories(db, logger, metrics), nil
}

func newRepositories(db ports.Executor, logger ports.Logger, metrics ports.Metrics) *Repositories {
	return &Repositories{
		logger:   logger,
		metrics:  metrics,
		reports:  &reportRepository{newBaseRepository[entity.Report](db, logger, metrics, "reports")},
		progress: &progressRepository{newBaseRepository[entity.Progress](db, logger, metrics, "progress")},
		users:    &userRepository{newBaseRepository[entity.User](db, logger, metrics, "users")},
	}
}

func (r *Repositories) Reports() ports.ReportRepository {
	return r.reports
}

func (r *Repositories) Progress() ports.ProgressRepository {
	return r.progress
}

func (r *Repositories) Users() ports.UserRepository {
	return r.users
}

// WithTx returns repositories whose statements run inside tx
func (r *Repositories) WithTx(tx ports.Transaction) ports.Repositories {
	return newRepositories(tx, r.logger, r.metrics)
}
