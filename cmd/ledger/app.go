package main

import (
	"context"
	"fmt"

	"ledger/application/ports"
	"ledger/infrastructure/blobstore"
	"ledger/infrastructure/config"
	"ledger/infrastructure/database"
	"ledger/infrastructure/observability"
	"ledger/infrastructure/queue"
	"ledger/infrastructure/repository"
	"ledger/infrastructure/storage"
	"ledger/internal/ledger"
	"ledger/internal/report"
)

// app holds the wired dependencies shared by every command
type app struct {
	cfg     *config.Config
	obs     ports.Observability
	logger  ports.Logger
	db      ports.Database
	repos   ports.Repositories
	events  ports.Queue
	ledger  *ledger.Manager
	reports *report.Service
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	obs, err := observability.CreateObservability(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create observability: %w", err)
	}
	logger, metrics, err := obs.ComponentsScoped("bootstrap")
	if err != nil {
		return nil, err
	}

	db, err := database.NewFactory(logger, metrics).Create(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	a := &app{cfg: cfg, obs: obs, logger: logger, db: db}
	if err := a.wire(ctx, metrics); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, metrics ports.Metrics) error {
	var err error
	if a.cfg.Database.AutoMigrate {
		if _, err = database.Migrate(ctx, a.db, a.logger); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}

	a.repos, err = repository.NewRepositories(a.db, a.obs)
	if err != nil {
		return err
	}

	store, err := storage.NewFactory(a.logger, metrics).Create(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	blobs := blobstore.New(store, "", a.cfg.Storage.PublicBaseURL, a.logger, metrics)

	a.events, err = queue.CreateQueue(a.cfg, a.obs)
	if err != nil {
		return fmt.Errorf("failed to create event queue: %w", err)
	}

	var opts []ledger.Option
	if a.events != nil {
		opts = append(opts, ledger.WithEvents(a.events, a.cfg.Queue.EventsTarget))
	}
	a.ledger, err = ledger.NewManager(a.db, a.repos, blobs, a.cfg.Ledger, a.obs, opts...)
	if err != nil {
		return err
	}

	a.reports, err = report.NewService(a.db, a.repos, a.ledger, a.obs)
	return err
}

func (a *app) close() {
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.logger.Error("Failed to close event queue", "error", err)
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database", "error", err)
	}
}
