package storage

import (
	"context"
	"fmt"

	"ledger/application/ports"
	"ledger/infrastructure/config"
	"ledger/infrastructure/storage/adapters/fs"
	"ledger/infrastructure/storage/adapters/gcs"
	"ledger/infrastructure/storage/adapters/s3"
)

type Factory struct {
	logger  ports.Logger
	metrics ports.Metrics
}

func NewFactory(logger ports.Logger, metrics ports.Metrics) *Factory {
	if logger == nil || metrics == nil {
		panic("logger and metrics are required for storage factory")
	}
	return &Factory{logger: logger, metrics: metrics}
}

// Create returns the object store selected by cfg.Adapters.Storage
func (f *Factory) Create(ctx context.Context, cfg *config.Config) (ports.Storage, error) {
	switch cfg.Adapters.Storage {
	case "s3":
		f.logger.Info("Creating S3 storage adapter", "bucket", cfg.Storage.BucketOrPath, "region", cfg.Storage.S3.Region)
		return s3.New(&cfg.Storage, f.logger, f.metrics)

	case "gcs":
		f.logger.Info("Creating GCS storage adapter", "bucket", cfg.Storage.BucketOrPath)
		return gcs.New(ctx, &cfg.Storage, f.logger, f.metrics)

	case "filesystem":
		f.logger.Info("Creating filesystem storage adapter", "path", cfg.Storage.BucketOrPath)
		store, err := fs.NewStorage(cfg.Storage.BucketOrPath, f.logger, f.metrics)
		if err != nil {
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported storage adapter: %s", cfg.Adapters.Storage)
	}
}
