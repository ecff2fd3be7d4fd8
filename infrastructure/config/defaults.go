package config

import (
	"fmt"
	"strings"
	"time"
)

// applyDefaults fills adapter choices and derived values left empty
func applyDefaults(cfg *Config) {
	if cfg.Adapters.Storage == "" {
		cfg.Adapters.Storage = "filesystem"
	}
	if cfg.Adapters.Database == "" {
		if cfg.IsLocal() || cfg.IsTest() {
			cfg.Adapters.Database = "sqlite"
		} else {
			cfg.Adapters.Database = "postgres"
		}
	}
	if cfg.Adapters.Logger == "" {
		cfg.Adapters.Logger = "stdout"
	}
	if cfg.Adapters.Metrics == "" {
		cfg.Adapters.Metrics = "prometheus"
	}

	if cfg.Storage.BucketOrPath == "" {
		if cfg.Adapters.Storage == "filesystem" {
			cfg.Storage.BucketOrPath = "public/uploads"
		} else {
			cfg.Storage.BucketOrPath = fmt.Sprintf("%s-%s-media", cfg.ServiceName, strings.ToLower(cfg.Environment))
		}
	}
	if cfg.Storage.PublicBaseURL == "" {
		cfg.Storage.PublicBaseURL = defaultPublicBaseURL(cfg)
	}
	cfg.Storage.PublicBaseURL = strings.TrimRight(cfg.Storage.PublicBaseURL, "/")

	if cfg.Adapters.Database == "sqlite" && cfg.Database.Path == "" {
		cfg.Database.Path = "ledger.db"
	}

	if cfg.Queue.EventsTarget == "" {
		cfg.Queue.EventsTarget = fmt.Sprintf("%s-%s-events", cfg.ServiceName, strings.ToLower(cfg.Environment))
	}

	if cfg.Observability.PrometheusNamespace == "" {
		cfg.Observability.PrometheusNamespace = strings.ReplaceAll(cfg.ServiceName, "-", "_")
	}
	if cfg.Observability.CloudWatchNamespace == "" {
		cfg.Observability.CloudWatchNamespace = fmt.Sprintf("%s/%s", cfg.ServiceName, cfg.Environment)
	}
	if cfg.Observability.CloudWatchLogGroup == "" {
		cfg.Observability.CloudWatchLogGroup = fmt.Sprintf("/%s/%s", cfg.ServiceName, cfg.Environment)
	}

	if cfg.HTTP.MaxRequestBytes <= 0 {
		cfg.HTTP.MaxRequestBytes = cfg.Ledger.MaxMediaBytes*int64(cfg.Ledger.MaxMediaItems) + 1<<20
	}

	if cfg.IsProduction() {
		cfg.Observability.JSONLogs = true
		if cfg.Ledger.OperationTimeout < 30*time.Second {
			cfg.Ledger.OperationTimeout = 30 * time.Second
		}
	}

	if cfg.IsLocal() && len(cfg.HTTP.CORSOrigins) == 0 {
		cfg.HTTP.CORSOrigins = []string{"*"}
	}
}

func defaultPublicBaseURL(cfg *Config) string {
	switch cfg.Adapters.Storage {
	case "s3":
		if cfg.Storage.S3.Endpoint != "" {
			return fmt.Sprintf("%s/%s", strings.TrimRight(cfg.Storage.S3.Endpoint, "/"), cfg.Storage.BucketOrPath)
		}
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Storage.BucketOrPath, cfg.Storage.S3.Region)
	case "gcs":
		return fmt.Sprintf("https://storage.googleapis.com/%s", cfg.Storage.BucketOrPath)
	default:
		host := cfg.HTTP.Addr
		if strings.HasPrefix(host, ":") {
			host = "localhost" + host
		}
		return fmt.Sprintf("http://%s/uploads", host)
	}
}

// DefaultConfig returns a configuration suited to tests and local tooling:
// sqlite in memory, filesystem blobs, stdout observability.
func DefaultConfig() *Config {
	cfg := &Config{
		Environment: "test",
		ServiceName: "progress-ledger",
		LogLevel:    "info",
		Version:     "dev",
		Adapters: AdapterConfig{
			Storage:  "filesystem",
			Database: "sqlite",
			Logger:   "stdout",
			Metrics:  "stdout",
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Auth: AuthConfig{JWTSecret: "test-secret"},
		Storage: StorageConfig{
			BucketOrPath: "public/uploads",
			MaxRetries:   3,
			Timeout:      30 * time.Second,
		},
		Database: DatabaseConfig{
			Path:         ":memory:",
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
		Ledger: LedgerConfig{
			MaxMediaBytes:    25 * 1024 * 1024,
			MaxMediaItems:    10,
			OperationTimeout: 60 * time.Second,
		},
	}
	applyDefaults(cfg)
	return cfg
}
