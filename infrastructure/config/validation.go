package config

import (
	"fmt"
	"strings"
)

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var errors []string

	if c.ServiceName == "" {
		errors = append(errors, "SERVICE_NAME is required")
	}

	if err := c.Adapters.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	if err := c.HTTP.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	if c.Auth.JWTSecret == "" {
		errors = append(errors, "JWT_SECRET is required")
	} else if c.IsProduction() && len(c.Auth.JWTSecret) < 32 {
		errors = append(errors, "JWT_SECRET must be at least 32 characters in production")
	}

	if err := c.Storage.Validate(c.Adapters); err != nil {
		errors = append(errors, err.Error())
	}

	if err := c.Database.Validate(c.Adapters); err != nil {
		errors = append(errors, err.Error())
	}

	if err := c.Ledger.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	if c.Adapters.Queue == "rabbitmq" && c.Queue.RabbitMQ.URL == "" {
		errors = append(errors, "RABBITMQ_URL is required for rabbitmq queue adapter")
	}
	if c.Adapters.Queue == "sqs" && c.Queue.SQS.Region == "" {
		errors = append(errors, "SQS_REGION is required for sqs queue adapter")
	}

	if (c.Adapters.Logger == "cloudwatch" || c.Adapters.Metrics == "cloudwatch") && c.Observability.CloudWatchRegion == "" {
		errors = append(errors, "CLOUDWATCH_REGION is required for cloudwatch adapters")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// Validate validates adapter selection
func (a *AdapterConfig) Validate() error {
	validStorage := map[string]bool{"filesystem": true, "s3": true, "gcs": true}
	if !validStorage[a.Storage] {
		return fmt.Errorf("invalid storage adapter: %s (must be filesystem, s3 or gcs)", a.Storage)
	}

	validDatabase := map[string]bool{"postgres": true, "sqlite": true}
	if !validDatabase[a.Database] {
		return fmt.Errorf("invalid database adapter: %s (must be postgres or sqlite)", a.Database)
	}

	validLogger := map[string]bool{"stdout": true, "cloudwatch": true}
	if !validLogger[a.Logger] {
		return fmt.Errorf("invalid logger adapter: %s (must be stdout or cloudwatch)", a.Logger)
	}

	validMetrics := map[string]bool{"stdout": true, "prometheus": true, "cloudwatch": true}
	if !validMetrics[a.Metrics] {
		return fmt.Errorf("invalid metrics adapter: %s (must be stdout, prometheus or cloudwatch)", a.Metrics)
	}

	validQueue := map[string]bool{"": true, "rabbitmq": true, "sqs": true}
	if !validQueue[a.Queue] {
		return fmt.Errorf("invalid queue adapter: %s (must be empty, rabbitmq or sqs)", a.Queue)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Addr == "" {
		return fmt.Errorf("HTTP_ADDR is required")
	}
	if h.ReadTimeout <= 0 || h.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP_READ_TIMEOUT and HTTP_WRITE_TIMEOUT must be positive")
	}
	return nil
}

// Validate validates storage configuration against the selected adapter
func (s *StorageConfig) Validate(adapters AdapterConfig) error {
	if s.BucketOrPath == "" {
		return fmt.Errorf("STORAGE_BUCKET_OR_PATH is required")
	}
	if s.PublicBaseURL == "" {
		return fmt.Errorf("STORAGE_PUBLIC_BASE_URL is required")
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("STORAGE_MAX_RETRIES cannot be negative")
	}
	if adapters.Storage == "s3" {
		if s.S3.Region == "" {
			return fmt.Errorf("AWS_REGION is required for s3 storage")
		}
		if (s.S3.AccessKeyID == "") != (s.S3.SecretAccessKey == "") {
			return fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together")
		}
	}
	return nil
}

// Validate validates database configuration against the selected adapter
func (d *DatabaseConfig) Validate(adapters AdapterConfig) error {
	switch adapters.Database {
	case "postgres":
		if d.Host == "" || d.Database == "" || d.Username == "" {
			return fmt.Errorf("DB_HOST, DB_NAME and DB_USER are required for postgres")
		}
		if d.Port <= 0 || d.Port > 65535 {
			return fmt.Errorf("DB_PORT must be between 1 and 65535")
		}
	case "sqlite":
		if d.Path == "" {
			return fmt.Errorf("DB_PATH is required for sqlite")
		}
	}
	if d.MaxOpenConns < 0 || d.MaxIdleConns < 0 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS and DB_MAX_IDLE_CONNS cannot be negative")
	}
	return nil
}

// Validate validates ledger bounds
func (l *LedgerConfig) Validate() error {
	if l.MaxMediaBytes <= 0 {
		return fmt.Errorf("LEDGER_MAX_MEDIA_BYTES must be positive")
	}
	if l.MaxMediaItems <= 0 {
		return fmt.Errorf("LEDGER_MAX_MEDIA_ITEMS must be positive")
	}
	if l.OperationTimeout <= 0 {
		return fmt.Errorf("LEDGER_OPERATION_TIMEOUT must be positive")
	}
	return nil
}
