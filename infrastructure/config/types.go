package config

import (
	"time"
)

// Config holds all application configuration
type Config struct {
	Environment string
	ServiceName string
	LogLevel    string
	Version     string

	Adapters AdapterConfig

	HTTP          HTTPConfig
	Auth          AuthConfig
	Storage       StorageConfig
	Database      DatabaseConfig
	Ledger        LedgerConfig
	Observability ObservabilityConfig
	Queue         QueueConfig
}

// AdapterConfig specifies which implementations to use
type AdapterConfig struct {
	Storage  string // "filesystem", "s3", "gcs"
	Database string // "postgres", "sqlite"
	Logger   string // "stdout", "cloudwatch"
	Metrics  string // "stdout", "prometheus", "cloudwatch"
	Queue    string // "", "rabbitmq", "sqs"
}

// HTTPConfig holds the API server configuration
type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	MaxRequestBytes int64
}

// AuthConfig holds bearer token verification settings
type AuthConfig struct {
	JWTSecret string
}

type StorageConfig struct {
	// Bucket name for cloud stores, base directory for the filesystem store
	BucketOrPath string
	// PublicBaseURL prefixes object keys to build the URL of a locator
	PublicBaseURL string
	MaxRetries    int
	Timeout       time.Duration

	S3  S3Config
	GCS GCSConfig
}

// S3Config holds S3-specific configuration
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // For MinIO or S3-compatible services
}

// GCSConfig holds Google Cloud Storage configuration
type GCSConfig struct {
	CredentialsFile string
	ProjectID       string
}

// DatabaseConfig holds ledger store configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	Database     string
	Username     string
	Password     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int

	// Path is the sqlite database file; ":memory:" for an in-memory store
	Path        string
	AutoMigrate bool
}

// LedgerConfig bounds ledger operations
type LedgerConfig struct {
	MaxMediaBytes    int64
	MaxMediaItems    int
	OperationTimeout time.Duration
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	JSONLogs            bool
	PrometheusNamespace string
	CloudWatchRegion    string
	CloudWatchLogGroup  string
	CloudWatchNamespace string
}

// QueueConfig holds event publishing configuration
type QueueConfig struct {
	EventsTarget string

	RabbitMQ RabbitMQConfig
	SQS      SQSConfig
}

type RabbitMQConfig struct {
	URL     string
	Timeout time.Duration
}

type SQSConfig struct {
	Region string
}
