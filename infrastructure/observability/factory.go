package observability

import (
	"fmt"

	"ledger/application/ports"
	"ledger/infrastructure/config"
	"ledger/infrastructure/observability/adapters/cloudwatch"
	"ledger/infrastructure/observability/adapters/prometheus"
	"ledger/infrastructure/observability/adapters/stdout"
)

func createComponents(cfg *config.Config) (ports.Logger, ports.Metrics, error) {
	logger, err := createLogger(cfg)
	if err != nil {
		return nil, nil, err
	}

	metrics, err := createMetrics(cfg)
	if err != nil {
		return nil, nil, err
	}

	return logger, metrics, nil
}

func createLogger(cfg *config.Config) (ports.Logger, error) {
	switch cfg.Adapters.Logger {
	case "stdout":
		stdout.UseJSON(cfg.Observability.JSONLogs)
		return stdout.NewLogger(), nil
	case "cloudwatch":
		logger, err := cloudwatch.NewLogger(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create CloudWatch logger: %w", err)
		}
		return logger, nil
	default:
		return nil, fmt.Errorf("unsupported logger adapter: %s", cfg.Adapters.Logger)
	}
}

func createMetrics(cfg *config.Config) (ports.Metrics, error) {
	switch cfg.Adapters.Metrics {
	case "stdout":
		return stdout.NewMetrics(), nil
	case "prometheus":
		return prometheus.NewMetrics(cfg.Observability.PrometheusNamespace, nil), nil
	case "cloudwatch":
		metrics, err := cloudwatch.NewMetrics(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create CloudWatch metrics: %w", err)
		}
		return metrics, nil
	default:
		return nil, fmt.Errorf("unsupported metrics adapter: %s", cfg.Adapters.Metrics)
	}
}
