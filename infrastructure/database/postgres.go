package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"ledger/application/ports"
	"ledger/infrastructure/config"
)

// NewPostgres connects to PostgreSQL and verifies the connection
func NewPostgres(cfg *config.DatabaseConfig, logger ports.Logger, metrics ports.Metrics) (*DB, error) {
	logger.Info("Connecting to PostgreSQL database",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Database)

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	conn, err := sqlx.Open("postgres", dsn)
	if err != nil {
		logger.Error("Failed to open database connection", "error", err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		logger.Error("Failed to ping database", "error", err)
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to PostgreSQL database")
	metrics.IncrementCounter("database.connection.success", map[string]string{"dialect": DialectPostgres})

	return newDB(conn, DialectPostgres, logger, metrics), nil
}
