package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"ledger/application/ports"
	"ledger/infrastructure/config"
)

// NewSQLite opens a sqlite database file, or a private in-memory database
// when cfg.Path is ":memory:". Transactions start IMMEDIATE so writers
// serialize on the database lock.
func NewSQLite(cfg *config.DatabaseConfig, logger ports.Logger, metrics ports.Metrics) (*DB, error) {
	dsn := sqliteDSN(cfg.Path)
	logger.Info("Opening SQLite database", "path", cfg.Path)

	conn, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if cfg.Path == ":memory:" || maxOpen <= 0 {
		maxOpen = 1
	}
	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(maxOpen)
	conn.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	metrics.IncrementCounter("database.connection.success", map[string]string{"dialect": DialectSQLite})
	return newDB(conn, DialectSQLite, logger, metrics), nil
}

func sqliteDSN(path string) string {
	const params = "_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"
	if path == ":memory:" {
		return fmt.Sprintf("file:mem-%s?mode=memory&cache=shared&%s", uuid.NewString(), params)
	}
	return fmt.Sprintf("file:%s?%s", path, params)
}
