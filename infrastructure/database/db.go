package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"ledger/application/ports"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// DB implements ports.Database over a sqlx connection pool
type DB struct {
	conn    *sqlx.DB
	dialect string
	logger  ports.Logger
	metrics ports.Metrics
}

func newDB(conn *sqlx.DB, dialect string, logger ports.Logger, metrics ports.Metrics) *DB {
	return &DB{
		conn:    conn,
		dialect: dialect,
		logger:  logger,
		metrics: metrics.WithTags(map[string]string{"dialect": dialect}),
	}
}

func (d *DB) Dialect() string {
	return d.dialect
}

func (d *DB) Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := d.conn.ExecContext(ctx, query, args...)
	d.recordMetrics("execute", time.Since(start), err)
	if err != nil {
		d.logger.Error("Failed to execute query", "error", err)
		return nil, err
	}
	return result, nil
}

func (d *DB) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := d.conn.QueryContext(ctx, query, args...)
	d.recordMetrics("query", time.Since(start), err)
	if err != nil {
		d.logger.Error("Failed to query", "error", err)
		return nil, err
	}
	return rows, nil
}

func (d *DB) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	start := time.Now()
	row := d.conn.QueryRowContext(ctx, query, args...)
	d.metrics.RecordHistogram("database.query_row.duration_ms", float64(time.Since(start).Milliseconds()), nil)
	return row
}

func (d *DB) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	start := time.Now()
	err := d.conn.GetContext(ctx, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		d.recordMetrics("get", time.Since(start), nil)
		return err
	}
	d.recordMetrics("get", time.Since(start), err)
	if err != nil {
		d.logger.Error("Failed to get row", "error", err, "query", query)
	}
	return err
}

func (d *DB) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	start := time.Now()
	err := d.conn.SelectContext(ctx, dest, query, args...)
	d.recordMetrics("select", time.Since(start), err)
	if err != nil {
		d.logger.Error("Failed to select rows", "error", err, "query", query)
	}
	return err
}

// Transaction runs fn in a transaction, rolling back on error or panic.
// fn must use tx only: the sqlite pool holds a single connection.
func (d *DB) Transaction(ctx context.Context, fn func(tx ports.Transaction) error) (err error) {
	start := time.Now()
	defer func() { d.recordMetrics("transaction", time.Since(start), err) }()

	tx, err := d.conn.BeginTxx(ctx, nil)
	if err != nil {
		d.logger.Error("Failed to begin transaction", "error", err)
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(&txExecutor{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			d.logger.Error("Failed to rollback", "error", rbErr)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		d.logger.Error("Failed to commit", "error", err)
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (d *DB) Ping(ctx context.Context) error {
	return d.conn.PingContext(ctx)
}

func (d *DB) Close() error {
	d.logger.Info("Closing database connection", "dialect", d.dialect)
	return d.conn.Close()
}

func (d *DB) recordMetrics(operation string, duration time.Duration, err error) {
	d.metrics.RecordHistogram(fmt.Sprintf("database.%s.duration_ms", operation), float64(duration.Milliseconds()), nil)
	if err != nil {
		d.metrics.IncrementCounter(fmt.Sprintf("database.%s.errors", operation), nil)
	} else {
		d.metrics.IncrementCounter(fmt.Sprintf("database.%s.success", operation), nil)
	}
}

type txExecutor struct {
	tx *sqlx.Tx
}

func (t *txExecutor) Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *txExecutor) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

func (t *txExecutor) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

func (t *txExecutor) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return t.tx.SelectContext(ctx, dest, query, args...)
}

func (t *txExecutor) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return t.tx.GetContext(ctx, dest, query, args...)
}
