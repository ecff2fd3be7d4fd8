package ports

import (
	"context"
	"database/sql"
)

// Executor is the query surface shared by a connection and a transaction.
type Executor interface {
	// Execute runs a query that doesn't return rows
	Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error)

	// Query runs a query that returns rows
	Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)

	// QueryRow runs a query that returns at most one row
	QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row

	// Select scans every returned row into dest, a pointer to a slice
	Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error

	// Get scans a single row into dest
	Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Transaction is an Executor bound to an open transaction.
// Commit and rollback are owned by Database.Transaction.
type Transaction interface {
	Executor
}

// Database is a pooled connection to the ledger store.
type Database interface {
	Executor

	// Transaction runs fn inside a transaction. The transaction is rolled back
	// when fn returns an error or panics and committed otherwise.
	Transaction(ctx context.Context, fn func(tx Transaction) error) error

	// Dialect returns the driver family: "postgres" or "sqlite"
	Dialect() string

	// Ping verifies the connection
	Ping(ctx context.Context) error

	// Close closes the database connection
	Close() error
}
