package database

import (
	"context"
	"errors"
	"io"
	"testing"

	"ledger/application/ports"
	"ledger/infrastructure/config"
	"ledger/infrastructure/observability/adapters/stdout"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) (*DB, *stdout.Metrics) {
	t.Helper()
	metrics := stdout.NewMetricsTo(io.Discard)
	db, err := NewSQLite(&config.DatabaseConfig{Path: ":memory:"}, stdout.NewLoggerTo(io.Discard), metrics)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, metrics
}

func TestMigrate(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()
	logger := stdout.NewLoggerTo(io.Discard)

	applied, err := Migrate(ctx, db, logger)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_init"}, applied)

	applied, err = Migrate(ctx, db, logger)
	require.NoError(t, err)
	assert.Empty(t, applied, "second run applies nothing")

	for _, table := range []string{"users", "reports", "progress", "progress_media"} {
		var count int
		require.NoError(t, db.Get(ctx, &count, "SELECT COUNT(*) FROM "+table))
		assert.Zero(t, count, table)
	}
}

func TestTransaction_CommitAndRollback(t *testing.T) {
	db, metrics := openTestDB(t)
	ctx := context.Background()
	_, err := db.Execute(ctx, "CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)")
	require.NoError(t, err)

	err = db.Transaction(ctx, func(tx ports.Transaction) error {
		_, err := tx.Execute(ctx, "INSERT INTO kv (k, v) VALUES ($1, $2)", "a", "1")
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = db.Transaction(ctx, func(tx ports.Transaction) error {
		if _, err := tx.Execute(ctx, "INSERT INTO kv (k, v) VALUES ($1, $2)", "b", "2"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var keys []string
	require.NoError(t, db.Select(ctx, &keys, "SELECT k FROM kv ORDER BY k"))
	assert.Equal(t, []string{"a"}, keys)

	tags := map[string]string{"dialect": DialectSQLite}
	assert.Equal(t, int64(1), metrics.GetCounter("database.transaction.success", tags))
	assert.Equal(t, int64(1), metrics.GetCounter("database.transaction.errors", tags))
}

func TestTransaction_PanicRollsBack(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()
	_, err := db.Execute(ctx, "CREATE TABLE kv (k TEXT PRIMARY KEY)")
	require.NoError(t, err)

	assert.Panics(t, func() {
		_ = db.Transaction(ctx, func(tx ports.Transaction) error {
			_, _ = tx.Execute(ctx, "INSERT INTO kv (k) VALUES ($1)", "a")
			panic("kaboom")
		})
	})

	var count int
	require.NoError(t, db.Get(ctx, &count, "SELECT COUNT(*) FROM kv"))
	assert.Zero(t, count)
}

func TestInMemoryDatabasesAreIsolated(t *testing.T) {
	a, _ := openTestDB(t)
	b, _ := openTestDB(t)
	ctx := context.Background()

	_, err := a.Execute(ctx, "CREATE TABLE only_in_a (x INTEGER)")
	require.NoError(t, err)

	_, err = b.Execute(ctx, "SELECT * FROM only_in_a")
	assert.Error(t, err)
}

func TestFactory_Unsupported(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Adapters.Database = "mysql"

	_, err := NewFactory(stdout.NewLoggerTo(io.Discard), stdout.NewMetricsTo(io.Discard)).Create(cfg)
	assert.EqualError(t, err, "unsupported database adapter: mysql")
}

func TestStatements(t *testing.T) {
	got := statements("CREATE TABLE a (x INT);\n\n  CREATE INDEX i ON a (x);\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE INDEX i ON a (x)"}, got)
}
