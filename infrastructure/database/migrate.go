package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"

	"ledger/application/ports"
)

//go:embed schema/*.sql
var schemaFS embed.FS

const migrationsTable = "schema_migrations"

// Migrate applies every embedded schema file not yet recorded in
// schema_migrations, in file name order, each in its own transaction.
// It returns the versions applied by this call.
func Migrate(ctx context.Context, db ports.Database, logger ports.Logger) ([]string, error) {
	_, err := db.Execute(ctx, `CREATE TABLE IF NOT EXISTS `+migrationsTable+` (
    version     TEXT PRIMARY KEY,
    applied_at  TIMESTAMP NOT NULL
)`)
	if err != nil {
		return nil, fmt.Errorf("create migrations table: %w", err)
	}

	files, err := fs.Glob(schemaFS, "schema/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	qb := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	var applied []string
	for _, file := range files {
		version := strings.TrimSuffix(strings.TrimPrefix(file, "schema/"), ".sql")

		query, args, err := qb.Select("COUNT(*)").From(migrationsTable).Where(squirrel.Eq{"version": version}).ToSql()
		if err != nil {
			return applied, fmt.Errorf("build query: %w", err)
		}
		var count int
		if err := db.Get(ctx, &count, query, args...); err != nil {
			return applied, fmt.Errorf("check migration %s: %w", version, err)
		}
		if count > 0 {
			continue
		}

		body, err := schemaFS.ReadFile(file)
		if err != nil {
			return applied, fmt.Errorf("read migration %s: %w", version, err)
		}

		err = db.Transaction(ctx, func(tx ports.Transaction) error {
			for _, stmt := range statements(string(body)) {
				if _, err := tx.Execute(ctx, stmt); err != nil {
					return fmt.Errorf("%w\n%s", err, stmt)
				}
			}
			insert, args, err := qb.Insert(migrationsTable).
				Columns("version", "applied_at").
				Values(version, time.Now().UTC()).
				ToSql()
			if err != nil {
				return err
			}
			_, err = tx.Execute(ctx, insert, args...)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", version, err)
		}

		logger.Info("Applied migration", "version", version)
		applied = append(applied, version)
	}

	return applied, nil
}

// statements splits a schema file on semicolons; schema files hold no
// procedural bodies or quoted semicolons.
func statements(body string) []string {
	var out []string
	for _, stmt := range strings.Split(body, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
