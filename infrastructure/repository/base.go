package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"ledger/application/ports"
)

// inChunk bounds the size of generated IN lists
const inChunk = 500

type sqlizer interface {
	ToSql() (string, []interface{}, error)
}

type baseRepository[T any] struct {
	db      ports.Executor
	logger  ports.Logger
	metrics ports.Metrics
	table   string
	qb      squirrel.StatementBuilderType
}

func newBaseRepository[T any](db ports.Executor, logger ports.Logger, metrics ports.Metrics, table string) *baseRepository[T] {
	return &baseRepository[T]{
		db:      db,
		logger:  logger,
		metrics: metrics,
		table:   table,
		qb:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// getByID loads one row of the table; ports.ErrNotFound when missing
func (r *baseRepository[T]) getByID(ctx context.Context, id string) (*T, error) {
	var entity T
	if err := r.get(ctx, &entity, r.qb.Select("*").From(r.table).Where(squirrel.Eq{"id": id})); err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *baseRepository[T]) exists(ctx context.Context, where squirrel.Sqlizer) (bool, error) {
	var count int
	if err := r.get(ctx, &count, r.qb.Select("COUNT(*)").From(r.table).Where(where)); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *baseRepository[T]) listAll(ctx context.Context, orderBy ...string) ([]*T, error) {
	var rows []T
	if err := r.selectInto(ctx, &rows, r.qb.Select("*").From(r.table).OrderBy(orderBy...)); err != nil {
		return nil, err
	}
	return pointers(rows), nil
}

// deleteByID removes one row; ports.ErrNotFound when nothing matched
func (r *baseRepository[T]) deleteByID(ctx context.Context, id string) error {
	affected, err := r.exec(ctx, r.qb.Delete(r.table).Where(squirrel.Eq{"id": id}))
	if err != nil {
		return err
	}
	if affected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *baseRepository[T]) get(ctx context.Context, dest interface{}, q sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	err = r.db.Get(ctx, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.ErrNotFound
	}
	if err != nil {
		r.metrics.IncrementCounter("repository.errors", map[string]string{"table": r.table})
		return fmt.Errorf("query %s: %w", r.table, err)
	}
	return nil
}

func (r *baseRepository[T]) selectInto(ctx context.Context, dest interface{}, q sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if err := r.db.Select(ctx, dest, query, args...); err != nil {
		r.metrics.IncrementCounter("repository.errors", map[string]string{"table": r.table})
		return fmt.Errorf("select %s: %w", r.table, err)
	}
	return nil
}

// exec runs a statement and returns the number of affected rows
func (r *baseRepository[T]) exec(ctx context.Context, q sqlizer) (int64, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	result, err := r.db.Execute(ctx, query, args...)
	if err != nil {
		r.metrics.IncrementCounter("repository.errors", map[string]string{"table": r.table})
		return 0, fmt.Errorf("exec %s: %w", r.table, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

func pointers[T any](rows []T) []*T {
	result := make([]*T, len(rows))
	for i := range rows {
		result[i] = &rows[i]
	}
	return result
}

func chunks(ids []string) [][]string {
	var out [][]string
	for len(ids) > inChunk {
		out = append(out, ids[:inChunk])
		ids = ids[inChunk:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
