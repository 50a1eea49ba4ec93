package store

import (
	"context"
	"fmt"

	perr "aggbridge/internal/platform/errors"
)

// Scalar queries the first row, first column into T
func Scalar[T any](ctx context.Context, q RowQuerier, sql string, args ...any) (T, error) {
	var v T
	if err := q.QueryRow(ctx, sql, args...).Scan(&v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// One maps a single row into T via scan. Zero rows is perr.ErrNotFound;
// more than one row is an error
func One[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), sql string, args ...any) (T, error) {
	var zero T
	items, err := collect(ctx, q, scan, sql, args, 2)
	if err != nil {
		return zero, err
	}
	switch len(items) {
	case 0:
		return zero, perr.ErrNotFound
	case 1:
		return items[0], nil
	default:
		return zero, fmt.Errorf("expected 1 row, got more")
	}
}

// Many maps every row into []T via scan
func Many[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), sql string, args ...any) ([]T, error) {
	return collect(ctx, q, scan, sql, args, 0)
}

// collect drains up to max scanned rows (max <= 0 means all)
func collect[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), sql string, args []any, max int) ([]T, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cur := &rowFromRows{rows: rows}
	var out []T
	for rows.Next() {
		item, err := scan(cur)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out, rows.Err()
}

// rowFromRows adapts the current Rows position to the Row contract
type rowFromRows struct{ rows Rows }

func (r *rowFromRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
