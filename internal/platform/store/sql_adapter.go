package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"aggbridge/internal/platform/store/pg"
)

// pgxSurface is the part of pgxpool.Pool and pgx.Tx the adapter needs
type pgxSurface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgRunner implements RowQuerier over any pgx surface and reports every
// query to the configured tracer, pooled and transactional alike
type pgRunner struct {
	db     pgxSurface
	tracer pg.QueryTracer
	slowMs int
}

func (r pgRunner) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	start := time.Now()
	ct, err := r.db.Exec(ctx, sql, args...)
	r.observe(ctx, sql, args, start, err)
	return pgTag{ct}, err
}

func (r pgRunner) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	start := time.Now()
	rs, err := r.db.Query(ctx, sql, args...)
	r.observe(ctx, sql, args, start, err)
	if err != nil {
		return nil, err
	}
	return pgRows{rs}, nil
}

func (r pgRunner) QueryRow(ctx context.Context, sql string, args ...any) Row {
	start := time.Now()
	// timing is reported once Scan completes so it covers the wire round trip
	return pgRow{
		row:  r.db.QueryRow(ctx, sql, args...),
		done: func(scanErr error) { r.observe(ctx, sql, args, start, scanErr) },
	}
}

func (r pgRunner) observe(ctx context.Context, sql string, args []any, start time.Time, err error) {
	if r.tracer == nil {
		return
	}
	elapsedUS := time.Since(start).Microseconds()
	r.tracer.OnQuery(ctx, pg.QueryEvent{
		SQL:       sql,
		Args:      args,
		ElapsedUS: elapsedUS,
		Err:       err,
		Slow:      r.slowMs >= 0 && elapsedUS >= int64(r.slowMs)*1000,
	})
}

// pgAdapter adds pool concerns (ping, close, transactions) on top of pgRunner
type pgAdapter struct {
	pgRunner
	p *pg.PG
}

func newPGAdapter(p *pg.PG) *pgAdapter {
	return &pgAdapter{
		pgRunner: pgRunner{db: p.Pool, tracer: p.Tracer, slowMs: p.SlowMs},
		p:        p,
	}
}

func (a *pgAdapter) Ping(ctx context.Context) error {
	if a == nil {
		return errors.New("pg: nil adapter")
	}
	var one int
	return a.QueryRow(ctx, "SELECT 1").Scan(&one)
}

func (a *pgAdapter) Close() error { a.p.Close(); return nil }

// Tx runs fn inside a transaction; statements inside trace identically
func (a *pgAdapter) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	tx, err := a.p.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	q := pgRunner{db: tx, tracer: a.tracer, slowMs: a.slowMs}
	if err := fn(q); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// thin wrappers from pgx types to the store contracts

type pgRow struct {
	row  pgx.Row
	done func(error)
}

func (r pgRow) Scan(dst ...any) error {
	err := r.row.Scan(dst...)
	if r.done != nil {
		r.done(err)
	}
	return err
}

type pgRows struct{ r pgx.Rows }

func (r pgRows) Next() bool            { return r.r.Next() }
func (r pgRows) Scan(dst ...any) error { return r.r.Scan(dst...) }
func (r pgRows) Err() error            { return r.r.Err() }
func (r pgRows) Close()                { r.r.Close() }
func (r pgRows) Columns() []string {
	fields := r.r.FieldDescriptions()
	out := make([]string, len(fields))
	for i := range fields {
		out[i] = string(fields[i].Name)
	}
	return out
}

type pgTag struct{ t pgconn.CommandTag }

func (t pgTag) String() string      { return t.t.String() }
func (t pgTag) RowsAffected() int64 { return t.t.RowsAffected() }
