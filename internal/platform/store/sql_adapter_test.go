package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"aggbridge/internal/platform/store/pg"
)

// fakeSurface implements the pgxSurface seam with canned behavior
type fakeSurface struct {
	execFn     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	queryFn    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
}

func (f *fakeSurface) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if f.execFn != nil {
		return f.execFn(ctx, sql, args...)
	}
	return pgconn.NewCommandTag("OK"), nil
}

func (f *fakeSurface) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if f.queryFn != nil {
		return f.queryFn(ctx, sql, args...)
	}
	return newFakePgxRows([]string{"n"}, [][]any{{1}}), nil
}

func (f *fakeSurface) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if f.queryRowFn != nil {
		return f.queryRowFn(ctx, sql, args...)
	}
	return &fakePgxRow{}
}

// fakePgxRow implements pgx.Row
type fakePgxRow struct {
	scan func(dest ...any) error
}

func (r *fakePgxRow) Scan(dest ...any) error {
	if r.scan != nil {
		return r.scan(dest...)
	}
	return nil
}

// fakePgxRows implements pgx.Rows
type fakePgxRows struct {
	fields []pgconn.FieldDescription
	data   [][]any
	idx    int
	err    error
	closed bool
}

func newFakePgxRows(cols []string, data [][]any) *fakePgxRows {
	fds := make([]pgconn.FieldDescription, len(cols))
	for i, c := range cols {
		fds[i] = pgconn.FieldDescription{Name: c}
	}
	return &fakePgxRows{fields: fds, data: data, idx: -1}
}

func (r *fakePgxRows) Conn() *pgx.Conn                              { return nil }
func (r *fakePgxRows) Close()                                       { r.closed = true }
func (r *fakePgxRows) Err() error                                   { return r.err }
func (r *fakePgxRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakePgxRows) FieldDescriptions() []pgconn.FieldDescription { return r.fields }
func (r *fakePgxRows) RawValues() [][]byte                          { return nil }

func (r *fakePgxRows) Next() bool {
	if r.err != nil {
		return false
	}
	r.idx++
	return r.idx < len(r.data)
}

func (r *fakePgxRows) Values() ([]any, error) {
	if r.idx < 0 || r.idx >= len(r.data) {
		return nil, errors.New("out of range")
	}
	return r.data[r.idx], nil
}

func (r *fakePgxRows) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if r.idx < 0 || r.idx >= len(r.data) {
		return errors.New("scan out of range")
	}
	row := r.data[r.idx]
	if len(row) != len(dest) {
		return errors.New("dest len mismatch")
	}
	for i := range dest {
		dv := reflect.ValueOf(dest[i])
		if dv.Kind() != reflect.Pointer || !dv.Elem().CanSet() {
			return errors.New("dest not pointer")
		}
		val := reflect.ValueOf(row[i])
		switch {
		case val.IsValid() && val.Type().AssignableTo(dv.Elem().Type()):
			dv.Elem().Set(val)
		case val.IsValid() && val.Type().ConvertibleTo(dv.Elem().Type()):
			dv.Elem().Set(val.Convert(dv.Elem().Type()))
		default:
			return errors.New("type mismatch")
		}
	}
	return nil
}

// recordingTracer captures every query event for assertions
type recordingTracer struct {
	events []pg.QueryEvent
}

func (r *recordingTracer) OnQuery(_ context.Context, ev pg.QueryEvent) {
	r.events = append(r.events, ev)
}

func TestPGTag(t *testing.T) {
	t.Parallel()

	ct := pgTag{t: pgconn.NewCommandTag("INSERT 0 1")}
	if ct.String() != "INSERT 0 1" {
		t.Fatalf("tag string: %q", ct.String())
	}
}

func TestPGRunner_ExecQueryQueryRow(t *testing.T) {
	t.Parallel()

	surface := &fakeSurface{
		execFn: func(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			if sql != "UPDATE jira_issues SET labels = $1 WHERE issue_key = $2" {
				return pgconn.NewCommandTag(""), errors.New("unexpected sql")
			}
			if len(args) != 2 || args[1] != "PROJ-1" {
				return pgconn.NewCommandTag(""), errors.New("unexpected args")
			}
			return pgconn.NewCommandTag("UPDATE 1"), nil
		},
		queryFn: func(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
			return newFakePgxRows([]string{"sprint_id", "added_at"}, [][]any{{"11", int64(500)}}), nil
		},
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
			return &fakePgxRow{scan: func(dest ...any) error {
				if p, ok := dest[0].(*int); ok {
					*p = 2
				}
				return nil
			}}
		},
	}
	r := pgRunner{db: surface}

	ct, err := r.Exec(context.Background(), "UPDATE jira_issues SET labels = $1 WHERE issue_key = $2", nil, "PROJ-1")
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if ct.RowsAffected() != 1 {
		t.Fatalf("rows affected: %d", ct.RowsAffected())
	}

	rs, err := r.Query(context.Background(), "SELECT sprint_id, added_at FROM issue_sprint_mappings")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rs.Close()
	if cols := rs.Columns(); len(cols) != 2 || cols[0] != "sprint_id" {
		t.Fatalf("columns: %v", cols)
	}
	if !rs.Next() {
		t.Fatal("expected a row")
	}
	var id string
	var added int64
	if err := rs.Scan(&id, &added); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if id != "11" || added != 500 {
		t.Fatalf("row: %q %d", id, added)
	}

	var n int
	if err := r.QueryRow(context.Background(), "SELECT count(*) FROM jira_issues").Scan(&n); err != nil {
		t.Fatalf("query row: %v", err)
	}
	if n != 2 {
		t.Fatalf("scalar: %d", n)
	}
}

func TestPGRunner_PropagatesErrors(t *testing.T) {
	t.Parallel()

	r := pgRunner{db: &fakeSurface{
		execFn: func(context.Context, string, ...any) (pgconn.CommandTag, error) {
			return pgconn.NewCommandTag(""), errors.New("exec failed")
		},
		queryFn: func(context.Context, string, ...any) (pgx.Rows, error) {
			return nil, errors.New("query failed")
		},
		queryRowFn: func(context.Context, string, ...any) pgx.Row {
			return &fakePgxRow{scan: func(...any) error { return errors.New("scan failed") }}
		},
	}}

	if _, err := r.Exec(context.Background(), "x"); err == nil {
		t.Fatal("expected exec error")
	}
	if _, err := r.Query(context.Background(), "x"); err == nil {
		t.Fatal("expected query error")
	}
	var n int
	if err := r.QueryRow(context.Background(), "x").Scan(&n); err == nil {
		t.Fatal("expected scan error")
	}
}

func TestPGRunner_TracesEveryStatement(t *testing.T) {
	t.Parallel()

	tr := &recordingTracer{}
	r := pgRunner{db: &fakeSurface{}, tracer: tr, slowMs: 0}

	if _, err := r.Exec(context.Background(), "DELETE FROM issue_links WHERE from_key = $1", "PROJ-1"); err != nil {
		t.Fatalf("exec: %v", err)
	}

	// query row traces only after Scan so timing covers the round trip
	row := r.QueryRow(context.Background(), "SELECT 1")
	if len(tr.events) != 1 {
		t.Fatalf("premature trace: %d events", len(tr.events))
	}
	var n int
	_ = row.Scan(&n)

	if len(tr.events) != 2 {
		t.Fatalf("events: %d", len(tr.events))
	}
	if tr.events[0].SQL != "DELETE FROM issue_links WHERE from_key = $1" {
		t.Fatalf("sql: %q", tr.events[0].SQL)
	}
	// slowMs 0 marks everything slow
	if !tr.events[0].Slow {
		t.Fatal("expected slow mark with zero threshold")
	}
}
