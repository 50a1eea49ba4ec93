//go:build integration_pg
// +build integration_pg

package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"aggbridge/internal/platform/logger"
)

// startPostgres launches a disposable Postgres and returns DSN + stop func
func startPostgres(t *testing.T) (dsn string, stop func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "postgres",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections"),
		).WithDeadline(2 * time.Minute),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		cancel()
		t.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get container host: %v", err)
	}
	mp, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get mapped port: %v", err)
	}

	dsn = fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, mp.Port())
	stop = func() {
		_ = c.Terminate(context.Background())
		cancel()
	}
	return dsn, stop
}

func quietLogger() logger.Logger { return zerolog.New(io.Discard) }

func openAdapter(ctx context.Context, t *testing.T, dsn string) *pgAdapter {
	t.Helper()

	s := &Store{Log: quietLogger()}
	cfg := Config{PG: PGConfig{URL: dsn, MaxConns: 2, LogSQL: true}}
	txr, err := openPG(ctx, cfg, s)
	if err != nil {
		t.Fatalf("openPG failed: %v", err)
	}
	a, ok := txr.(*pgAdapter)
	if !ok {
		t.Fatalf("openPG returned %T", txr)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestPGAdapter_Integration_RoundTrip(t *testing.T) {
	dsn, stop := startPostgres(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	a := openAdapter(ctx, t, dsn)

	if _, err := a.Exec(ctx, `
		CREATE TEMP TABLE commits_rt (
			sha    TEXT PRIMARY KEY,
			branch TEXT NOT NULL
		)
	`); err != nil {
		t.Fatalf("create temp table: %v", err)
	}
	if _, err := a.Exec(ctx, `INSERT INTO commits_rt (sha, branch) VALUES ($1, $2), ($3, $4)`,
		"abc", "main", "def", "release"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var branch string
	if err := a.QueryRow(ctx, `SELECT branch FROM commits_rt WHERE sha = $1`, "abc").Scan(&branch); err != nil {
		t.Fatalf("queryrow: %v", err)
	}
	if branch != "main" {
		t.Fatalf("branch: %q", branch)
	}

	rs, err := a.Query(ctx, `SELECT sha, branch FROM commits_rt ORDER BY sha`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rs.Close()

	if cols := rs.Columns(); len(cols) != 2 || cols[0] != "sha" {
		t.Fatalf("columns: %#v", cols)
	}
	var shas []string
	for rs.Next() {
		var sha, b string
		if err := rs.Scan(&sha, &b); err != nil {
			t.Fatalf("scan: %v", err)
		}
		shas = append(shas, sha)
	}
	if err := rs.Err(); err != nil {
		t.Fatalf("rows err: %v", err)
	}
	if len(shas) != 2 || shas[0] != "abc" || shas[1] != "def" {
		t.Fatalf("shas: %v", shas)
	}

	// closing twice stays safe
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestPGAdapter_Integration_TxSemantics(t *testing.T) {
	dsn, stop := startPostgres(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	a := openAdapter(ctx, t, dsn)

	if _, err := a.Exec(ctx, `
		CREATE TEMP TABLE mappings_tx (
			issue_key TEXT NOT NULL,
			sprint_id TEXT NOT NULL
		)
	`); err != nil {
		t.Fatalf("create temp table: %v", err)
	}

	if err := a.Tx(ctx, func(q RowQuerier) error {
		_, err := q.Exec(ctx, `INSERT INTO mappings_tx VALUES ('PROJ-1', '11')`)
		return err
	}); err != nil {
		t.Fatalf("tx commit: %v", err)
	}

	n, err := Scalar[int](ctx, a, `SELECT count(*) FROM mappings_tx`)
	if err != nil || n != 1 {
		t.Fatalf("after commit: %d, %v", n, err)
	}

	abort := errors.New("abort")
	_ = a.Tx(ctx, func(q RowQuerier) error {
		if _, err := q.Exec(ctx, `INSERT INTO mappings_tx VALUES ('PROJ-2', '12')`); err != nil {
			return err
		}
		return abort
	})

	n, err = Scalar[int](ctx, a, `SELECT count(*) FROM mappings_tx`)
	if err != nil || n != 1 {
		t.Fatalf("after rollback: %d, %v", n, err)
	}
}

func TestRunInTenant_Integration(t *testing.T) {
	dsn, stop := startPostgres(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	a := openAdapter(ctx, t, dsn)

	if _, err := a.Exec(ctx, `CREATE TEMP TABLE tenant_rows (tenant_id TEXT NOT NULL)`); err != nil {
		t.Fatalf("create temp table: %v", err)
	}

	err := RunInTenant(ctx, a, "acme", func(ctx context.Context, q RowQuerier) error {
		id, ok := TenantID(ctx)
		if !ok || id != "acme" {
			return fmt.Errorf("tenant not in ctx: %q %v", id, ok)
		}
		_, err := q.Exec(ctx, `INSERT INTO tenant_rows VALUES ($1)`, id)
		return err
	})
	if err != nil {
		t.Fatalf("run in tenant: %v", err)
	}

	got, err := Scalar[string](ctx, a, `SELECT tenant_id FROM tenant_rows`)
	if err != nil || got != "acme" {
		t.Fatalf("row: %q, %v", got, err)
	}
}
