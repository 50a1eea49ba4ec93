//go:build integration_pg
// +build integration_pg

package pg

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) (dsn string, stop func()) {
	t.Helper()

	// generous deadline for a cold image pull
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
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
		},
		Started: true,
	})
	if err != nil {
		cancel()
		t.Fatalf("start postgres: %v", err)
	}
	stop = func() {
		_ = c.Terminate(context.Background())
		cancel()
	}

	host, err := c.Host(ctx)
	if err != nil {
		stop()
		t.Fatalf("container host: %v", err)
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		stop()
		t.Fatalf("mapped port: %v", err)
	}
	return fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, port.Port()), stop
}

func TestOpen_Integration(t *testing.T) {
	dsn, stop := startPostgres(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	const appName = "aggbridge-ingest"

	WithTestDB(t, dsn, func(pc *pgxpool.Config) {
		if pc.ConnConfig.RuntimeParams == nil {
			pc.ConnConfig.RuntimeParams = map[string]string{}
		}
		pc.ConnConfig.RuntimeParams["application_name"] = appName
		pc.MinConns = 1
	}, func(p *PG) {
		// single session so the TEMP table stays visible
		conn := AcquireConn(t, p, ctx)

		var app string
		if err := conn.QueryRow(ctx, `select current_setting('application_name')`).Scan(&app); err != nil {
			t.Fatalf("read application_name: %v", err)
		}
		if app != appName {
			t.Fatalf("application_name = %q", app)
		}

		if _, err := conn.Exec(ctx, `
			create temporary table sprints_it (
				sprint_id text primary key,
				state     text not null
			)
		`); err != nil {
			t.Fatalf("create temp table: %v", err)
		}

		batch := &pgx.Batch{}
		batch.Queue(`insert into sprints_it values ($1, $2)`, "11", "closed")
		batch.Queue(`insert into sprints_it values ($1, $2)`, "12", "active")
		br := conn.SendBatch(ctx, batch)
		for range 2 {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				t.Fatalf("batch insert: %v", err)
			}
		}
		if err := br.Close(); err != nil {
			t.Fatalf("batch close: %v", err)
		}

		type sprint struct {
			ID    string
			State string
		}
		rows, err := conn.Query(ctx, `select sprint_id, state from sprints_it order by sprint_id`)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		defer rows.Close()

		got, err := pgx.CollectRows(rows, pgx.RowToStructByPos[sprint])
		if err != nil {
			t.Fatalf("collect: %v", err)
		}
		if len(got) != 2 || got[0].ID != "11" || got[1].State != "active" {
			t.Fatalf("rows: %#v", got)
		}
	})
}
