package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"aggbridge/internal/platform/store/pg"
)

// readiness probe settings for a freshly opened pool
const (
	pingAttempts = 20
	pingTimeout  = 3 * time.Second
	backoffFirst = 150 * time.Millisecond
	backoffMax   = 2 * time.Second
)

// openPG builds the pool, waits for it to answer pings, and wraps it in the
// sql adapter. The adapter is published on the Store only once healthy
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	var tracer pg.QueryTracer
	if cfg.PG.LogSQL {
		tracer = pg.Tracer(s.Log)
	}

	p, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		MaxConns: cfg.PG.MaxConns,
		SlowMs:   cfg.PG.SlowQueryMs,
	}, tracer, func(pc *pgxpool.Config) {
		if cfg.AppName == "" {
			return
		}
		if pc.ConnConfig.RuntimeParams == nil {
			pc.ConnConfig.RuntimeParams = map[string]string{}
		}
		pc.ConnConfig.RuntimeParams["application_name"] = cfg.AppName
	})
	if err != nil {
		return nil, err
	}

	if err := awaitReady(ctx, p); err != nil {
		p.Close()
		return nil, err
	}

	a := newPGAdapter(p)
	s.PG = a
	return a, nil
}

// awaitReady pings the pool directly so probe traffic never hits the SQL trace
func awaitReady(ctx context.Context, p *pg.PG) error {
	backoff := backoffFirst
	var lastErr error

	for attempt := 0; attempt < pingAttempts; attempt++ {
		probeCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		lastErr = p.Pool.Ping(probeCtx)
		cancel()

		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		time.Sleep(backoff)
		if backoff *= 2; backoff > backoffMax {
			backoff = backoffMax
		}
	}
	return fmt.Errorf("postgres ping failed after %d attempts: %w", pingAttempts, lastErr)
}
