package main

import (
	"context"

	"aggbridge/internal/adapters/events"
	"aggbridge/internal/adapters/rules"
	"aggbridge/internal/modkit"
	"aggbridge/internal/modkit/repokit"
	"aggbridge/internal/platform/config"
	"aggbridge/internal/platform/flags"
	"aggbridge/internal/platform/logger"
	"aggbridge/internal/platform/metrics"
	"aggbridge/internal/platform/ops"
	"aggbridge/internal/platform/store"

	jiradom "aggbridge/internal/services/jiraagg/domain"
)

// app bundles the wiring shared by every job subcommand
type app struct {
	cfg     config.Conf
	st      *store.Store
	deps    modkit.Deps
	metrics *metrics.Metrics
	ops     *ops.Server
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.New()
	l := logger.Get()

	pgCfg := cfg.Prefix("SERVICE_PGSQL_")
	st, err := store.Open(ctx, store.Config{
		AppName: "aggbridge",
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		},
	}, store.WithLogger(*l))
	if err != nil {
		return nil, err
	}
	// fail fast when postgres is unreachable
	repokit.MustGuard(ctx, st)

	fl := flags.None()
	if path := cfg.MayString("FLAGS_FILE", ""); path != "" {
		fl, err = flags.Load(path)
		if err != nil {
			_ = st.Close(ctx)
			return nil, err
		}
	}

	m := metrics.New()
	deps := modkit.Deps{
		Log:     *l,
		Cfg:     cfg,
		PG:      repokit.WithBeginHooks(st.PG, tenantHook),
		Flags:   fl,
		Metrics: m,
	}

	return &app{
		cfg:     cfg,
		st:      st,
		deps:    deps,
		metrics: m,
		ops:     ops.NewServer(cfg, m, st.Guard),
	}, nil
}

func (a *app) close(ctx context.Context) {
	if err := a.st.Close(ctx); err != nil {
		logger.Get().Error().Err(err).Msg("failed to close store")
	}
}

// tenantHook pins the row-level security settings for the life of each tx
func tenantHook(ctx context.Context, q repokit.Queryer) error {
	if store.IsSuperadmin(ctx) {
		_, err := q.Exec(ctx, `select set_config('app.superadmin', 'on', true)`)
		return err
	}
	if id, ok := store.TenantID(ctx); ok {
		_, err := q.Exec(ctx, `select set_config('app.tenant_id', $1, true)`, id)
		return err
	}
	return nil
}

// eventBus prefers the HTTP bus when an endpoint is configured
func (a *app) eventBus() jiradom.EventBus {
	if a.cfg.Prefix("EVENTS_").MayString("ENDPOINT", "") != "" {
		return events.NewHTTP(a.cfg)
	}
	return events.NewLog()
}

// ruleEngine prefers the forwarder when an endpoint is configured
func (a *app) ruleEngine() jiradom.RuleEngine {
	if a.cfg.Prefix("RULES_").MayString("ENDPOINT", "") != "" {
		return rules.NewForwarder(a.cfg)
	}
	return rules.NewNoop()
}
