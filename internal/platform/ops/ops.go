// Package ops runs the small operational listener (health, readiness,
// metrics) next to the ingestion loops.
package ops

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"aggbridge/internal/platform/config"
	"aggbridge/internal/platform/logger"
	"aggbridge/internal/platform/metrics"
)

// ReadyFunc reports whether downstream dependencies are usable
type ReadyFunc func(ctx context.Context) error

// Server is a thin wrapper over chi + stdlib http.Server
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer wires /healthz, /readyz and /metrics on OPS_PORT
func NewServer(cfg config.Conf, m *metrics.Metrics, ready ReadyFunc) *Server {
	addr := cfg.MayString("OPS_PORT", ":9090")

	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)

	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	if m != nil {
		mux.Handle("/metrics", m.Handler())
	}

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Addr returns the listening address
func (s *Server) Addr() string { return s.addr }

// Run starts the listener and blocks until Shutdown or failure
func (s *Server) Run(ctx context.Context) error {
	log := logger.Named("ops")
	log.Info().Str("addr", s.addr).Msg("ops listening")

	errc := make(chan error, 1)
	go func() { errc <- s.srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shctx)
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Shutdown stops the listener gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
