// Package store fronts the configured storage backends behind small interfaces
package store

import (
	"context"
	"errors"
	"fmt"

	"aggbridge/internal/platform/logger"
)

// Store is the facade over configured backends. The zero value is inert
type Store struct {
	// Log is handed to subclients; zero means a no-op zerolog logger
	Log logger.Logger

	// PG is the postgres seam, nil when disabled
	PG TxRunner
}

// Row is the scan contract of a single row
type Row interface {
	Scan(dest ...any) error
}

// Rows iterates a result set
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
	Columns() []string
}

// CommandTag reports the outcome of a non-query statement
type CommandTag interface {
	String() string
	RowsAffected() int64
}

// RowQuerier is the sql surface repos program against
type RowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// TxRunner adds transactional execution to RowQuerier
type TxRunner interface {
	RowQuerier
	Tx(ctx context.Context, fn func(q RowQuerier) error) error
}

// Pinger is any backend that can report readiness
type Pinger interface{ Ping(context.Context) error }

// Option mutates the Store during Open
type Option func(*Store) error

// WithLogger sets the logger handed to subclients
func WithLogger(log logger.Logger) Option {
	return func(s *Store) error {
		s.Log = log
		return nil
	}
}

// Open builds a Store with the backends cfg enables. Disabled backends stay nil
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}

	// normalize the zero logger so callers never nil-check
	s.Log = s.Log.With().Logger()

	if cfg.PG.Enabled {
		runner, err := openPG(ctx, cfg, s)
		if err != nil {
			return nil, err
		}
		s.PG = runner
	}
	return s, nil
}

// Guard pings every backend that knows how and joins the failures
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("nil store")
	}
	var errs []error
	if p, ok := s.PG.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("pg: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close shuts down every initialized backend
func (s *Store) Close(ctx context.Context) error {
	var errs []error
	if c, ok := s.PG.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
