package store

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestOpen_DisabledBackendsStayNil(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := Open(ctx, Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.PG != nil {
		t.Fatalf("PG should be nil when disabled, got %T", s.PG)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close on empty store: %v", err)
	}
}

func TestOpen_BadPGURLFails(t *testing.T) {
	t.Parallel()

	s, err := Open(context.Background(), Config{
		PG: PGConfig{Enabled: true, URL: "://not-a-dsn"},
	})
	if err == nil {
		t.Fatalf("expected error, got store %#v", s)
	}
}

func TestOpen_WithLoggerOption(t *testing.T) {
	t.Parallel()

	var zl zerolog.Logger
	s, err := Open(context.Background(), Config{}, WithLogger(zl))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	// the zero logger is normalized so callers can log unconditionally
	s.Log.Debug().Msg("ok")
}
