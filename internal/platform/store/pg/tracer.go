package pg

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"aggbridge/internal/platform/logger"
)

// QueryEvent is one completed statement as seen by the sql adapter
type QueryEvent struct {
	SQL       string
	Args      any
	ElapsedUS int64
	Err       error
	Slow      bool
}

// QueryTracer receives every traced statement
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// Tracer builds a logging tracer pinned to debug level so SQL stays visible
// regardless of the process-wide root level
func Tracer(root logger.Logger) QueryTracer {
	return &logTracer{log: root.Level(zerolog.DebugLevel).With().Str("component", "pg").Logger()}
}

type logTracer struct{ log logger.Logger }

// OnQuery logs normal statements at info and slow ones at warn
func (z *logTracer) OnQuery(_ context.Context, ev QueryEvent) {
	evt := z.log.Info()
	if ev.Slow {
		evt = z.log.Warn()
	}
	evt.Float64("elapsed_ms", float64(ev.ElapsedUS)/1000.0).
		Bool("slow", ev.Slow).
		Str("sql", compact(ev.SQL)).
		Interface("args", ev.Args).
		Err(ev.Err).
		Msg("pg query")
}

// compact folds runs of whitespace into single spaces so multiline SQL logs
// as one line
func compact(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		switch r {
		case ' ', '\n', '\t', '\r':
			if !inSpace {
				b.WriteByte(' ')
				inSpace = true
			}
		default:
			inSpace = false
			b.WriteRune(r)
		}
	}
	return b.String()
}
