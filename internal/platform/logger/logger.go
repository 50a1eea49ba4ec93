// Package logger wraps zerolog with process-wide defaults and job-scoped children
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
	"gopkg.in/natefinch/lumberjack.v2"

	"aggbridge/internal/platform/config/raw"
)

// Logger is the project-wide logging type; an alias so call sites never name
// zerolog directly
type Logger = zerolog.Logger

// Options configures the root logger
type Options struct {
	Level        string
	Format       string // "console", "json", or "auto" (console only on a TTY)
	Service      string
	Component    string
	Writer       io.Writer
	File         string // optional rotating file sink
	FileMaxMB    int
	FileBackups  int
	WithCaller   bool
	SampleEvery  int
	StaticFields map[string]string
}

// FromEnv reads LOG_* through the raw view, which carries no logger dependency
func FromEnv() Options {
	rc := raw.New().Prefix("LOG_")
	return Options{
		Level:       strings.ToLower(rc.Get("LEVEL", "debug")),
		Format:      strings.ToLower(rc.Get("FORMAT", "auto")),
		Service:     rc.Get("SERVICE", ""),
		Component:   rc.Get("COMPONENT", ""),
		File:        rc.Get("FILE", ""),
		FileMaxMB:   rc.GetInt("FILE_MAX_MB", 100),
		FileBackups: rc.GetInt("FILE_BACKUPS", 3),
		WithCaller:  rc.GetBool("CALLER", false),
		SampleEvery: rc.GetInt("SAMPLE_EVERY", 0),
	}
}

var (
	once   sync.Once
	root   atomic.Pointer[zerolog.Logger]
	inited atomic.Bool
)

// Get returns the process-wide root logger, initializing from env on first use
func Get() *Logger {
	if !inited.Load() {
		Init(FromEnv())
	}
	return root.Load()
}

// Init builds the root logger. Only the first call takes effect
func Init(opt Options) {
	once.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano

		log := buildRoot(opt)
		root.Store(&log)
		inited.Store(true)
	})
}

func buildRoot(opt Options) zerolog.Logger {
	w := sinkFor(opt)

	ctx := zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp()
	if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
		ctx = ctx.Str("go_version", bi.GoVersion)
	}
	if opt.Service != "" {
		ctx = ctx.Str("service", opt.Service)
	}
	if opt.Component != "" {
		ctx = ctx.Str("component", opt.Component)
	}
	for k, v := range opt.StaticFields {
		ctx = ctx.Str(k, v)
	}

	log := ctx.Logger()
	if opt.WithCaller {
		log = log.With().Caller().Logger()
	}
	if opt.SampleEvery > 1 {
		log = log.Sample(&zerolog.BasicSampler{N: uint32(opt.SampleEvery)})
	}
	return log
}

// sinkFor picks the output writer: explicit writer, rotating file, or stdout,
// optionally wrapped in the pretty console writer
func sinkFor(opt Options) io.Writer {
	var w io.Writer = os.Stdout
	if opt.Writer != nil {
		w = opt.Writer
	}
	if opt.File != "" {
		w = &lumberjack.Logger{
			Filename:   opt.File,
			MaxSize:    opt.FileMaxMB,
			MaxBackups: opt.FileBackups,
			Compress:   true,
		}
	}
	if consoleWanted(opt.Format, w) {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return w
}

// consoleWanted is true for "console", false for "json", and TTY-detected
// for "auto"
func consoleWanted(format string, w io.Writer) bool {
	switch format {
	case "console":
		return true
	case "json":
		return false
	default:
		f, ok := w.(*os.File)
		return ok && isatty.IsTerminal(f.Fd())
	}
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.DebugLevel
	}
}

type ctxKey struct{ name string }

var (
	keyJobID    = ctxKey{"job_id"}
	keyTenantID = ctxKey{"tenant_id"}
)

// WithJob stores the job and tenant ids every ingestion log line should carry
func WithJob(ctx context.Context, jobID, tenantID string) context.Context {
	if jobID != "" {
		ctx = context.WithValue(ctx, keyJobID, jobID)
	}
	if tenantID != "" {
		ctx = context.WithValue(ctx, keyTenantID, tenantID)
	}
	return ctx
}

// C returns a child logger carrying the ctx's job_id and tenant_id fields
func C(ctx context.Context) *Logger {
	builder := Get().With()
	if s, ok := ctx.Value(keyJobID).(string); ok && s != "" {
		builder = builder.Str("job_id", s)
	}
	if s, ok := ctx.Value(keyTenantID).(string); ok && s != "" {
		builder = builder.Str("tenant_id", s)
	}
	child := builder.Logger()
	return &child
}

// Named returns a child logger tagged with a component field
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	child := Get().With().Str("component", component).Logger()
	return &child
}
