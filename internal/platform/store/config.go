package store

// Config aggregates per-backend settings
type Config struct {
	// AppName shows up as application_name on pg sessions
	AppName string

	PG PGConfig
}

// PGConfig controls postgres connectivity and statement tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int
}
