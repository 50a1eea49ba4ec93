// Package modkit carries the shared plumbing handed to every service module
package modkit

import (
	"aggbridge/internal/modkit/repokit"
	"aggbridge/internal/platform/config"
	"aggbridge/internal/platform/flags"
	"aggbridge/internal/platform/logger"
	"aggbridge/internal/platform/metrics"
)

// Deps bundles the platform collaborators a module needs at construction time.
// Modules take what they use and ignore the rest
type Deps struct {
	Log     logger.Logger
	Cfg     config.Conf
	PG      repokit.TxRunner
	Flags   *flags.Flags
	Metrics *metrics.Metrics
}
