package module

import "aggbridge/internal/platform/config"

// Options tunes how the scm aggregation module ingests and reconciles
type Options struct {
	// ReconcileDirectMerges re-derives the direct-merge flag for every
	// commit seen during the run
	ReconcileDirectMerges bool
}

// FromConfig builds Options from the SCM_ view of the environment
func FromConfig(cfg config.Conf) Options {
	sf := cfg.Prefix("SCM_")
	return Options{
		ReconcileDirectMerges: sf.MayBool("RECONCILE_DIRECT_MERGES", true),
	}
}
