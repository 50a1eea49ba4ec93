package module

import "aggbridge/internal/platform/config"

// Options tunes how the jira aggregation module ingests and reconciles
type Options struct {
	SnapshottingDisabled bool
	ConfigVersion        int64
	Backward             bool
}

// FromConfig builds Options from the JIRA_ view of the environment
func FromConfig(cfg config.Conf) Options {
	jf := cfg.Prefix("JIRA_")
	return Options{
		SnapshottingDisabled: jf.MayBool("SNAPSHOTTING_DISABLED", false),
		ConfigVersion:        jf.MayInt64("CONFIG_VERSION", 0),
		Backward:             jf.MayBool("BACKWARD_SCAN", false),
	}
}
