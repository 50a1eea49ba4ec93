// Package version exposes build metadata stamped in at link time
package version

// stamped via -ldflags -X, e.g.
//
//	-X aggbridge/internal/core/version.version=v0.3.0
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// BuildInfo describes the running binary
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns the stamped build metadata
func Info() BuildInfo {
	return BuildInfo{Service: "aggbridge", Version: version, Commit: commit, Date: date}
}
