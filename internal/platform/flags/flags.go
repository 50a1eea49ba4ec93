// Package flags holds per-tenant feature toggles for the ingestion pipeline.
//
// Tenant whitelists are loaded once at startup from an optional YAML file plus
// FLAGS_* env overrides and injected into services as an explicit value, so the
// reconciliation logic itself stays free of tenant-specific literals.
package flags

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	perr "aggbridge/internal/platform/errors"
)

// Flags is the resolved, immutable feature-flag view
type Flags struct {
	reviewRaceTenants      map[string]struct{}
	skipHugeCommitTenants  map[string]struct{}
	emitUpdateEventTenants map[string]struct{}
	maxCommitChanges       int
}

// defaults when no file and no env overrides are present
const defaultMaxCommitChanges = 100000

// Load reads flags from an optional YAML file and FLAGS_* env vars.
// An empty path skips the file provider; env always applies on top.
//
// File shape:
//
//	tenants:
//	  pr_review_race: [acme, globex]
//	  skip_huge_commits: [initech]
//	  emit_update_events: [acme]
//	limits:
//	  max_commit_changes: 50000
func Load(path string) (*Flags, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "load flags file %s", path)
		}
	}

	// FLAGS_TENANTS__PR_REVIEW_RACE="a,b" -> tenants.pr_review_race
	if err := k.Load(env.Provider("FLAGS_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "FLAGS_")), "__", ".")
	}), nil); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "load flags env")
	}

	f := &Flags{
		reviewRaceTenants:      tenantSet(k, "tenants.pr_review_race"),
		skipHugeCommitTenants:  tenantSet(k, "tenants.skip_huge_commits"),
		emitUpdateEventTenants: tenantSet(k, "tenants.emit_update_events"),
		maxCommitChanges:       k.Int("limits.max_commit_changes"),
	}
	if f.maxCommitChanges <= 0 {
		f.maxCommitChanges = defaultMaxCommitChanges
	}
	return f, nil
}

// None returns an empty flag set (all toggles off, default limits)
func None() *Flags {
	return &Flags{maxCommitChanges: defaultMaxCommitChanges}
}

// tenantSet reads either a YAML list or a comma-separated string at key
func tenantSet(k *koanf.Koanf, key string) map[string]struct{} {
	out := map[string]struct{}{}
	vals := k.Strings(key)
	if len(vals) == 0 {
		if s := k.String(key); s != "" {
			vals = strings.Split(s, ",")
		}
	}
	for _, v := range vals {
		if t := strings.TrimSpace(v); t != "" {
			out[strings.ToLower(t)] = struct{}{}
		}
	}
	return out
}

func member(set map[string]struct{}, tenant string) bool {
	_, ok := set[strings.ToLower(strings.TrimSpace(tenant))]
	return ok
}

// ReviewRaceEnabled reports whether a PR timestamp tie with a higher review
// count should still trigger a re-insert for this tenant
func (f *Flags) ReviewRaceEnabled(tenant string) bool {
	return f != nil && member(f.reviewRaceTenants, tenant)
}

// SkipHugeCommits reports whether oversized commits are dropped on first
// insert for this tenant
func (f *Flags) SkipHugeCommits(tenant string) bool {
	return f != nil && member(f.skipHugeCommitTenants, tenant)
}

// EmitUpdateEvents reports whether issue update events are published for
// this tenant (create events are always published)
func (f *Flags) EmitUpdateEvents(tenant string) bool {
	return f != nil && member(f.emitUpdateEventTenants, tenant)
}

// MaxCommitChanges is the change-volume ceiling used by SkipHugeCommits
func (f *Flags) MaxCommitChanges() int {
	if f == nil || f.maxCommitChanges <= 0 {
		return defaultMaxCommitChanges
	}
	return f.maxCommitChanges
}
