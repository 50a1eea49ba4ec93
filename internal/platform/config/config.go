// Package config reads application configuration from environment variables
package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"aggbridge/internal/platform/logger"
)

// Conf is a namespaced view over the environment. New() gives the root view;
// Prefix("JIRA_") scopes a module to its own keys
type Conf struct{ prefix string }

// New returns the root view with no prefix
func New() Conf { return Conf{} }

// Prefix returns a child view with an additional namespace segment
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

func (c Conf) key(k string) string { return c.prefix + k }

// raw returns the trimmed value, "" when unset
func (c Conf) raw(key string) string {
	return strings.TrimSpace(os.Getenv(c.key(key)))
}

// die panics through the logger so the failure carries the offending key
func (c Conf) die(key, value, msg string) {
	logger.Get().Panic().Str("key", c.key(key)).Str("value", value).Msg(msg)
}

// fallback logs the bad value and returns nothing; callers return their default
func (c Conf) fallback(key, value string) {
	logger.Get().Warn().Str("key", c.key(key)).Str("value", value).Msg("invalid value; using default")
}

// Must* accessors panic on missing or malformed values. Startup is the only
// place they run, so failing loud beats limping along misconfigured.

// MustString panics when the key is missing or empty
func (c Conf) MustString(key string) string {
	v := c.raw(key)
	if v == "" {
		c.die(key, "", "missing required env")
	}
	return v
}

// MustInt panics when the key is missing or not an integer
func (c Conf) MustInt(key string) int {
	s := c.MustString(key)
	v, err := strconv.Atoi(s)
	if err != nil {
		c.die(key, s, "invalid int value")
	}
	return v
}

// MustBool panics when the key is missing or not a bool
func (c Conf) MustBool(key string) bool {
	s := c.MustString(key)
	v, err := strconv.ParseBool(s)
	if err != nil {
		c.die(key, s, "invalid bool value")
	}
	return v
}

// MustDuration panics unless the value parses as a Go duration (250ms, 2s, 1h)
func (c Conf) MustDuration(key string) time.Duration {
	s := c.MustString(key)
	d, err := time.ParseDuration(s)
	if err != nil {
		c.die(key, s, "invalid duration")
	}
	return d
}

// MustURL panics unless the value is an absolute URL
func (c Conf) MustURL(key string) *url.URL {
	s := c.MustString(key)
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() {
		c.die(key, s, "invalid absolute URL")
	}
	return u
}

// MustPort validates 1..65535 and returns a net/http addr like ":4000"
func (c Conf) MustPort(key string) string {
	s := c.MustString(key)
	p, err := strconv.Atoi(s)
	if err != nil || p < 1 || p > 65535 {
		c.die(key, s, "invalid TCP port; expected 1..65535")
	}
	return ":" + s
}

// Require panics unless every key is present and non-empty
func (c Conf) Require(keys ...string) {
	for _, k := range keys {
		if c.raw(k) == "" {
			c.die(k, "", "missing required env")
		}
	}
}

// May* accessors fall back to a default; malformed values log a warning.

// MayString returns the value or def when unset
func (c Conf) MayString(key, def string) string {
	if v := c.raw(key); v != "" {
		return v
	}
	return def
}

// MayInt returns the parsed value or def
func (c Conf) MayInt(key string, def int) int {
	s := c.raw(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		c.fallback(key, s)
		return def
	}
	return v
}

// MayInt64 returns the parsed value or def
func (c Conf) MayInt64(key string, def int64) int64 {
	s := c.raw(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		c.fallback(key, s)
		return def
	}
	return v
}

// MayFloat64 returns the parsed value or def
func (c Conf) MayFloat64(key string, def float64) float64 {
	s := c.raw(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		c.fallback(key, s)
		return def
	}
	return v
}

// MayBool returns the parsed value or def
func (c Conf) MayBool(key string, def bool) bool {
	s := c.raw(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		c.fallback(key, s)
		return def
	}
	return v
}

// MayDuration returns the parsed value or def
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	s := c.raw(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		c.fallback(key, s)
		return def
	}
	return d
}

// MayCSV splits a comma-separated value, dropping empty entries; def when the
// key is unset or nothing survives
func (c Conf) MayCSV(key string, def []string) []string {
	s := c.raw(key)
	if s == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// MayEnum returns def when unset, the value when it case-insensitively matches
// one of allowed, and panics otherwise
func (c Conf) MayEnum(key, def string, allowed ...string) string {
	v := c.MayString(key, def)
	if v == "" {
		return v
	}
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return v
		}
	}
	logger.Get().Panic().Str("key", c.key(key)).Str("value", v).Strs("allowed", allowed).Msg("invalid enum value")
	return ""
}
