package config

import (
	"testing"
	"time"

	kit "aggbridge/internal/platform/testkit"
)

func TestPrefixComposition(t *testing.T) {
	jira := New().Prefix("JIRA_")
	if got := jira.key("TOKEN"); got != "JIRA_TOKEN" {
		t.Fatalf("key = %q", got)
	}
	if got := jira.Prefix("POLL_").key("INTERVAL"); got != "JIRA_POLL_INTERVAL" {
		t.Fatalf("nested key = %q", got)
	}
}

func TestMustString(t *testing.T) {
	c := New().Prefix("SERVICE_")
	t.Setenv("SERVICE_NAME", "  aggbridge ")

	if got := c.MustString("NAME"); got != "aggbridge" {
		t.Fatalf("MustString = %q", got)
	}
	kit.MustPanic(t, func() { _ = c.MustString("ABSENT") })
}

func TestMustTypedAccessors(t *testing.T) {
	c := New().Prefix("SVC_")
	t.Setenv("SVC_WORKERS", " 8 ")
	t.Setenv("SVC_TRACE", "true")
	t.Setenv("SVC_TIMEOUT", "250ms")
	t.Setenv("SVC_ENDPOINT", "https://events.internal/api")
	t.Setenv("SVC_PORT", "4000")

	if got := c.MustInt("WORKERS"); got != 8 {
		t.Fatalf("MustInt = %d", got)
	}
	if !c.MustBool("TRACE") {
		t.Fatal("MustBool = false")
	}
	if got := c.MustDuration("TIMEOUT"); got != 250*time.Millisecond {
		t.Fatalf("MustDuration = %v", got)
	}
	if u := c.MustURL("ENDPOINT"); !u.IsAbs() || u.Host != "events.internal" {
		t.Fatalf("MustURL = %v", u)
	}
	if got := c.MustPort("PORT"); got != ":4000" {
		t.Fatalf("MustPort = %q", got)
	}
}

func TestMustAccessorsPanicOnBadValues(t *testing.T) {
	c := New().Prefix("BAD_")
	t.Setenv("BAD_INT", "eight")
	t.Setenv("BAD_BOOL", "sure")
	t.Setenv("BAD_DUR", "soon")
	t.Setenv("BAD_URL", "/relative")
	t.Setenv("BAD_PORT", "70000")

	kit.MustPanic(t, func() { _ = c.MustInt("INT") })
	kit.MustPanic(t, func() { _ = c.MustBool("BOOL") })
	kit.MustPanic(t, func() { _ = c.MustDuration("DUR") })
	kit.MustPanic(t, func() { _ = c.MustURL("URL") })
	kit.MustPanic(t, func() { _ = c.MustPort("PORT") })
	kit.MustPanic(t, func() { _ = c.MustInt("ABSENT") })
}

func TestRequire(t *testing.T) {
	c := New().Prefix("REQ_")
	t.Setenv("REQ_DBURL", "postgres://db")
	t.Setenv("REQ_TOKEN", "x")
	t.Setenv("REQ_BLANK", "   ")

	c.Require("DBURL", "TOKEN")
	kit.MustPanic(t, func() { c.Require("DBURL", "ABSENT") })
	kit.MustPanic(t, func() { c.Require("BLANK") }) // whitespace counts as missing
}

func TestMayAccessorsUseDefaults(t *testing.T) {
	c := New().Prefix("OPT_")

	if got := c.MayString("ABSENT", "fallback"); got != "fallback" {
		t.Fatalf("MayString = %q", got)
	}
	if got := c.MayInt("ABSENT", 4); got != 4 {
		t.Fatalf("MayInt = %d", got)
	}
	if got := c.MayInt64("ABSENT", 1723456789); got != 1723456789 {
		t.Fatalf("MayInt64 = %d", got)
	}
	if got := c.MayFloat64("ABSENT", 1.5); got != 1.5 {
		t.Fatalf("MayFloat64 = %v", got)
	}
	if !c.MayBool("ABSENT", true) {
		t.Fatal("MayBool = false")
	}
	if got := c.MayDuration("ABSENT", 5*time.Second); got != 5*time.Second {
		t.Fatalf("MayDuration = %v", got)
	}
}

func TestMayAccessorsParseValues(t *testing.T) {
	c := New().Prefix("OPT_")
	t.Setenv("OPT_SLOW_MS", " 500 ")
	t.Setenv("OPT_SINCE", "1723456789")
	t.Setenv("OPT_RATIO", "0.75")
	t.Setenv("OPT_LOG_SQL", "true")
	t.Setenv("OPT_BACKOFF", "150ms")

	if got := c.MayInt("SLOW_MS", 0); got != 500 {
		t.Fatalf("MayInt = %d", got)
	}
	if got := c.MayInt64("SINCE", 0); got != 1723456789 {
		t.Fatalf("MayInt64 = %d", got)
	}
	if got := c.MayFloat64("RATIO", 0); got != 0.75 {
		t.Fatalf("MayFloat64 = %v", got)
	}
	if !c.MayBool("LOG_SQL", false) {
		t.Fatal("MayBool = false")
	}
	if got := c.MayDuration("BACKOFF", time.Second); got != 150*time.Millisecond {
		t.Fatalf("MayDuration = %v", got)
	}
}

func TestMayAccessorsFallBackOnGarbage(t *testing.T) {
	c := New().Prefix("OPT_")
	t.Setenv("OPT_N", "many")
	t.Setenv("OPT_B", "nope")
	t.Setenv("OPT_D", "never")

	if got := c.MayInt("N", 3); got != 3 {
		t.Fatalf("MayInt = %d", got)
	}
	if c.MayBool("B", false) {
		t.Fatal("MayBool = true")
	}
	if got := c.MayDuration("D", time.Minute); got != time.Minute {
		t.Fatalf("MayDuration = %v", got)
	}
}

func TestMayCSV(t *testing.T) {
	c := New().Prefix("CSV_")

	def := []string{"github"}
	if got := c.MayCSV("ABSENT", def); len(got) != 1 || got[0] != "github" {
		t.Fatalf("default: %#v", got)
	}

	t.Setenv("CSV_REPOS", " acme/api, acme/web , ,acme/cli ,, ")
	got := c.MayCSV("REPOS", nil)
	want := []string{"acme/api", "acme/web", "acme/cli"}
	if len(got) != len(want) {
		t.Fatalf("len = %d: %#v", len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	t.Setenv("CSV_REPOS", " , , ")
	if got := c.MayCSV("REPOS", def); len(got) != 1 || got[0] != "github" {
		t.Fatalf("all-blank should fall back: %#v", got)
	}
}

func TestMayEnum(t *testing.T) {
	c := New().Prefix("E_")

	if got := c.MayEnum("ABSENT", "github", "github", "gitlab"); got != "github" {
		t.Fatalf("default = %q", got)
	}
	if got := c.MayEnum("ABSENT", "", "github", "gitlab"); got != "" {
		t.Fatalf("empty default = %q", got)
	}

	t.Setenv("E_PROVIDER", "GitLab") // case-insensitive match, original casing kept
	if got := c.MayEnum("PROVIDER", "github", "github", "gitlab"); got != "GitLab" {
		t.Fatalf("matched = %q", got)
	}

	t.Setenv("E_PROVIDER", "bitbucket")
	kit.MustPanic(t, func() { _ = c.MayEnum("PROVIDER", "github", "github", "gitlab") })
}
