package raw

import "testing"

func TestGet(t *testing.T) {
	t.Setenv("LOG_LEVEL", "  info  ")

	log := New().Prefix("LOG_")
	if got := log.Get("LEVEL", "debug"); got != "info" {
		t.Fatalf("Get(LEVEL) = %q", got)
	}
	if got := log.Get("FORMAT", "auto"); got != "auto" {
		t.Fatalf("unset key should use default, got %q", got)
	}
}

func TestGetBool(t *testing.T) {
	cases := []struct {
		raw  string
		def  bool
		want bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{" true ", false, true},
		{"false", true, false},
		{"0", true, false},
		{"banana", true, false}, // set but not truthy
		{"", true, true},
		{"", false, false},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			if tc.raw != "" {
				t.Setenv("LOG_CALLER", tc.raw)
			}
			if got := New().Prefix("LOG_").GetBool("CALLER", tc.def); got != tc.want {
				t.Fatalf("GetBool(%q, %v) = %v", tc.raw, tc.def, got)
			}
		})
	}
}

func TestGetInt(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"100", 100},
		{" 7 ", 7},
		{"12x", 42},
		{"-5", 42}, // negative sizes make no sense here
		{"", 42},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			if tc.raw != "" {
				t.Setenv("LOG_FILE_MAX_MB", tc.raw)
			}
			if got := New().Prefix("LOG_").GetInt("FILE_MAX_MB", 42); got != tc.want {
				t.Fatalf("GetInt(%q) = %d", tc.raw, got)
			}
		})
	}
}

func TestPrefixNesting(t *testing.T) {
	t.Setenv("SERVICE_LOG_MODE", "console")

	svcLog := New().Prefix("SERVICE_").Prefix("LOG_")
	if got := svcLog.Get("MODE", ""); got != "console" {
		t.Fatalf("nested prefix Get = %q", got)
	}
}
