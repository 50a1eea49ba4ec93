// Package strings maps between Go strings and nullable pg text columns
package strings

import std "strings"

// Deref unwraps an optional string, treating nil as empty
func Deref(ps *string) string {
	if ps == nil {
		return ""
	}
	return *ps
}

// SQLNull turns a blank or whitespace-only string into a NULL query arg
func SQLNull(s string) any {
	if std.TrimSpace(s) == "" {
		return nil
	}
	return s
}
