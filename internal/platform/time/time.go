// Package time converts between the epoch shapes the upstream APIs use
package time

import "time"

// MillisPtrToSeconds truncates an optional epoch-milliseconds value to
// whole seconds, passing nil through
func MillisPtrToSeconds(ms *int64) *int64 {
	if ms == nil {
		return nil
	}
	s := *ms / 1000
	return &s
}

// UnixPtr returns t's epoch seconds, or nil for the zero time
func UnixPtr(t time.Time) *int64 {
	if t.IsZero() {
		return nil
	}
	s := t.Unix()
	return &s
}
