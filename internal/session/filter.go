package session

import (
	"strconv"
	"strings"
	"time"

	"github.com/poridhioss/dockyard/internal/engine"
)

// LogFilter selects which container log records to stream.
type LogFilter struct {
	Follow     bool
	Tail       uint // lines from the end; 0 = all
	Since      string
	Timestamps bool
	Stdout     bool
	Stderr     bool
}

// Normalize ensures the filter can never produce an empty stream by
// omission: requesting neither stream means both.
func (f LogFilter) Normalize() LogFilter {
	if !f.Stdout && !f.Stderr {
		f.Stdout = true
		f.Stderr = true
	}
	return f
}

func (f LogFilter) options() engine.LogOptions {
	since := ""
	if t := ParseSince(f.Since, time.Now()); !t.IsZero() {
		since = t.Format(time.RFC3339Nano)
	}
	return engine.LogOptions{
		Follow:     f.Follow,
		Tail:       f.Tail,
		Since:      since,
		Timestamps: f.Timestamps,
		Stdout:     f.Stdout,
		Stderr:     f.Stderr,
	}
}

// ParseSince resolves a since value to an absolute time-point. It
// accepts relative durations like "10s", "30m", "1h" or "7d", or an
// RFC 3339 timestamp. Anything unparseable means no lower bound and
// returns the zero time.
func ParseSince(s string, now time.Time) time.Time {
	if s == "" {
		return time.Time{}
	}

	if n := len(s); n > 1 {
		if unit, ok := sinceUnits[s[n-1]]; ok {
			if v, err := strconv.ParseUint(strings.TrimSpace(s[:n-1]), 10, 32); err == nil {
				return now.Add(-time.Duration(v) * unit)
			}
		}
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

var sinceUnits = map[byte]time.Duration{
	's': time.Second,
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
}
