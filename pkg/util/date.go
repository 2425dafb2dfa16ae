package util

import (
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the wire format of forecast date labels.
const DateLayout = "2006-01-02"

// ParseTime tries RFC3339, RFC3339Nano, a bare date, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FutureDates labels the n calendar days following last.
func FutureDates(last time.Time, n int) []string {
	if n <= 0 {
		return []string{}
	}
	base := StartOfDay(last)
	out := make([]string, n)
	for i := 1; i <= n; i++ {
		out[i-1] = base.AddDate(0, 0, i).Format(DateLayout)
	}
	return out
}

// HistoryRange resolves a [start, end] window; an empty end means now.
func HistoryRange(start, end string, now time.Time) (time.Time, time.Time, error) {
	from, ok := ParseTime(start)
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid history start %q", start)
	}
	to := now
	if end != "" {
		if to, ok = ParseTime(end); !ok {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid history end %q", end)
		}
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("history end %s is not after start %s", to.Format(DateLayout), from.Format(DateLayout))
	}
	return StartOfDay(from), to, nil
}
