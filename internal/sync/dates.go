package sync

import (
	"fmt"
	"strings"
	"time"
)

// parseDate turns an RFC 3339 timestamp or bare YYYY-MM-DD date into a
// calendar date (midnight UTC).
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return dateOnly(t.UTC()), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return dateOnly(t), nil
	}
	return time.Time{}, fmt.Errorf("unparseable date: %q", s)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween returns to - from in whole days; both arguments must already
// be calendar dates.
func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// normalizeDue converts a bare date into the midnight-UTC timestamp form the
// mirror services expect; full timestamps pass through unchanged.
func normalizeDue(s string) string {
	if s == "" || strings.Contains(s, "T") {
		return s
	}
	return s + "T00:00:00.000Z"
}
