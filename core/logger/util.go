package logger

import (
	"strings"
	"time"
)

// RoundMS rounds a duration to whole milliseconds for stable log values.
func RoundMS(d time.Duration) time.Duration {
	return d.Round(time.Millisecond)
}

// Took returns the elapsed time since start, rounded to milliseconds.
func Took(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

// SummarizeStrings joins up to max items with a trailing ellipsis marker.
func SummarizeStrings(items []string, max int) string {
	if len(items) == 0 {
		return ""
	}
	if max <= 0 || len(items) <= max {
		return strings.Join(items, ",")
	}
	return strings.Join(items[:max], ",") + ",…"
}

// Status validates a status value against the known vocabulary, falling back
// to "fail" for unknown input so dashboards stay consistent.
func Status(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, ok := allowedStatus[s]; ok {
		return s
	}
	return "fail"
}
