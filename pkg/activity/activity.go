// Package activity classifies device records as recently active by their
// last-contact timestamp. Upstream data is frequently incomplete, so a
// record whose timestamp does not parse is excluded rather than surfaced as
// an error.
package activity

import (
	"strings"
	"time"
)

// layouts tried after the primary zoned parse fails. Naive timestamps parse
// into UTC, matching the assumption the backend makes.
var fallbackLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ParseLastContact parses an ISO-8601 last-contact timestamp. A trailing "Z"
// is treated as zero offset and naive timestamps are assumed UTC. The second
// return value is false when nothing parses.
func ParseLastContact(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	zoned := s
	if strings.HasSuffix(zoned, "Z") {
		zoned = strings.TrimSuffix(zoned, "Z") + "+00:00"
	}
	if t, err := time.Parse("2006-01-02T15:04:05.999999999-07:00", zoned); err == nil {
		return t, true
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsActive reports whether lastContact falls within windowDays of now.
// Unparseable timestamps are never active.
func IsActive(lastContact string, windowDays int, now time.Time) bool {
	t, ok := ParseLastContact(lastContact)
	if !ok {
		return false
	}
	return int(now.Sub(t).Hours()/24) <= windowDays
}

// FilterActive keeps the records whose timestamp, extracted by lastContact,
// is within the window. windowDays <= 0 disables filtering entirely and
// returns the input unchanged.
func FilterActive[T any](records []T, lastContact func(T) string, windowDays int, now time.Time) []T {
	if windowDays <= 0 {
		return records
	}
	out := make([]T, 0, len(records))
	for _, r := range records {
		if IsActive(lastContact(r), windowDays, now) {
			out = append(out, r)
		}
	}
	return out
}
