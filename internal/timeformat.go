package internal

import (
	"fmt"
	"time"
)

const bareTimestampLayout = "2006-01-02T15:04:05"

// ParseEventTime parses a webhook timestamp into a UTC instant. It accepts
// RFC 3339 (Z suffix or explicit offset) and the bare form
// "2006-01-02T15:04:05", which is assumed UTC. The second return value is
// false if neither form matches.
func ParseEventTime(raw string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(bareTimestampLayout, raw); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// DisplayEventTime renders a timestamp as e.g. "1st April 2021 - 09:30 PM UTC".
// If raw cannot be parsed the input is returned unchanged so message
// formatting never fails.
func DisplayEventTime(raw string) string {
	t, ok := ParseEventTime(raw)
	if !ok {
		return raw
	}
	day := t.Day()
	return fmt.Sprintf("%d%s %s UTC", day, ordinalSuffix(day), t.Format("January 2006 - 03:04 PM"))
}

func ordinalSuffix(day int) string {
	if day >= 11 && day <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}

// NowTimestamp returns the current instant in the canonical stored form.
func NowTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
