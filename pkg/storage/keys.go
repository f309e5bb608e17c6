package storage

import (
	"fmt"
	"time"
)

const timestampLayout = "2006-01-02 15:04:05"

func slotKey(date, clock string) string {
	return fmt.Sprintf("%s|%s", date, clock)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// parseTimestamp accepts both CURRENT_TIMESTAMP and RFC3339 forms.
func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(timestampLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
