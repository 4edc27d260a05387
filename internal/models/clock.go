package models

import (
	"fmt"
	"time"
)

// Wire formats for dates and clock times. Dates and times are persisted as
// fixed-width strings so that lexicographic comparison matches chronological
// order in SQL.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"

	// EndOfDay is the default query window end when no end_time is given.
	EndOfDay = "23:59"
)

// ParseDate validates a YYYY-MM-DD date string and returns it normalised.
func ParseDate(raw string) (string, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return t.Format(DateLayout), nil
}

// ParseClock validates an HH:MM 24-hour time string and returns it normalised.
func ParseClock(raw string) (string, error) {
	t, err := time.Parse(ClockLayout, raw)
	if err != nil {
		return "", fmt.Errorf("invalid time %q: %w", raw, err)
	}
	return t.Format(ClockLayout), nil
}
