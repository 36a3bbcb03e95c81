package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// durationPattern matches duration expressions like "25", "30m", "1h30m", "2.5h", "1 hour 30 minutes".
var durationPattern = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*(h|hr|hrs|hour|hours|m|min|mins|minute|minutes|s|sec|secs|second|seconds)?\s*(?:(\d+(?:\.\d+)?)\s*(m|min|mins|minute|minutes))?$`)

// ParseDuration parses a human-readable duration string.
// A bare number is interpreted in units of bare.
// Supports formats like:
//   - "25" (bare units)
//   - "30m" or "30 minutes"
//   - "1h30m" or "1 hour 30 minutes"
//   - "2.5h" (2 hours 30 minutes)
func ParseDuration(input string, bare time.Duration) (time.Duration, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, NewDurationError(input)
	}

	// Standard Go duration format first (e.g., "2h30m")
	if d, err := time.ParseDuration(input); err == nil {
		if d <= 0 {
			return 0, NewDurationError(input)
		}
		return d, nil
	}

	matches := durationPattern.FindStringSubmatch(input)
	if matches == nil {
		return 0, NewDurationError(input)
	}

	var total time.Duration

	value, _ := strconv.ParseFloat(matches[1], 64)
	if matches[2] == "" {
		total += time.Duration(value * float64(bare))
	} else {
		total += unitToDuration(value, strings.ToLower(matches[2]))
	}

	// Second number and unit (for "1h30m" style)
	if matches[3] != "" {
		value, _ := strconv.ParseFloat(matches[3], 64)
		total += unitToDuration(value, strings.ToLower(matches[4]))
	}

	if total <= 0 {
		return 0, NewDurationError(input)
	}
	return total, nil
}

// unitToDuration converts a value and unit to a duration.
func unitToDuration(value float64, unit string) time.Duration {
	switch unit {
	case "h", "hr", "hrs", "hour", "hours":
		return time.Duration(value * float64(time.Hour))
	case "s", "sec", "secs", "second", "seconds":
		return time.Duration(value * float64(time.Second))
	default:
		return time.Duration(value * float64(time.Minute))
	}
}

// FormatMinutes renders d as a whole number of minutes, e.g. "25 minutes".
func FormatMinutes(d time.Duration) string {
	m := int(d.Round(time.Minute) / time.Minute)
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}
