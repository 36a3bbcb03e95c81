// Package parser turns user-typed times and durations into values.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"
)

// relativeRegex matches relative time expressions like "+5m", "+1h", "+2d".
var relativeRegex = regexp.MustCompile(`^\+(\d+)([smhdw])$`)

// absoluteLayouts are tried before natural language so that the common
// "2024-08-23 14:30" form never depends on language detection.
var absoluteLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
}

// ParseEventTime parses the time an event starts.
//
// now anchors relative expressions and loc is the zone for input that names
// no zone of its own. The result is always UTC. Supports formats like:
//   - "2024-08-23 14:30", RFC 3339
//   - "+5m", "+1h", "+2d" (relative)
//   - "tomorrow at 3pm", "friday 5pm", "in 20 minutes" (natural language)
func ParseEventTime(input string, now time.Time, loc *time.Location) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, NewEventTimeError(input, nil)
	}
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	if match := relativeRegex.FindStringSubmatch(input); match != nil {
		d, ok := relativeDuration(match[1], match[2])
		if !ok {
			return time.Time{}, NewEventTimeError(input, nil)
		}
		return now.Add(d).UTC(), nil
	}

	if t, err := time.Parse(time.RFC3339, input); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, input, loc); err == nil {
			return t.UTC(), nil
		}
	}

	// Use go-dateparser for natural language parsing
	cfg := &dateparser.Configuration{
		CurrentTime:     now,
		DefaultTimezone: loc,
	}

	result, err := dateparser.Parse(cfg, input)
	if err != nil {
		return time.Time{}, NewEventTimeError(input, err)
	}
	if result.Time.IsZero() {
		return time.Time{}, NewEventTimeError(input, nil)
	}

	return result.Time.UTC(), nil
}

// MaxRelative bounds "+<n><unit>" offsets so the product cannot overflow
// time.Duration.
const MaxRelative = 100 * 365 * 24 * time.Hour

var relativeUnits = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
}

// relativeDuration converts "+<n><unit>" components to a duration.
func relativeDuration(numStr, unit string) (time.Duration, bool) {
	per, ok := relativeUnits[unit]
	if !ok {
		return 0, false
	}
	num, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil || num <= 0 || num > int64(MaxRelative/per) {
		return 0, false
	}
	return time.Duration(num) * per, true
}
