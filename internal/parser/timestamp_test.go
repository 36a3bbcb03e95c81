package parser

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/remindbot/internal/errors"
)

var testNow = time.Date(2024, 8, 23, 12, 0, 0, 0, time.UTC)

func TestParseEventTimeAbsolute(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		loc      *time.Location
		expected time.Time
	}{
		{
			name:     "date_and_minutes",
			input:    "2024-08-23 14:30",
			expected: time.Date(2024, 8, 23, 14, 30, 0, 0, time.UTC),
		},
		{
			name:     "date_and_seconds",
			input:    "2024-08-23 14:30:15",
			expected: time.Date(2024, 8, 23, 14, 30, 15, 0, time.UTC),
		},
		{
			name:     "iso_t_separator",
			input:    "2024-08-23T14:30",
			expected: time.Date(2024, 8, 23, 14, 30, 0, 0, time.UTC),
		},
		{
			name:     "rfc3339_keeps_its_own_offset",
			input:    "2024-08-23T16:30:00+02:00",
			loc:      time.FixedZone("UTC-5", -5*3600),
			expected: time.Date(2024, 8, 23, 14, 30, 0, 0, time.UTC),
		},
		{
			name:     "zone_less_input_uses_location",
			input:    "2024-08-23 09:30",
			loc:      time.FixedZone("UTC-5", -5*3600),
			expected: time.Date(2024, 8, 23, 14, 30, 0, 0, time.UTC),
		},
		{
			name:     "surrounding_whitespace",
			input:    "  2024-08-23 14:30  ",
			expected: time.Date(2024, 8, 23, 14, 30, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEventTime(tt.input, testNow, tt.loc)
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(got), "expected %s, got %s", tt.expected, got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseEventTimeRelative(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
	}{
		{"+30s", 30 * time.Second},
		{"+5m", 5 * time.Minute},
		{"+1h", time.Hour},
		{"+2d", 48 * time.Hour},
		{"+1w", 7 * 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseEventTime(tt.input, testNow, nil)
			require.NoError(t, err)
			assert.Equal(t, testNow.Add(tt.expected), got)
		})
	}

	t.Run("zero_is_rejected", func(t *testing.T) {
		_, err := ParseEventTime("+0m", testNow, nil)
		assert.Error(t, err)
	})
}

func TestParseEventTimeNaturalLanguage(t *testing.T) {
	got, err := ParseEventTime("tomorrow", testNow, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 2024, got.Year())
	assert.Equal(t, time.August, got.Month())
	assert.Equal(t, 24, got.Day())
}

func TestParseEventTimeInvalid(t *testing.T) {
	for _, input := range []string{
		"", "   ", "not a date at all qqq",
		"+0m", "+20000000w", "+9999999999999h", "+99999999999999999999s",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseEventTime(input, testNow, time.UTC)
			require.Error(t, err)

			var tpe *TimeParseError
			require.ErrorAs(t, err, &tpe)
			assert.Equal(t, "time", tpe.Field)

			ve := tpe.ToValidationError()
			assert.True(t, errors.IsValidationError(ve))
			assert.ErrorIs(t, ve, errors.ErrInvalidTimestamp)
		})
	}
}

func TestParseEventTimeRelativeBound(t *testing.T) {
	got, err := ParseEventTime("+5200w", testNow, time.UTC)
	require.NoError(t, err)
	assert.True(t, got.After(testNow))

	weeks := int64(MaxRelative/(7*24*time.Hour)) + 1
	_, err = ParseEventTime("+"+strconv.FormatInt(weeks, 10)+"w", testNow, time.UTC)
	require.Error(t, err)
}
