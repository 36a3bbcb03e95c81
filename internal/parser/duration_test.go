package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
		valid    bool
	}{
		// Standard Go duration formats
		{"go_duration_hours", "2h", 2 * time.Hour, true},
		{"go_duration_minutes", "30m", 30 * time.Minute, true},
		{"go_duration_combined", "1h30m", 90 * time.Minute, true},

		// Human-readable formats
		{"hours_hours", "2 hours", 2 * time.Hour, true},
		{"minutes_min", "30min", 30 * time.Minute, true},
		{"minutes_minutes", "30 minutes", 30 * time.Minute, true},
		{"seconds_sec", "45sec", 45 * time.Second, true},
		{"decimal_hours", "2.5h", 150 * time.Minute, true},
		{"combined_hours_minutes", "1h 30m", 90 * time.Minute, true},

		// Bare numbers use the caller's unit
		{"number_only", "25", 25 * time.Minute, true},
		{"decimal_number", "1.5", 90 * time.Second, true},

		// Invalid
		{"empty_string", "", 0, false},
		{"whitespace_only", "   ", 0, false},
		{"invalid_format", "abc", 0, false},
		{"zero", "0", 0, false},
		{"negative_go_duration", "-5m", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDuration(tt.input, time.Minute)
			if !tt.valid {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "25 minutes", FormatMinutes(25*time.Minute))
	assert.Equal(t, "1 minute", FormatMinutes(time.Minute))
	assert.Equal(t, "5 minutes", FormatMinutes(5*time.Minute+10*time.Second))
}
