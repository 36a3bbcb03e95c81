package parser

import (
	"fmt"
	"strings"

	"github.com/manav03panchal/remindbot/internal/errors"
)

// TimeParseError represents a time parsing error with helpful suggestions.
type TimeParseError struct {
	Input      string
	Field      string
	Message    string
	Examples   []string
	Suggestion string
	Cause      error
}

func (e *TimeParseError) Error() string {
	return fmt.Sprintf("invalid %s '%s': %s", e.Field, e.Input, e.Message)
}

func (e *TimeParseError) Unwrap() error {
	return e.Cause
}

// NewTimeParseError creates a new time parse error with examples.
func NewTimeParseError(field, input, message string, examples ...string) *TimeParseError {
	return &TimeParseError{
		Input:    input,
		Field:    field,
		Message:  message,
		Examples: examples,
	}
}

// FormatWithExamples returns the error message with example suggestions.
func (e *TimeParseError) FormatWithExamples() string {
	var sb strings.Builder
	sb.WriteString(e.Error())

	if len(e.Examples) > 0 {
		sb.WriteString("\n\nValid examples:\n")
		for _, ex := range e.Examples {
			sb.WriteString("  - ")
			sb.WriteString(ex)
			sb.WriteString("\n")
		}
	}

	if e.Suggestion != "" {
		sb.WriteString("\n")
		sb.WriteString(e.Suggestion)
	}

	return sb.String()
}

// DurationExamples provides example duration formats.
var DurationExamples = []string{
	"25",
	"25m",
	"1h30m",
	"90 minutes",
}

// EventTimeExamples provides example event time formats.
var EventTimeExamples = []string{
	"2024-08-23 14:30",
	"tomorrow at 3pm",
	"friday 5pm",
	"in 20 minutes",
	"+1h",
}

// NewDurationError creates a duration parse error with standard examples.
func NewDurationError(input string) *TimeParseError {
	return &TimeParseError{
		Input:      input,
		Field:      "duration",
		Message:    "could not parse duration",
		Examples:   DurationExamples,
		Suggestion: "Durations can be specified as minutes (25), or with units like 1h30m.",
	}
}

// NewEventTimeError creates an event time parse error with standard examples.
func NewEventTimeError(input string, cause error) *TimeParseError {
	return &TimeParseError{
		Input:      input,
		Field:      "time",
		Message:    "could not parse time",
		Examples:   EventTimeExamples,
		Suggestion: "Please use a format like '2024-08-23 14:30'.",
		Cause:      cause,
	}
}

// ToValidationError converts a TimeParseError to a ValidationError so the
// command layer reports it like any other bad input.
func (e *TimeParseError) ToValidationError() *errors.ValidationError {
	suggestion := e.Suggestion
	if len(e.Examples) > 0 && suggestion == "" {
		suggestion = fmt.Sprintf("Try: %s", strings.Join(e.Examples[:min(3, len(e.Examples))], ", "))
	}

	cause := error(errors.ErrInvalidTimestamp)
	if e.Field == "duration" {
		cause = e
	}
	return errors.NewValidationErrorWithValue(e.Field, e.Input, e.Message, suggestion, cause)
}
