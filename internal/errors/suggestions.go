package errors

import "errors"

// Suggestions maps common errors to helpful suggestions.
var Suggestions = map[error]string{
	ErrEmptyText:           "Provide a description or title after the command.",
	ErrTextTooLong:         "Shorten the text and try again.",
	ErrEmptyOwner:          "Pass --owner or set REMINDBOT_OWNER.",
	ErrInvalidTimestamp:    "Please use a format like '2024-08-23 14:30', 'tomorrow at 3pm' or 'in 20 minutes'.",
	ErrStoreClosed:         "The database was closed. Restart the command.",
	ErrNotifierUnavailable: "Check the notifier settings in your config file.",
}

// GetSuggestion returns a suggestion for an error, if available.
// It walks the error chain to find matching suggestions.
func GetSuggestion(err error) string {
	if err == nil {
		return ""
	}

	if ve, ok := AsValidationError(err); ok && ve.Suggestion != "" {
		return ve.Suggestion
	}

	for knownErr, suggestion := range Suggestions {
		if errors.Is(err, knownErr) {
			return suggestion
		}
	}

	return ""
}
