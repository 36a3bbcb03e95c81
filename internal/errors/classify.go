package errors

import (
	"context"
	"errors"
)

// Category represents the type of error for display and handling purposes.
type Category int

const (
	// CategoryUnknown is the default for unclassified errors.
	CategoryUnknown Category = iota
	// CategoryValidation indicates bad input the caller can fix.
	CategoryValidation
	// CategoryStore indicates the durability layer failed.
	CategoryStore
	// CategoryDelivery indicates the notifier failed.
	CategoryDelivery
	// CategoryCanceled indicates the operation was interrupted by shutdown.
	CategoryCanceled
)

// String returns the string representation of the category.
func (c Category) String() string {
	switch c {
	case CategoryValidation:
		return "validation"
	case CategoryStore:
		return "store"
	case CategoryDelivery:
		return "delivery"
	case CategoryCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Classify determines the category of an error.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	switch {
	case IsValidationError(err):
		return CategoryValidation
	case IsDeliveryError(err):
		return CategoryDelivery
	case IsStoreError(err):
		return CategoryStore
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CategoryCanceled
	}

	if errors.Is(err, ErrStoreClosed) {
		return CategoryStore
	}
	if errors.Is(err, ErrNotifierUnavailable) || errors.Is(err, ErrUnknownRecipient) {
		return CategoryDelivery
	}

	return CategoryUnknown
}

// FormatByCategory returns a user-appropriate error message based on category.
func FormatByCategory(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()

	switch Classify(err) {
	case CategoryValidation:
		if suggestion := GetSuggestion(err); suggestion != "" {
			return msg + "\n\nTry: " + suggestion
		}
		return msg

	case CategoryStore:
		if suggestion := GetSuggestion(err); suggestion != "" {
			return "Storage error: " + msg + "\n\n" + suggestion
		}
		return "Storage error: " + msg

	case CategoryDelivery:
		return "Delivery failed: " + msg

	default:
		return msg
	}
}
