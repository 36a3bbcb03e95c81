// Package errors provides the error taxonomy for remindbot.
// It defines three categories: ValidationError (bad input, shown to the
// user), StoreError (durability layer unavailable) and DeliveryError
// (the notification channel refused or failed a reminder).
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for common conditions.
var (
	ErrEmptyText           = errors.New("text cannot be empty")
	ErrTextTooLong         = errors.New("text too long")
	ErrEmptyOwner          = errors.New("owner is required")
	ErrInvalidTimestamp    = errors.New("invalid timestamp")
	ErrStoreClosed         = errors.New("store is closed")
	ErrNotifierUnavailable = errors.New("notifier unavailable")
	ErrUnknownRecipient    = errors.New("unknown recipient")
)

// ValidationError represents bad input that the caller can fix.
// The store is never touched when one is returned.
type ValidationError struct {
	Field      string // The field/input that caused the error
	Value      string // The invalid value (optional)
	Message    string // What happened
	Suggestion string // How to fix it
	Cause      error  // Sentinel or parser error (optional)
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: '%s'", e.Message, e.Value)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message, suggestion string, cause error) *ValidationError {
	return &ValidationError{
		Field:      field,
		Message:    message,
		Suggestion: suggestion,
		Cause:      cause,
	}
}

// NewValidationErrorWithValue creates a ValidationError that echoes the
// offending input.
func NewValidationErrorWithValue(field, value, message, suggestion string, cause error) *ValidationError {
	return &ValidationError{
		Field:      field,
		Value:      value,
		Message:    message,
		Suggestion: suggestion,
		Cause:      cause,
	}
}

// StoreError represents a failure of the durability layer.
type StoreError struct {
	Op    string // The store operation that failed
	Cause error  // The underlying error
}

func (e *StoreError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("store: %s failed", e.Op)
	}
	return fmt.Sprintf("store: %s: %v", e.Op, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// NewStoreError wraps cause as a StoreError. A nil cause yields nil.
func NewStoreError(op string, cause error) error {
	if cause == nil {
		return nil
	}
	var se *StoreError
	if errors.As(cause, &se) {
		return cause
	}
	return &StoreError{Op: op, Cause: cause}
}

// DeliveryError represents a notifier failure. Delivery is never retried
// by the scheduler.
type DeliveryError struct {
	Channel string // Notifier channel name, e.g. "webhook"
	Owner   string // Intended recipient
	Cause   error  // The underlying error
}

func (e *DeliveryError) Error() string {
	if e.Owner != "" {
		return fmt.Sprintf("deliver via %s to %s: %v", e.Channel, e.Owner, e.Cause)
	}
	return fmt.Sprintf("deliver via %s: %v", e.Channel, e.Cause)
}

func (e *DeliveryError) Unwrap() error {
	return e.Cause
}

// NewDeliveryError creates a new DeliveryError.
func NewDeliveryError(channel, owner string, cause error) *DeliveryError {
	return &DeliveryError{
		Channel: channel,
		Owner:   owner,
		Cause:   cause,
	}
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStoreError checks if an error is a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// IsDeliveryError checks if an error is a DeliveryError.
func IsDeliveryError(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de)
}

// AsValidationError extracts a ValidationError from an error chain.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

// Is is re-exported from the standard errors package for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is re-exported from the standard errors package for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

