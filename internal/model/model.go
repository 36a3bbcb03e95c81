// Package model defines the domain models for remindbot.
package model

// Model is the interface that all stored models must implement.
type Model interface {
	// SetKey sets the database key for this model.
	SetKey(key string)
	// GetKey returns the database key for this model.
	GetKey() string
}

// KeyPrefix constants for database key generation.
const (
	PrefixTask  = "task"
	PrefixEvent = "event"
)

// ShortIDLength is the number of id characters shown in listings.
const ShortIDLength = 8

// shortID truncates an id for display.
func shortID(id string) string {
	if len(id) > ShortIDLength {
		return id[:ShortIDLength]
	}
	return id
}
