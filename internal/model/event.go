package model

import (
	"fmt"
	"strings"
	"time"
)

// Event is a time-stamped item that triggers a single reminder shortly
// before it fires.
//
// Notified only ever moves from false to true, and only the scheduler
// moves it.
type Event struct {
	ID         string    `json:"id"`
	Owner      string    `json:"owner"`
	Title      string    `json:"title"`
	FireAt     time.Time `json:"fire_at"`
	Notified   bool      `json:"notified"`
	NotifiedAt time.Time `json:"notified_at,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// SetKey sets the database key for this event.
func (e *Event) SetKey(key string) {
	e.ID = strings.TrimPrefix(key, PrefixEvent+":")
}

// GetKey returns the database key for this event.
func (e *Event) GetKey() string {
	return GenerateEventKey(e.ID)
}

// ShortID returns the leading characters of the id for display.
func (e *Event) ShortID() string {
	return shortID(e.ID)
}

// OwnedBy reports whether owner may read or mutate the event.
func (e *Event) OwnedBy(owner string) bool {
	return e.Owner == owner
}

// WindowStart returns the instant the reminder window opens.
func (e *Event) WindowStart(lead time.Duration) time.Time {
	return e.FireAt.Add(-lead)
}

// IsDue reports whether now falls inside [FireAt-lead, FireAt].
// Both bounds are inclusive. An event observed after FireAt is never due.
func (e *Event) IsDue(now time.Time, lead time.Duration) bool {
	if e.Notified {
		return false
	}
	return !now.Before(e.WindowStart(lead)) && !now.After(e.FireAt)
}

// GenerateEventKey generates a database key for an event id.
func GenerateEventKey(id string) string {
	return fmt.Sprintf("%s:%s", PrefixEvent, id)
}

// NewEvent creates an event that has not been notified yet.
// fireAt is normalised to UTC.
func NewEvent(owner, title string, fireAt time.Time) *Event {
	return &Event{
		Owner:     owner,
		Title:     title,
		FireAt:    fireAt.UTC(),
		CreatedAt: time.Now().UTC(),
	}
}
