package model

import (
	"fmt"
	"time"
)

// ReminderLayout is the layout used when a fire time is shown to a user.
const ReminderLayout = "2006-01-02 15:04"

// Notification is a reminder rendered for delivery over a chat channel.
type Notification struct {
	Owner     string            `json:"owner"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	FireAt    time.Time         `json:"fire_at"`
	Timestamp time.Time         `json:"timestamp"`
	Color     int               `json:"color,omitempty"`
}

// Notification colors (Discord-compatible hex values).
const (
	ColorWarning = 0xFEE75C // Yellow
	ColorInfo    = 0x5865F2 // Blurple
)

// NewReminderNotification builds the reminder for an event title and fire
// time. The fire time is rendered in loc; a nil loc means UTC.
func NewReminderNotification(owner, title string, fireAt time.Time, loc *time.Location) *Notification {
	if loc == nil {
		loc = time.UTC
	}
	when := fireAt.In(loc).Format(ReminderLayout)
	return &Notification{
		Owner:     owner,
		Title:     fmt.Sprintf("Reminder: %s", title),
		Message:   fmt.Sprintf("Reminder: Your event '%s' is starting at %s!", title, when),
		Fields:    map[string]string{"Starts": when},
		FireAt:    fireAt.UTC(),
		Timestamp: time.Now().UTC(),
		Color:     ColorWarning,
	}
}

// StartsIn describes how far the event is from the moment the reminder was
// built, rounded to the minute.
func (n *Notification) StartsIn() string {
	d := n.FireAt.Sub(n.Timestamp).Round(time.Minute)
	switch {
	case d <= 0:
		return "Starting now"
	case d < time.Hour:
		return fmt.Sprintf("Starts in %d min", int(d.Minutes()))
	case d%time.Hour == 0:
		return fmt.Sprintf("Starts in %dh", int(d.Hours()))
	default:
		return fmt.Sprintf("Starts in %dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// StartsInSeconds is the lead of the reminder, never negative.
func (n *Notification) StartsInSeconds() int64 {
	d := n.FireAt.Sub(n.Timestamp)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}

