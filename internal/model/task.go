package model

import (
	"fmt"
	"strings"
	"time"
)

// Task is a personal to-do item scoped to its owner.
type Task struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
}

// SetKey sets the database key for this task.
func (t *Task) SetKey(key string) {
	t.ID = strings.TrimPrefix(key, PrefixTask+":")
}

// GetKey returns the database key for this task.
func (t *Task) GetKey() string {
	return GenerateTaskKey(t.ID)
}

// ShortID returns the leading characters of the id for display.
func (t *Task) ShortID() string {
	return shortID(t.ID)
}

// OwnedBy reports whether owner may read or mutate the task.
func (t *Task) OwnedBy(owner string) bool {
	return t.Owner == owner
}

// GenerateTaskKey generates a database key for a task id.
func GenerateTaskKey(id string) string {
	return fmt.Sprintf("%s:%s", PrefixTask, id)
}

// NewTask creates an open task.
func NewTask(owner, description string) *Task {
	return &Task{
		Owner:       owner,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
}
