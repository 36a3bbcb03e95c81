package output

import (
	"time"

	"github.com/manav03panchal/remindbot/internal/model"
)

// JSONFormatter provides JSON-specific formatting.
type JSONFormatter struct {
	*Formatter
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(f *Formatter) *JSONFormatter {
	return &JSONFormatter{Formatter: f}
}

// TaskOutput represents a task in JSON output.
type TaskOutput struct {
	ID          string `json:"id"`
	Owner       string `json:"owner"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	CreatedAt   string `json:"created_at"`
}

// NewTaskOutput creates a TaskOutput from a Task.
func NewTaskOutput(t *model.Task) *TaskOutput {
	return &TaskOutput{
		ID:          t.ID,
		Owner:       t.Owner,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// EventOutput represents an event in JSON output.
type EventOutput struct {
	ID       string `json:"id"`
	Owner    string `json:"owner"`
	Title    string `json:"title"`
	FireAt   string `json:"fire_at"`
	Notified bool   `json:"notified"`
}

// NewEventOutput creates an EventOutput from an Event.
func NewEventOutput(e *model.Event) *EventOutput {
	return &EventOutput{
		ID:       e.ID,
		Owner:    e.Owner,
		Title:    e.Title,
		FireAt:   e.FireAt.UTC().Format(time.RFC3339),
		Notified: e.Notified,
	}
}

// TasksResponse represents the task list output in JSON.
type TasksResponse struct {
	Tasks []*TaskOutput `json:"tasks"`
	Count int           `json:"count"`
}

// EventsResponse represents the event list output in JSON.
type EventsResponse struct {
	Events []*EventOutput `json:"events"`
	Count  int            `json:"count"`
}

// ActionResponse reports a mutation. Ref echoes what the caller passed;
// mutations on unknown ids still succeed.
type ActionResponse struct {
	Status string `json:"status"`
	Action string `json:"action"`
	Ref    string `json:"ref"`
}

// ErrorResponse represents an error in JSON.
type ErrorResponse struct {
	Status     string `json:"status"`
	Category   string `json:"category"`
	Error      string `json:"error"`
	Suggestion string `json:"suggestion,omitempty"`
}

// PrintTask writes one task.
func (j *JSONFormatter) PrintTask(t *model.Task) error {
	return j.JSON(NewTaskOutput(t))
}

// PrintTasks writes a task list.
func (j *JSONFormatter) PrintTasks(tasks []*model.Task) error {
	out := make([]*TaskOutput, len(tasks))
	for i, t := range tasks {
		out[i] = NewTaskOutput(t)
	}
	return j.JSON(&TasksResponse{Tasks: out, Count: len(out)})
}

// PrintEvent writes one event.
func (j *JSONFormatter) PrintEvent(e *model.Event) error {
	return j.JSON(NewEventOutput(e))
}

// PrintEvents writes an event list.
func (j *JSONFormatter) PrintEvents(events []*model.Event) error {
	out := make([]*EventOutput, len(events))
	for i, e := range events {
		out[i] = NewEventOutput(e)
	}
	return j.JSON(&EventsResponse{Events: out, Count: len(out)})
}

// PrintAction writes the result of a complete or remove.
func (j *JSONFormatter) PrintAction(action, ref string) error {
	return j.JSON(&ActionResponse{Status: "ok", Action: action, Ref: ref})
}
