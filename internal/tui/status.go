package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/manav03panchal/remindbot/internal/model"
	"github.com/manav03panchal/remindbot/internal/output"
)

// NextEventComponent shows the soonest event and how close its reminder is.
type NextEventComponent struct {
	Event    *model.Event
	Now      time.Time
	Lead     time.Duration
	Location *time.Location
	Width    int
}

// NewNextEventComponent creates a new next-event component.
func NewNextEventComponent(event *model.Event, now time.Time, lead time.Duration, loc *time.Location, width int) *NextEventComponent {
	if loc == nil {
		loc = time.Local
	}
	return &NextEventComponent{Event: event, Now: now, Lead: lead, Location: loc, Width: width}
}

// InWindow reports whether the reminder window has opened.
func (nc *NextEventComponent) InWindow() bool {
	return nc.Event != nil && nc.Event.IsDue(nc.Now, nc.Lead)
}

// WindowProgress returns how far into the lead window now is, 0 to 100.
func (nc *NextEventComponent) WindowProgress() float64 {
	if nc.Event == nil || nc.Lead <= 0 {
		return 0
	}
	elapsed := nc.Now.Sub(nc.Event.WindowStart(nc.Lead))
	return float64(elapsed) / float64(nc.Lead) * 100
}

// View renders the next-event component.
func (nc *NextEventComponent) View() string {
	var content strings.Builder

	if nc.Event == nil {
		content.WriteString(StyleMuted.Render("No upcoming events"))
		content.WriteString("\n\n")
		content.WriteString(StyleSubtitle.Render("Add one with: remindbot event add <title> <when>"))
		return StyleNextBox.Width(nc.Width - 4).Render(content.String())
	}

	label := "○ NEXT EVENT"
	if nc.InWindow() {
		label = "● REMINDER DUE"
	}
	content.WriteString(StyleWarning.Render(label))
	content.WriteString("\n\n")
	content.WriteString(StyleEvent.Render(nc.Event.Title))
	content.WriteString("\n\n")
	content.WriteString(StyleCountdown.Render(output.FormatUntil(nc.Event.FireAt, nc.Now)))
	content.WriteString("\n")
	content.WriteString(StyleSubtitle.Render(fmt.Sprintf("Starts: %s",
		nc.Event.FireAt.In(nc.Location).Format(model.ReminderLayout))))

	if !nc.InWindow() {
		return StyleNextBox.Width(nc.Width - 4).Render(content.String())
	}

	barWidth := nc.Width - 12
	if barWidth < 10 {
		barWidth = 10
	}
	content.WriteString("\n\n")
	content.WriteString(ProgressBar(nc.WindowProgress(), barWidth))
	return StyleDueBox.Width(nc.Width - 4).Render(content.String())
}

// EventsComponent lists upcoming events.
type EventsComponent struct {
	Events []*model.Event
	Now    time.Time
	Width  int
	Limit  int
}

// NewEventsComponent creates a new events component.
func NewEventsComponent(events []*model.Event, now time.Time, width, limit int) *EventsComponent {
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return &EventsComponent{Events: events, Now: now, Width: width, Limit: limit}
}

// View renders the events component.
func (ec *EventsComponent) View() string {
	var content strings.Builder

	content.WriteString(StyleTitle.Render("Upcoming Events"))
	content.WriteString("\n")

	if len(ec.Events) == 0 {
		content.WriteString(StyleMuted.Render("Nothing scheduled"))
	}
	for i, e := range ec.Events {
		if i > 0 {
			content.WriteString("\n")
		}
		content.WriteString(StyleSubtitle.Render(e.ShortID()))
		content.WriteString("  ")
		content.WriteString(StyleEvent.Render(e.Title))
		content.WriteString("  ")
		content.WriteString(StyleCountdown.Render(output.FormatUntil(e.FireAt, ec.Now)))
	}

	return StyleListBox.Width(ec.Width - 4).Render(content.String())
}

// TasksComponent lists open tasks with a selection cursor.
type TasksComponent struct {
	Tasks  []*model.Task
	Cursor int
	Width  int
}

// NewTasksComponent creates a new tasks component.
func NewTasksComponent(tasks []*model.Task, cursor, width int) *TasksComponent {
	return &TasksComponent{Tasks: tasks, Cursor: cursor, Width: width}
}

// View renders the tasks component.
func (tc *TasksComponent) View() string {
	var content strings.Builder

	content.WriteString(StyleTitle.Render("Tasks"))
	content.WriteString("\n")

	if len(tc.Tasks) == 0 {
		content.WriteString(StyleMuted.Render("You have no tasks!"))
	}
	for i, t := range tc.Tasks {
		if i > 0 {
			content.WriteString("\n")
		}
		line := t.ShortID() + "  " + t.Description
		if i == tc.Cursor {
			content.WriteString(StyleSelected.Render("> " + line))
		} else {
			content.WriteString("  " + StyleTask.Render(line))
		}
	}

	return StyleListBox.Width(tc.Width - 4).Render(content.String())
}

// HelpBar renders the help bar at the bottom.
func HelpBar() string {
	keys := []struct {
		key  string
		desc string
	}{
		{"j/k", "select"},
		{"x", "complete"},
		{"r", "refresh"},
		{"q", "quit"},
	}

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, StyleHelpKey.Render(k.key)+" "+StyleHelpDesc.Render(k.desc))
	}

	return StyleHelp.Render(strings.Join(parts, "  •  "))
}

// joinSections stacks rendered sections vertically.
func joinSections(sections []string) string {
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
