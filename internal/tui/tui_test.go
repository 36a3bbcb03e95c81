package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/remindbot/internal/clock"
	"github.com/manav03panchal/remindbot/internal/model"
)

var testNow = time.Date(2024, 8, 23, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	tasks     []*model.Task
	events    []*model.Event
	completed []string
	err       error
}

func (f *fakeSource) ListTasks(ctx context.Context, owner string) ([]*model.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	var open []*model.Task
	for _, t := range f.tasks {
		if !t.Completed {
			open = append(open, t)
		}
	}
	return open, nil
}

func (f *fakeSource) ListEvents(ctx context.Context, owner string) ([]*model.Event, error) {
	return f.events, f.err
}

func (f *fakeSource) CompleteTask(ctx context.Context, owner, ref string) error {
	for _, t := range f.tasks {
		if t.ID == ref {
			t.Completed = true
		}
	}
	f.completed = append(f.completed, ref)
	return nil
}

func newTask(id, desc string) *model.Task {
	t := model.NewTask("alice", desc)
	t.ID = id
	return t
}

func newEvent(id, title string, fireAt time.Time) *model.Event {
	e := model.NewEvent("alice", title, fireAt)
	e.ID = id
	return e
}

func newTestDashboard(src *fakeSource) *DashboardModel {
	m := NewDashboardModel(DashboardConfig{
		Source:   src,
		Owner:    "alice",
		Clock:    clock.NewFake(testNow),
		Location: time.UTC,
		LeadTime: 10 * time.Minute,
	})
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	m.Update(refreshMsg{})
	return m
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// =============================================================================
// ProgressBar Tests
// =============================================================================

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name       string
		percentage float64
		filled     int
	}{
		{"zero", 0, 0},
		{"half", 50, 5},
		{"full", 100, 10},
		{"over", 150, 10},
		{"negative", -10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := ProgressBar(tt.percentage, 10)
			assert.Equal(t, tt.filled, strings.Count(bar, "█"))
			assert.Equal(t, 10-tt.filled, strings.Count(bar, "░"))
		})
	}
}

// =============================================================================
// Component Tests
// =============================================================================

func TestNextEventComponent(t *testing.T) {
	t.Run("no_event", func(t *testing.T) {
		view := NewNextEventComponent(nil, testNow, 10*time.Minute, time.UTC, 80).View()
		assert.Contains(t, view, "No upcoming events")
	})

	t.Run("outside_window", func(t *testing.T) {
		e := newEvent("aaaaaaaa-1", "Team sync", testNow.Add(2*time.Hour+30*time.Minute))
		nc := NewNextEventComponent(e, testNow, 10*time.Minute, time.UTC, 80)

		assert.False(t, nc.InWindow())
		view := nc.View()
		assert.Contains(t, view, "NEXT EVENT")
		assert.Contains(t, view, "Team sync")
		assert.Contains(t, view, "in 2h 30m")
		assert.Contains(t, view, "Starts: 2024-08-23 14:30")
	})

	t.Run("inside_window", func(t *testing.T) {
		e := newEvent("aaaaaaaa-2", "Standup", testNow.Add(5*time.Minute))
		nc := NewNextEventComponent(e, testNow, 10*time.Minute, time.UTC, 80)

		assert.True(t, nc.InWindow())
		assert.InDelta(t, 50, nc.WindowProgress(), 0.001)
		view := nc.View()
		assert.Contains(t, view, "REMINDER DUE")
		assert.Contains(t, view, "in 5m")
	})
}

func TestEventsComponentLimit(t *testing.T) {
	events := []*model.Event{
		newEvent("11111111-a", "One", testNow.Add(time.Hour)),
		newEvent("22222222-b", "Two", testNow.Add(2*time.Hour)),
		newEvent("33333333-c", "Three", testNow.Add(3*time.Hour)),
	}
	view := NewEventsComponent(events, testNow, 80, 2).View()

	assert.Contains(t, view, "One")
	assert.Contains(t, view, "Two")
	assert.NotContains(t, view, "Three")
	assert.Contains(t, view, "11111111")
}

func TestTasksComponent(t *testing.T) {
	assert.Contains(t, NewTasksComponent(nil, 0, 80).View(), "You have no tasks!")

	tasks := []*model.Task{newTask("aaaa1111-x", "Buy milk"), newTask("bbbb2222-y", "Call mom")}
	view := NewTasksComponent(tasks, 1, 80).View()
	assert.Contains(t, view, "  aaaa1111  Buy milk")
	assert.Contains(t, view, "> bbbb2222  Call mom")
}

func TestHelpBar(t *testing.T) {
	help := HelpBar()
	for _, k := range []string{"select", "complete", "refresh", "quit"} {
		assert.Contains(t, help, k)
	}
}

// =============================================================================
// Dashboard Tests
// =============================================================================

func TestDashboardLoadingBeforeSize(t *testing.T) {
	m := NewDashboardModel(DashboardConfig{Source: &fakeSource{}, Owner: "alice"})
	assert.Equal(t, "Loading...", m.View())
	assert.NotNil(t, m.Init())
}

func TestDashboardView(t *testing.T) {
	src := &fakeSource{
		tasks:  []*model.Task{newTask("aaaa1111-x", "Buy milk")},
		events: []*model.Event{newEvent("cccc3333-z", "Team sync", testNow.Add(time.Hour))},
	}
	m := newTestDashboard(src)

	view := m.View()
	assert.Contains(t, view, "Remindbot · alice")
	assert.Contains(t, view, "Fri Aug 23, 12:00:00")
	assert.Contains(t, view, "Team sync")
	assert.Contains(t, view, "Buy milk")
	assert.Contains(t, view, "in 1h")
}

func TestDashboardCursorAndComplete(t *testing.T) {
	src := &fakeSource{tasks: []*model.Task{
		newTask("aaaa1111-x", "Buy milk"),
		newTask("bbbb2222-y", "Call mom"),
	}}
	m := newTestDashboard(src)

	m.Update(key("k"))
	assert.Equal(t, 0, m.cursor)

	m.Update(key("j"))
	m.Update(key("j"))
	assert.Equal(t, 1, m.cursor)

	m.Update(key("x"))
	assert.Equal(t, []string{"bbbb2222-y"}, src.completed)
	assert.Len(t, m.tasks, 1)
	assert.Equal(t, 0, m.cursor)
	assert.Contains(t, m.View(), "Task bbbb2222 marked as completed!")
}

func TestDashboardCompleteWithoutTasks(t *testing.T) {
	src := &fakeSource{}
	m := newTestDashboard(src)

	m.Update(key("x"))
	assert.Empty(t, src.completed)
	assert.Contains(t, m.View(), "No task selected")
}

func TestDashboardSourceError(t *testing.T) {
	src := &fakeSource{err: errors.New("store is closed")}
	m := newTestDashboard(src)

	assert.Contains(t, m.View(), "Error: store is closed")

	src.err = nil
	m.Update(key("r"))
	assert.NotContains(t, m.View(), "Error:")
	assert.Contains(t, m.View(), "Refreshed")
}

func TestDashboardTickReloads(t *testing.T) {
	src := &fakeSource{}
	m := newTestDashboard(src)
	fake := m.clock.(*clock.Fake)

	src.events = []*model.Event{newEvent("cccc3333-z", "Retro", testNow.Add(2*time.Hour))}
	fake.Advance(time.Second)
	_, cmd := m.Update(tickMsg(fake.Now()))
	require.NotNil(t, cmd)
	assert.Empty(t, m.events)

	fake.Advance(30 * time.Second)
	m.Update(tickMsg(fake.Now()))
	require.Len(t, m.events, 1)
	assert.Contains(t, m.View(), "Retro")
}

func TestDashboardQuit(t *testing.T) {
	m := newTestDashboard(&fakeSource{})

	for _, msg := range []tea.KeyMsg{key("q"), {Type: tea.KeyCtrlC}} {
		_, cmd := m.Update(msg)
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}
}
