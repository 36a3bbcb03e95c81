package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/manav03panchal/remindbot/internal/clock"
	"github.com/manav03panchal/remindbot/internal/model"
)

// Source supplies the dashboard's data. *service.Service satisfies it.
type Source interface {
	ListTasks(ctx context.Context, owner string) ([]*model.Task, error)
	ListEvents(ctx context.Context, owner string) ([]*model.Event, error)
	CompleteTask(ctx context.Context, owner, ref string) error
}

// tickMsg is sent once a second.
type tickMsg time.Time

// refreshMsg asks the model to reload from the source.
type refreshMsg struct{}

// DashboardModel is the main bubbletea model for the dashboard.
type DashboardModel struct {
	source   Source
	owner    string
	clock    clock.Clock
	location *time.Location
	lead     time.Duration

	tasks    []*model.Task
	events   []*model.Event
	loadedAt time.Time
	cursor   int

	// UI state
	now        time.Time
	width      int
	height     int
	err        error
	message    string
	messageExp time.Time

	refreshInterval time.Duration
	maxEvents       int
}

// DashboardConfig holds configuration for the dashboard.
type DashboardConfig struct {
	Source   Source
	Owner    string
	Clock    clock.Clock
	Location *time.Location
	// LeadTime is the reminder window, used to highlight due events.
	LeadTime time.Duration
	// RefreshInterval is how often data is reloaded. Default: 30s
	RefreshInterval time.Duration
	// MaxEvents caps the event list. Default: 5
	MaxEvents int
}

// NewDashboardModel creates a new dashboard model.
func NewDashboardModel(config DashboardConfig) *DashboardModel {
	if config.Clock == nil {
		config.Clock = clock.Real{}
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.RefreshInterval == 0 {
		config.RefreshInterval = 30 * time.Second
	}
	if config.MaxEvents == 0 {
		config.MaxEvents = 5
	}

	return &DashboardModel{
		source:          config.Source,
		owner:           config.Owner,
		clock:           config.Clock,
		location:        config.Location,
		lead:            config.LeadTime,
		now:             config.Clock.Now(),
		refreshInterval: config.RefreshInterval,
		maxEvents:       config.MaxEvents,
	}
}

// Init initializes the model.
func (m *DashboardModel) Init() tea.Cmd {
	return tea.Batch(tickCmd(), refreshCmd())
}

// Update handles messages and updates the model.
func (m *DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		m.now = m.clock.Now()
		if !m.messageExp.IsZero() && m.now.After(m.messageExp) {
			m.message = ""
			m.messageExp = time.Time{}
		}
		if m.now.Sub(m.loadedAt) >= m.refreshInterval {
			m.loadData()
		}
		return m, tickCmd()

	case refreshMsg:
		m.loadData()
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input.
func (m *DashboardModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit

	case "j", "down":
		if m.cursor < len(m.tasks)-1 {
			m.cursor++
		}

	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}

	case "x", "enter":
		m.completeSelected()

	case "r":
		m.loadData()
		m.setMessage("Refreshed", time.Second)
	}

	return m, nil
}

// completeSelected marks the task under the cursor completed.
func (m *DashboardModel) completeSelected() {
	if len(m.tasks) == 0 {
		m.setMessage("No task selected", 2*time.Second)
		return
	}
	task := m.tasks[m.cursor]
	if err := m.source.CompleteTask(context.Background(), m.owner, task.ID); err != nil {
		m.err = err
		return
	}
	m.setMessage(fmt.Sprintf("Task %s marked as completed!", task.ShortID()), 2*time.Second)
	m.loadData()
}

// View renders the dashboard.
func (m *DashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	sections := []string{m.renderHeader()}

	if m.err != nil {
		sections = append(sections, StyleError.Render(fmt.Sprintf("Error: %v", m.err)))
	}
	if m.message != "" {
		sections = append(sections, StyleWarning.Render(m.message))
	}

	var next *model.Event
	if len(m.events) > 0 {
		next = m.events[0]
	}
	sections = append(sections,
		NewNextEventComponent(next, m.now, m.lead, m.location, m.width).View(),
		NewEventsComponent(m.events, m.now, m.width, m.maxEvents).View(),
		NewTasksComponent(m.tasks, m.cursor, m.width).View(),
		HelpBar(),
	)

	return joinSections(sections)
}

// renderHeader renders the dashboard header.
func (m *DashboardModel) renderHeader() string {
	title := StyleTitle.Render("Remindbot · " + m.owner)
	timeStr := StyleSubtitle.Render(m.now.In(m.location).Format("Mon Jan 2, 15:04:05"))
	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", timeStr) + "\n"
}

// loadData reloads tasks and events from the source.
func (m *DashboardModel) loadData() {
	ctx := context.Background()
	m.loadedAt = m.clock.Now()

	tasks, err := m.source.ListTasks(ctx, m.owner)
	if err != nil {
		m.err = err
		return
	}
	events, err := m.source.ListEvents(ctx, m.owner)
	if err != nil {
		m.err = err
		return
	}

	m.tasks = tasks
	m.events = events
	if m.cursor >= len(m.tasks) {
		m.cursor = max(len(m.tasks)-1, 0)
	}
	m.err = nil
}

// setMessage sets a temporary message.
func (m *DashboardModel) setMessage(msg string, duration time.Duration) {
	m.message = msg
	m.messageExp = m.clock.Now().Add(duration)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func refreshCmd() tea.Cmd {
	return func() tea.Msg {
		return refreshMsg{}
	}
}

// Run starts the dashboard TUI.
func Run(config DashboardConfig) error {
	p := tea.NewProgram(NewDashboardModel(config), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
