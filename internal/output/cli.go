package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/manav03panchal/remindbot/internal/model"
	"github.com/manav03panchal/remindbot/internal/validate"
)

// MaxCellWidth truncates free-text table cells.
const MaxCellWidth = 48

// Styles for CLI output.
var (
	colorPrimary = lipgloss.Color("#7C3AED") // Purple
	colorMuted   = lipgloss.Color("#6B7280") // Gray
	colorWarning = lipgloss.Color("#F59E0B") // Yellow
	colorError   = lipgloss.Color("#EF4444") // Red
	colorSuccess = lipgloss.Color("#10B981") // Green

	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess)
	styleWarning = lipgloss.NewStyle().Foreground(colorWarning)
	styleError   = lipgloss.NewStyle().Foreground(colorError)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)
	styleBold    = lipgloss.NewStyle().Bold(true)
	styleID      = lipgloss.NewStyle().Foreground(colorPrimary)
)

// CLIFormatter provides CLI-specific formatting.
type CLIFormatter struct {
	*Formatter
}

// NewCLIFormatter creates a new CLI formatter.
func NewCLIFormatter(f *Formatter) *CLIFormatter {
	return &CLIFormatter{Formatter: f}
}

func (c *CLIFormatter) render(style lipgloss.Style, text string) string {
	if c.IsColorEnabled() {
		return style.Render(text)
	}
	return text
}

// Title prints a title.
func (c *CLIFormatter) Title(text string) {
	c.Println(c.render(styleTitle, text))
}

// Success prints a success message.
func (c *CLIFormatter) Success(text string) {
	c.Println(c.render(styleSuccess, "✓ "+text))
}

// Warning prints a warning message.
func (c *CLIFormatter) Warning(text string) {
	c.Println(c.render(styleWarning, "⚠ "+text))
}

// Error prints an error message.
func (c *CLIFormatter) Error(text string) {
	c.Println(c.render(styleError, "✗ "+text))
}

// Muted prints muted text.
func (c *CLIFormatter) Muted(text string) {
	c.Println(c.render(styleMuted, text))
}

// ID formats a short id.
func (c *CLIFormatter) ID(id string) string {
	return c.render(styleID, id)
}

// PrintTaskAdded confirms a new task.
func (c *CLIFormatter) PrintTaskAdded(t *model.Task) {
	c.Success(fmt.Sprintf("Task %q added!", t.Description))
	c.Printf("  ID: %s\n", c.ID(t.ShortID()))
}

// PrintTasks lists open tasks.
func (c *CLIFormatter) PrintTasks(tasks []*model.Task) {
	if len(tasks) == 0 {
		c.Muted("You have no tasks!")
		return
	}
	c.Title("Your tasks:")
	rows := make([]TableRow, len(tasks))
	for i, t := range tasks {
		rows[i] = TableRow{Columns: []string{t.ShortID(), cell(t.Description), c.FormatTime(t.CreatedAt)}}
	}
	c.PrintTable([]string{"ID", "TASK", "ADDED"}, rows)
}

// PrintEventAdded confirms a scheduled event.
func (c *CLIFormatter) PrintEventAdded(e *model.Event, now time.Time) {
	c.Success(fmt.Sprintf("Event %q scheduled for %s.", e.Title, c.FormatTime(e.FireAt)))
	c.Printf("  ID: %s\n", c.ID(e.ShortID()))
	c.Printf("  Starts %s\n", FormatUntil(e.FireAt, now))
}

// PrintEvents lists upcoming events.
func (c *CLIFormatter) PrintEvents(events []*model.Event, now time.Time) {
	if len(events) == 0 {
		c.Muted("You have no upcoming events!")
		return
	}
	c.Title("Your upcoming events:")
	rows := make([]TableRow, len(events))
	for i, e := range events {
		rows[i] = TableRow{Columns: []string{e.ShortID(), cell(e.Title), c.FormatTime(e.FireAt), FormatUntil(e.FireAt, now)}}
	}
	c.PrintTable([]string{"ID", "EVENT", "STARTS", "WHEN"}, rows)
}

// TableRow is one row of PrintTable.
type TableRow struct {
	Columns []string
}

// PrintTable prints a simple aligned table.
func (c *CLIFormatter) PrintTable(headers []string, rows []TableRow) {
	if len(rows) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, col := range row.Columns {
			if i < len(widths) && lipgloss.Width(col) > widths[i] {
				widths[i] = lipgloss.Width(col)
			}
		}
	}

	var header strings.Builder
	for i, h := range headers {
		header.WriteString(pad(h, widths[i]))
	}
	c.Println(strings.TrimRight(c.render(styleBold, header.String()), " "))

	var sep strings.Builder
	for _, w := range widths {
		sep.WriteString(strings.Repeat("─", w) + "  ")
	}
	c.Println(strings.TrimRight(sep.String(), " "))

	for _, row := range rows {
		var line strings.Builder
		for i, col := range row.Columns {
			if i < len(widths) {
				line.WriteString(pad(col, widths[i]))
			}
		}
		c.Println(strings.TrimRight(line.String(), " "))
	}
}

func pad(s string, width int) string {
	return s + strings.Repeat(" ", width-lipgloss.Width(s)+2)
}

// cell fits free text into one table cell.
func cell(s string) string {
	return validate.TruncateString(validate.SingleLine(s), MaxCellWidth)
}
