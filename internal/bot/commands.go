// Package bot exposes the task, event and Pomodoro commands over Telegram.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/manav03panchal/remindbot/internal/errors"
	"github.com/manav03panchal/remindbot/internal/logging"
	"github.com/manav03panchal/remindbot/internal/model"
	"github.com/manav03panchal/remindbot/internal/parser"
	"github.com/manav03panchal/remindbot/internal/service"
	"github.com/manav03panchal/remindbot/internal/timer"
)

// Replies shared by several commands.
const (
	replyInvalidDate = "Invalid date format. Please use a format like '2024-08-23 14:30'."
	replyStoreDown   = "Something went wrong saving that. Please try again later."
	replyBreak       = "Time to take a break!"
	replyBackToWork  = "Break over, back to work!"
)

// HelpText lists the supported commands.
const HelpText = `Commands:
/add_task <text> - add a task
/list_tasks - list your open tasks
/complete_task <id> - mark a task as completed
/remove_task <id> - remove a task
/add_event <title> <when> - schedule an event (quote multi-word titles)
/list_events - list your upcoming events
/remove_event <id> - remove an event
/pomodoro [work] [break] - start a Pomodoro (minutes, default 25 5)
/stop_pomodoro - cancel your Pomodoro`

// Commands turns chat commands into service calls and reply text. It knows
// nothing about Telegram.
type Commands struct {
	svc    *service.Service
	timers *timer.Manager
	logger *slog.Logger
}

// NewCommands creates the command handlers.
func NewCommands(svc *service.Service, timers *timer.Manager, logger *slog.Logger) *Commands {
	if logger == nil {
		logger = logging.Logger()
	}
	if timers == nil {
		timers = timer.NewManager(logger)
	}
	return &Commands{svc: svc, timers: timers, logger: logger}
}

// Timers returns the Pomodoro manager.
func (c *Commands) Timers() *timer.Manager {
	return c.timers
}

// AddTask handles /add_task.
func (c *Commands) AddTask(ctx context.Context, owner, text string) string {
	task, err := c.svc.AddTask(ctx, owner, text)
	if err != nil {
		return c.failure(ctx, "add_task", err)
	}
	return fmt.Sprintf("Task %q added!", task.Description)
}

// ListTasks handles /list_tasks.
func (c *Commands) ListTasks(ctx context.Context, owner string) string {
	tasks, err := c.svc.ListTasks(ctx, owner)
	if err != nil {
		return c.failure(ctx, "list_tasks", err)
	}
	if len(tasks) == 0 {
		return "You have no tasks!"
	}

	var sb strings.Builder
	sb.WriteString("Your tasks:\n")
	for _, t := range tasks {
		fmt.Fprintf(&sb, "%s. %s\n", t.ShortID(), t.Description)
	}
	return sb.String()
}

// CompleteTask handles /complete_task. It acknowledges even when nothing
// matched.
func (c *Commands) CompleteTask(ctx context.Context, owner, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "Usage: /complete_task <id>"
	}
	if err := c.svc.CompleteTask(ctx, owner, ref); err != nil {
		return c.failure(ctx, "complete_task", err)
	}
	return fmt.Sprintf("Task %s marked as completed!", ref)
}

// RemoveTask handles /remove_task.
func (c *Commands) RemoveTask(ctx context.Context, owner, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "Usage: /remove_task <id>"
	}
	if err := c.svc.RemoveTask(ctx, owner, ref); err != nil {
		return c.failure(ctx, "remove_task", err)
	}
	return fmt.Sprintf("Task %s removed!", ref)
}

// AddEvent handles /add_event. payload is `<title> <when>`; a title with
// spaces must be quoted.
func (c *Commands) AddEvent(ctx context.Context, owner, payload string) string {
	title, when := SplitTitleWhen(payload)
	if title == "" || when == "" {
		return "Usage: /add_event <title> <when>"
	}

	event, err := c.svc.AddEvent(ctx, owner, title, when)
	if err != nil {
		if ve, ok := errors.AsValidationError(err); ok && ve.Field == "time" {
			return replyInvalidDate
		}
		return c.failure(ctx, "add_event", err)
	}
	return fmt.Sprintf("Event %q scheduled for %s.", event.Title, c.formatTime(event.FireAt))
}

// ListEvents handles /list_events.
func (c *Commands) ListEvents(ctx context.Context, owner string) string {
	events, err := c.svc.ListEvents(ctx, owner)
	if err != nil {
		return c.failure(ctx, "list_events", err)
	}
	if len(events) == 0 {
		return "You have no upcoming events!"
	}

	var sb strings.Builder
	sb.WriteString("Your upcoming events:\n")
	for _, e := range events {
		fmt.Fprintf(&sb, "%s. %s - %s\n", e.ShortID(), e.Title, c.formatTime(e.FireAt))
	}
	return sb.String()
}

// RemoveEvent handles /remove_event.
func (c *Commands) RemoveEvent(ctx context.Context, owner, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "Usage: /remove_event <id>"
	}
	if err := c.svc.RemoveEvent(ctx, owner, ref); err != nil {
		return c.failure(ctx, "remove_event", err)
	}
	return fmt.Sprintf("Event %s removed!", ref)
}

// Pomodoro handles /pomodoro [work] [break]. Bare numbers are minutes.
// Later phase messages go through send.
func (c *Commands) Pomodoro(chat string, args []string, send func(string)) string {
	cfg := timer.DefaultPomodoroConfig()
	if len(args) > 2 {
		return "Usage: /pomodoro [work] [break]"
	}
	if len(args) > 0 {
		d, err := parser.ParseDuration(args[0], time.Minute)
		if err != nil {
			return "Invalid work time. " + parser.NewDurationError(args[0]).Suggestion
		}
		cfg.WorkDuration = d
	}
	if len(args) > 1 {
		d, err := parser.ParseDuration(args[1], time.Minute)
		if err != nil {
			return "Invalid break time. " + parser.NewDurationError(args[1]).Suggestion
		}
		cfg.BreakDuration = d
	}

	_, err := c.timers.Start(chat, cfg, func(event timer.PomodoroEvent, _ timer.SessionType) {
		switch event {
		case timer.EventSessionComplete:
			send(replyBreak)
		case timer.EventAllComplete:
			send(replyBackToWork)
		}
	})
	if err != nil {
		c.logger.Warn("pomodoro not started", logging.KeyError, err)
		return "Pomodoro is unavailable right now."
	}

	return fmt.Sprintf("Starting Pomodoro: %s work, %s break.",
		parser.FormatMinutes(cfg.WorkDuration), parser.FormatMinutes(cfg.BreakDuration))
}

// StopPomodoro handles /stop_pomodoro.
func (c *Commands) StopPomodoro(chat string) string {
	if c.timers.Cancel(chat) {
		return "Pomodoro cancelled."
	}
	return "No Pomodoro is running."
}

func (c *Commands) formatTime(t time.Time) string {
	return t.In(c.svc.Location()).Format(model.ReminderLayout)
}

// failure renders err for the chat. Validation errors are shown as is;
// anything else is logged and hidden behind a generic reply.
func (c *Commands) failure(ctx context.Context, op string, err error) string {
	if ve, ok := errors.AsValidationError(err); ok {
		if ve.Suggestion != "" {
			return ve.Message + ". " + ve.Suggestion
		}
		return ve.Message + "."
	}
	logging.LoggerFromContext(ctx).ErrorContext(ctx, "command failed",
		logging.KeyOperation, op, logging.KeyError, err)
	return replyStoreDown
}

// SplitTitleWhen splits an /add_event payload into title and time. A title
// starting with a double quote runs to the closing quote; otherwise it is
// the first word.
func SplitTitleWhen(payload string) (title, when string) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", ""
	}

	if q := payload[0]; q == '"' || q == '\'' {
		end := strings.IndexByte(payload[1:], q)
		if end < 0 {
			return "", ""
		}
		return strings.TrimSpace(payload[1 : end+1]), strings.TrimSpace(payload[end+2:])
	}

	title, when, _ = strings.Cut(payload, " ")
	return title, strings.TrimSpace(when)
}
