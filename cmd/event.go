package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/remindbot/internal/errors"
	"github.com/manav03panchal/remindbot/internal/model"
)

// Event command flags.
var eventAddFlagAt string

// eventCmd represents the event command.
var eventCmd = &cobra.Command{
	Use:     "event",
	Aliases: []string{"events", "e"},
	Short:   "Manage scheduled events",
	Long: `Schedule events and get reminded shortly before they start. Without a
subcommand the upcoming events are shown.

Times without a zone are read in the configured timezone. Besides
"2024-08-23 14:30" most natural forms work: "tomorrow 9am", "in 2 hours",
"friday 16:00".

Examples:
  remindbot event add "Team sync" 2024-08-23 14:30
  remindbot event add Standup tomorrow 9am
  remindbot event add Deploy --at 2024-08-23T14:30:00Z
  remindbot event
  remindbot event remove 3f2a`,
	Args: cobra.NoArgs,
	RunE: runEventList,
}

// eventAddCmd schedules an event.
var eventAddCmd = &cobra.Command{
	Use:   "add TITLE WHEN...",
	Short: "Schedule an event",
	Long: `Schedule an event. TITLE is a single argument; quote it when it has
spaces. Everything after it is the start time. With --at the start time is
an RFC 3339 timestamp instead.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if eventAddFlagAt != "" {
			return cobra.ExactArgs(1)(cmd, args)
		}
		if len(args) < 2 {
			return fmt.Errorf("requires a title and a time, e.g. \"Team sync\" 2024-08-23 14:30")
		}
		return nil
	},
	RunE: runEventAdd,
}

// eventListCmd lists upcoming events.
var eventListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List upcoming events",
	Args:    cobra.NoArgs,
	RunE:    runEventList,
}

// eventRemoveCmd removes an event.
var eventRemoveCmd = &cobra.Command{
	Use:     "remove ID",
	Aliases: []string{"rm", "delete", "cancel"},
	Short:   "Remove an event",
	Args:    cobra.ExactArgs(1),
	RunE:    runEventRemove,
}

func init() {
	eventAddCmd.Flags().StringVar(&eventAddFlagAt, "at", "",
		"Start time as an RFC 3339 timestamp")

	eventCmd.AddCommand(eventAddCmd)
	eventCmd.AddCommand(eventListCmd)
	eventCmd.AddCommand(eventRemoveCmd)
	rootCmd.AddCommand(eventCmd)
}

func runEventAdd(cmd *cobra.Command, args []string) error {
	rctx := ctx.Ctx(cmd.Context())

	var (
		event *model.Event
		err   error
	)
	if eventAddFlagAt != "" {
		at, perr := time.Parse(time.RFC3339, eventAddFlagAt)
		if perr != nil {
			return errors.NewValidationErrorWithValue("at", eventAddFlagAt,
				"Invalid --at timestamp", "Use RFC 3339, e.g. 2024-08-23T14:30:00Z", errors.ErrInvalidTimestamp)
		}
		event, err = ctx.Service.AddEventAt(rctx, ctx.Owner(), args[0], at)
	} else {
		event, err = ctx.Service.AddEvent(rctx, ctx.Owner(), args[0], strings.Join(args[1:], " "))
	}
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintEvent(event)
	}
	ctx.CLIFormatter().PrintEventAdded(event, ctx.Now())
	return nil
}

func runEventList(cmd *cobra.Command, args []string) error {
	events, err := ctx.Service.ListEvents(ctx.Ctx(cmd.Context()), ctx.Owner())
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintEvents(events)
	}
	ctx.CLIFormatter().PrintEvents(events, ctx.Now())
	return nil
}

func runEventRemove(cmd *cobra.Command, args []string) error {
	if err := ctx.Service.RemoveEvent(ctx.Ctx(cmd.Context()), ctx.Owner(), args[0]); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintAction("removed", args[0])
	}
	ctx.CLIFormatter().Success(fmt.Sprintf("Event %s removed", args[0]))
	return nil
}
