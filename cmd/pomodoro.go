package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/remindbot/internal/daemon"
	"github.com/manav03panchal/remindbot/internal/logging"
	"github.com/manav03panchal/remindbot/internal/output"
	"github.com/manav03panchal/remindbot/internal/parser"
	"github.com/manav03panchal/remindbot/internal/timer"
)

// pomodoroCmd represents the pomodoro command.
var pomodoroCmd = &cobra.Command{
	Use:     "pomodoro [WORK] [BREAK]",
	Aliases: []string{"pom", "pomo", "tomato"},
	Short:   "Run one Pomodoro work/break cycle in the terminal",
	Long: `Run a single Pomodoro cycle: a work session followed by a break.
Durations default to 25 and 5 minutes. Bare numbers are minutes; units
such as 45m, 1h or 90s also work. Press Ctrl+C to quit early.

Examples:
  remindbot pomodoro
  remindbot pomodoro 50 10
  remindbot pomo 1h 15m`,
	Args:        cobra.MaximumNArgs(2),
	Annotations: map[string]string{annotationNoStore: ""},
	RunE:        runPomodoro,
}

func init() {
	rootCmd.AddCommand(pomodoroCmd)
}

// pomodoroConfig builds a cycle from up to two duration arguments.
func pomodoroConfig(args []string) (timer.PomodoroConfig, error) {
	config := timer.DefaultPomodoroConfig()
	if len(args) > 0 {
		d, err := parser.ParseDuration(args[0], time.Minute)
		if err != nil {
			return config, durationArgError("work", err)
		}
		config.WorkDuration = d
	}
	if len(args) > 1 {
		d, err := parser.ParseDuration(args[1], time.Minute)
		if err != nil {
			return config, durationArgError("break", err)
		}
		config.BreakDuration = d
	}
	return config, nil
}

// durationArgError names the bad argument and lists accepted forms.
func durationArgError(which string, err error) error {
	var tpe *parser.TimeParseError
	if errors.As(err, &tpe) {
		return fmt.Errorf("invalid %s time: %s", which, tpe.FormatWithExamples())
	}
	return fmt.Errorf("invalid %s time: %w", which, err)
}

func runPomodoro(cmd *cobra.Command, args []string) error {
	config, err := pomodoroConfig(args)
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	runCtx, stop := daemon.ShutdownContext(parent, logging.Logger())
	defer stop()

	cli := output.NewCLIFormatter(out)
	pom := timer.NewPomodoro(config)
	pom.SetCallback(func(event timer.PomodoroEvent, session timer.SessionType) {
		switch event {
		case timer.EventStarted:
			cli.Title(fmt.Sprintf("Starting Pomodoro: %s work, %s break.",
				parser.FormatMinutes(config.WorkDuration), parser.FormatMinutes(config.BreakDuration)))
			cli.Muted("Press Ctrl+C to quit.")
		case timer.EventSessionComplete:
			cli.Success("Time to take a break!")
		case timer.EventAllComplete:
			cli.Success("Break over, back to work!")
		case timer.EventQuit:
			cli.Warning(fmt.Sprintf("Pomodoro cancelled during %s session.", session))
		}
	})

	if err := pom.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
