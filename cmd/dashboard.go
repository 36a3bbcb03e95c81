package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/manav03panchal/remindbot/internal/tui"
)

// dashboardCmd represents the dashboard command.
var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"dash", "tui"},
	Short:   "Open the interactive TUI dashboard",
	Long: `Open an interactive terminal dashboard with a live countdown to your
next event, the upcoming events and your open tasks.

Keyboard Controls:
  j/k    Move the task selection
  x      Complete the selected task
  r      Refresh data
  q      Quit dashboard

Examples:
  remindbot dashboard
  remindbot tui`,
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("dashboard needs an interactive terminal; use 'remindbot event list' instead")
	}

	return tui.Run(tui.DashboardConfig{
		Source:   ctx.Service,
		Owner:    ctx.Owner(),
		Clock:    ctx.Clock,
		Location: ctx.Config.Location,
		LeadTime: ctx.Config.Scheduler.LeadTime,
	})
}
