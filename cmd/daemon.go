package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/remindbot/internal/daemon"
	"github.com/manav03panchal/remindbot/internal/errors"
	"github.com/manav03panchal/remindbot/internal/logging"
	"github.com/manav03panchal/remindbot/internal/output"
)

// Daemon command flags.
var (
	daemonStartFlagForeground bool
	daemonStopFlagTimeout     time.Duration
	daemonLogsFlagTail        int
	daemonInstallFlagForce    bool
)

// daemonCmd represents the daemon command.
var daemonCmd = &cobra.Command{
	Use:     "daemon [command]",
	Aliases: []string{"d", "bg", "service"},
	Short:   "Manage the background reminder daemon",
	Long: `Manage the Remindbot daemon. The daemon scans for events starting
within the lead time, delivers one reminder per event on the configured
channels and, when a Telegram token is set, serves the chat commands.

Examples:
  remindbot daemon start
  remindbot daemon status
  remindbot daemon stop
  remindbot daemon logs --tail 20`,
	Annotations: map[string]string{annotationNoStore: ""},
	RunE:        runDaemonStatus,
}

// daemonStartCmd starts the daemon.
var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the background daemon",
	Long: `Start the Remindbot daemon.

Examples:
  remindbot daemon start           # Start in background
  remindbot daemon start -F        # Start in foreground (for debugging)`,
	RunE: runDaemonStart,
}

// daemonStopCmd stops the daemon.
var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background daemon",
	RunE:  runDaemonStop,
}

// daemonStatusCmd shows daemon status.
var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	RunE:  runDaemonStatus,
}

// daemonLogsCmd shows daemon logs.
var daemonLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View daemon logs",
	RunE:  runDaemonLogs,
}

// daemonInstallCmd installs the daemon as a system service.
var daemonInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install daemon as a system service",
	Long: `Install the Remindbot daemon as a system service that starts automatically on login.

On macOS, this creates a launchd agent in ~/Library/LaunchAgents.
On Linux, this creates a systemd user service in ~/.config/systemd/user.`,
	RunE: runDaemonInstall,
}

// daemonUninstallCmd uninstalls the daemon system service.
var daemonUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall daemon system service",
	RunE:  runDaemonUninstall,
}

func init() {
	daemonStartCmd.Flags().BoolVarP(&daemonStartFlagForeground, "foreground", "F", false,
		"Run in foreground (don't daemonize)")
	daemonStopCmd.Flags().DurationVar(&daemonStopFlagTimeout, "timeout", 10*time.Second,
		"How long to wait before killing the daemon")
	daemonLogsCmd.Flags().IntVarP(&daemonLogsFlagTail, "tail", "n", 20,
		"Number of lines to show")
	daemonInstallCmd.Flags().BoolVar(&daemonInstallFlagForce, "force", false,
		"Force reinstall if already installed")

	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonLogsCmd)
	daemonCmd.AddCommand(daemonInstallCmd)
	daemonCmd.AddCommand(daemonUninstallCmd)

	rootCmd.AddCommand(daemonCmd)
}

func newDaemon() *daemon.Daemon {
	return daemon.New(cfg,
		daemon.WithDebug(flagDebug),
		daemon.WithLogger(logging.With(logging.KeyBackend, cfg.Storage.Backend)),
		daemon.WithStdout(stdout),
	)
}

func isJSON() bool {
	return out.Format == output.FormatJSON
}

// runDaemonStart handles the daemon start command.
func runDaemonStart(cmd *cobra.Command, args []string) error {
	d := newDaemon()

	if daemonStartFlagForeground {
		if !isJSON() {
			out.Printf("Starting remindbot daemon (foreground mode)...\n")
		}
		runCtx := cmd.Context()
		if runCtx == nil {
			runCtx = context.Background()
		}
		return d.Run(runCtx)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	pid, err := d.StartBackground(forwardedFlags()...)
	if errors.Is(err, daemon.ErrAlreadyRunning) {
		return fmt.Errorf("daemon is already running (PID: %d)", pid)
	}
	if err != nil {
		return err
	}

	if isJSON() {
		return out.JSON(map[string]interface{}{"status": "started", "pid": pid})
	}
	out.Println("Starting remindbot daemon...")
	out.Printf("Daemon started (PID: %d)\n", pid)
	return nil
}

// runDaemonStop handles the daemon stop command.
func runDaemonStop(cmd *cobra.Command, args []string) error {
	d := newDaemon()
	status := d.Status()

	if !status.Running {
		if isJSON() {
			return out.JSON(map[string]interface{}{"status": "not_running"})
		}
		out.Println("Daemon is not running")
		return nil
	}

	if !isJSON() {
		out.Println("Stopping remindbot daemon...")
	}
	if err := d.Stop(daemonStopFlagTimeout); err != nil {
		return err
	}

	if isJSON() {
		return out.JSON(map[string]interface{}{"status": "stopped", "pid": status.PID})
	}
	out.Printf("Daemon stopped (was PID: %d)\n", status.PID)
	return nil
}

// runDaemonStatus handles the daemon status command.
func runDaemonStatus(cmd *cobra.Command, args []string) error {
	status := newDaemon().Status()

	if isJSON() {
		return out.JSON(status)
	}

	cli := output.NewCLIFormatter(out)
	cli.Title("Remindbot Daemon Status")
	out.Println("")

	if !status.Running {
		out.Printf("  Status:    stopped\n")
		out.Println("")
		cli.Muted("Start with: remindbot daemon start")
		return nil
	}

	health := "healthy"
	if !status.Healthy {
		health = "degraded"
	}
	out.Printf("  Status:    running (%s)\n", health)
	out.Printf("  PID:       %d\n", status.PID)
	if status.Uptime != "" {
		out.Printf("  Uptime:    %s\n", status.Uptime)
	}

	if m := status.Metrics; m != nil {
		out.Printf("  Ticks:     %d (%d failed)\n", m.TicksTotal, m.TickErrorsTotal)
		out.Printf("  Reminders: %d delivered, %d failed\n", m.RemindersDelivered, m.RemindersFailed)
		if m.LastTick != nil && !m.LastTick.IsZero() {
			out.Printf("  Last tick: %s\n", out.FormatTime(*m.LastTick))
		}
		if m.LastError != "" {
			cli.Warning(fmt.Sprintf("Last error at %s: %s", out.FormatTime(*m.LastErrorAt), m.LastError))
		}
	}
	return nil
}

// runDaemonLogs handles the daemon logs command.
func runDaemonLogs(cmd *cobra.Command, args []string) error {
	logPath := newDaemon().LogPath()

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		out.Println("No log file found.")
		out.Printf("Log path: %s\n", logPath)
		return nil
	}

	lines, err := tailFile(logPath, daemonLogsFlagTail)
	if err != nil {
		return err
	}
	for _, line := range lines {
		out.Println(line)
	}
	return nil
}

// tailFile reads the last n lines from a file.
func tailFile(path string, n int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// runDaemonInstall handles the daemon install command.
func runDaemonInstall(cmd *cobra.Command, args []string) error {
	mgr, err := daemon.NewServiceManager(newDaemon().LogPath())
	if err != nil {
		return err
	}

	if mgr.IsInstalled() && !daemonInstallFlagForce {
		if isJSON() {
			return out.JSON(map[string]interface{}{"status": "already_installed"})
		}
		out.Println("Service is already installed.")
		out.Println("Use --force to reinstall.")
		return nil
	}

	if mgr.IsInstalled() {
		if !isJSON() {
			out.Println("Removing existing service...")
		}
		if err := mgr.Uninstall(); err != nil {
			return fmt.Errorf("failed to remove existing service: %w", err)
		}
	}

	if !isJSON() {
		out.Println("Installing remindbot daemon as system service...")
	}
	if err := mgr.Install(); err != nil {
		return err
	}

	if isJSON() {
		return out.JSON(map[string]interface{}{
			"status":  "installed",
			"message": "Service will start automatically on login",
		})
	}

	cli := output.NewCLIFormatter(out)
	out.Println("")
	cli.Success("Service installed successfully")
	out.Println("")
	out.Println("The daemon will now start automatically when you log in.")
	out.Println("To remove: remindbot daemon uninstall")
	return nil
}

// runDaemonUninstall handles the daemon uninstall command.
func runDaemonUninstall(cmd *cobra.Command, args []string) error {
	d := newDaemon()
	mgr, err := daemon.NewServiceManager(d.LogPath())
	if err != nil {
		return err
	}

	if !mgr.IsInstalled() {
		if isJSON() {
			return out.JSON(map[string]interface{}{"status": "not_installed"})
		}
		out.Println("Service is not installed.")
		return nil
	}

	if !isJSON() {
		out.Println("Uninstalling remindbot daemon service...")
	}
	if err := mgr.Uninstall(); err != nil {
		return err
	}

	// A daemon started by hand outlives the service unit.
	if d.IsRunning() {
		if err := d.Stop(daemonStopFlagTimeout); err != nil && !errors.Is(err, daemon.ErrNotRunning) {
			logging.Warn("failed to stop daemon", logging.KeyError, err)
		}
	}

	if isJSON() {
		return out.JSON(map[string]interface{}{"status": "uninstalled"})
	}

	cli := output.NewCLIFormatter(out)
	out.Println("")
	cli.Success("Service uninstalled successfully")
	out.Println("")
	out.Println("To reinstall: remindbot daemon install")
	return nil
}
