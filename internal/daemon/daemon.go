// Package daemon runs the reminder scheduler and the chat bot as one
// long-lived process.
//
// Startup happens in two phases. The first opens the store and builds the
// service, notifiers, bot and scheduler without starting anything, so a
// bad configuration fails before any reminder can go out. The second
// starts the scheduler and the bot and reports readiness to systemd.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	sdaemon "github.com/coreos/go-systemd/v22/daemon"

	"github.com/manav03panchal/remindbot/internal/bot"
	"github.com/manav03panchal/remindbot/internal/clock"
	"github.com/manav03panchal/remindbot/internal/config"
	"github.com/manav03panchal/remindbot/internal/logging"
	"github.com/manav03panchal/remindbot/internal/notify"
	"github.com/manav03panchal/remindbot/internal/scheduler"
	"github.com/manav03panchal/remindbot/internal/service"
	"github.com/manav03panchal/remindbot/internal/storage"
	"github.com/manav03panchal/remindbot/internal/timer"
)

// ErrShutdownTimeout is returned when components do not stop within
// the configured shutdown timeout.
var ErrShutdownTimeout = fmt.Errorf("daemon did not stop in time")

// StartupWait is how long StartBackground waits for the child to write
// its PID file.
const StartupWait = 500 * time.Millisecond

// Daemon manages the reminder process.
type Daemon struct {
	cfg      *config.RuntimeConfig
	stateDir string
	stdout   io.Writer
	logger   *slog.Logger
	clock    clock.Clock
	debug    bool

	pidFile   *PIDFile
	metrics   *Metrics
	startedAt time.Time
	ready     chan struct{}
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithStateDir overrides where the PID, state and log files live.
func WithStateDir(dir string) Option {
	return func(d *Daemon) { d.stateDir = dir }
}

// WithStdout sets where the stdout channel writes reminders.
func WithStdout(w io.Writer) Option {
	return func(d *Daemon) { d.stdout = w }
}

// WithLogger sets the daemon logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Daemon) { d.logger = l }
}

// WithClock sets the clock used by the service and scheduler.
func WithClock(c clock.Clock) Option {
	return func(d *Daemon) { d.clock = c }
}

// WithDebug passes --debug to a background child.
func WithDebug(debug bool) Option {
	return func(d *Daemon) { d.debug = debug }
}

// New creates a daemon manager for cfg.
func New(cfg *config.RuntimeConfig, opts ...Option) *Daemon {
	d := &Daemon{
		cfg:      cfg,
		stateDir: DefaultStateDir(),
		stdout:   os.Stdout,
		clock:    clock.Real{},
		metrics:  NewMetrics(),
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logging.Logger()
	}
	d.pidFile = NewPIDFile(d.PIDPath())
	return d
}

// DefaultStateDir returns $XDG_STATE_HOME/remindbot.
func DefaultStateDir() string {
	return filepath.Join(xdg.StateHome, storage.AppName)
}

// PIDPath returns the PID file path.
func (d *Daemon) PIDPath() string { return filepath.Join(d.stateDir, PIDFileName) }

// StatePath returns the status file path.
func (d *Daemon) StatePath() string { return filepath.Join(d.stateDir, "daemon.json") }

// LogPath returns the background log path.
func (d *Daemon) LogPath() string { return filepath.Join(d.stateDir, "daemon.log") }

// Ready is closed once the scheduler and bot are running.
func (d *Daemon) Ready() <-chan struct{} {
	return d.ready
}

// IsRunning reports whether a daemon owns the state directory.
func (d *Daemon) IsRunning() bool {
	return d.pidFile.IsRunning()
}

type components struct {
	store storage.Store
	bot   *bot.Bot
	sched *scheduler.Scheduler
}

// Run starts the daemon in the foreground and blocks until ctx is canceled
// or a shutdown signal arrives. Run may be called once per Daemon.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.cfg.Validate(); err != nil {
		return err
	}
	if d.IsRunning() {
		return ErrAlreadyRunning
	}
	d.startedAt = time.Now().UTC()

	c, err := d.setup()
	if err != nil {
		return err
	}

	if err := d.pidFile.Write(); err != nil {
		c.store.Close()
		return err
	}
	defer d.pidFile.Remove()
	d.writeState()
	defer d.removeState()

	ctx, stop := ShutdownContext(ctx, d.logger)
	defer stop()

	if err := c.sched.Start(ctx); err != nil {
		c.store.Close()
		return err
	}
	botDone := make(chan struct{})
	if c.bot != nil {
		go func() {
			defer close(botDone)
			c.bot.Run(ctx)
		}()
	} else {
		close(botDone)
	}

	d.sdNotify(sdaemon.SdNotifyReady)
	close(d.ready)
	d.logger.Info("daemon started",
		"pid", os.Getpid(),
		logging.KeyBackend, d.cfg.Storage.Backend,
		logging.KeyChannel, strings.Join(d.cfg.Notify.Channels, ","),
		"telegram_bot", c.bot != nil)

	<-ctx.Done()
	d.sdNotify(sdaemon.SdNotifyStopping)
	return d.shutdown(c, botDone)
}

// setup is the first startup phase. On error nothing is left open.
func (d *Daemon) setup() (*components, error) {
	store, err := storage.Open(storage.Options{
		Backend:       d.cfg.Storage.Backend,
		Path:          d.cfg.StoragePath(),
		BusyTimeoutMS: d.cfg.Storage.BusyTimeout.Milliseconds(),
	})
	if err != nil {
		return nil, err
	}
	c := &components{store: store}

	svc := service.New(store, service.WithClock(d.clock), service.WithLocation(d.cfg.Location))

	var sender notify.Sender
	if d.cfg.Telegram.Token != "" {
		cmds := bot.NewCommands(svc, timer.NewManager(d.logger), d.logger)
		b, err := bot.New(bot.Options{Token: d.cfg.Telegram.Token, PollTimeout: d.cfg.Telegram.PollTimeout}, cmds, d.logger)
		if err != nil {
			store.Close()
			return nil, err
		}
		c.bot = b
		sender = b.Sender()
	}

	notifier, err := BuildNotifier(d.cfg, d.stdout, sender)
	if err != nil {
		store.Close()
		return nil, err
	}

	c.sched, err = scheduler.NewScheduler(store, notifier,
		scheduler.Config{TickInterval: d.cfg.Scheduler.TickInterval, LeadTime: d.cfg.Scheduler.LeadTime},
		scheduler.WithClock(d.clock),
		scheduler.WithLogger(d.logger),
		scheduler.WithObserver(func(res scheduler.TickResult, err error) {
			d.metrics.Observe(res, err)
			d.writeState()
		}))
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

// shutdown stops the scheduler and bot, then closes the store. If that
// takes longer than the shutdown timeout the store is left open and
// ErrShutdownTimeout is returned.
func (d *Daemon) shutdown(c *components, botDone <-chan struct{}) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.sched.Stop()
		<-botDone
	}()

	select {
	case <-done:
	case <-time.After(d.cfg.Daemon.ShutdownTimeout):
		d.logger.Warn("shutdown timed out", "timeout", d.cfg.Daemon.ShutdownTimeout.String())
		return ErrShutdownTimeout
	}

	if err := c.store.Close(); err != nil {
		d.logger.Warn("failed to close store", logging.KeyError, err)
	}
	d.logger.Info("daemon stopped")
	return nil
}

func (d *Daemon) sdNotify(state string) {
	sent, err := sdaemon.SdNotify(false, state)
	if err != nil {
		d.logger.Warn("sd_notify failed", logging.KeyError, err)
		return
	}
	if sent {
		d.logger.Debug("sd_notify sent", "state", strings.TrimSpace(state))
	}
}

// Status represents the daemon status.
type Status struct {
	Running   bool             `json:"running"`
	PID       int              `json:"pid,omitempty"`
	StartedAt time.Time        `json:"started_at,omitempty"`
	Uptime    string           `json:"uptime,omitempty"`
	Healthy   bool             `json:"healthy"`
	Metrics   *MetricsSnapshot `json:"metrics,omitempty"`
}

// Status reads the state written by the running daemon.
func (d *Daemon) Status() *Status {
	status := &Status{}

	pid := d.pidFile.RunningPID()
	if pid == 0 {
		return status
	}
	status.Running = true
	status.PID = pid
	status.Healthy = true

	if state, err := d.readState(); err == nil {
		status.StartedAt = state.StartedAt
		status.Uptime = formatUptime(time.Since(state.StartedAt))
		status.Metrics = &state.Metrics
		status.Healthy = state.Metrics.Healthy()
	}
	return status
}

// StartBackground re-executes the binary as a detached foreground daemon
// whose output goes to LogPath. extraArgs are appended to
// "daemon start --foreground".
func (d *Daemon) StartBackground(extraArgs ...string) (int, error) {
	if pid := d.pidFile.RunningPID(); pid != 0 {
		return pid, ErrAlreadyRunning
	}

	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to get executable path: %w", err)
	}

	args := append([]string{"daemon", "start", "--foreground"}, extraArgs...)
	if d.debug {
		args = append(args, "--debug")
	}
	cmd := exec.Command(executable, args...)
	cmd.Stdin = nil

	logFile, err := openLogFile(d.LogPath(), MaxLogSize)
	if err != nil {
		return 0, err
	}
	defer logFile.Close()
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start daemon: %w", err)
	}

	time.Sleep(StartupWait)
	if !d.pidFile.IsRunning() {
		if msg := lastLogError(d.LogPath()); msg != "" {
			return 0, fmt.Errorf("daemon failed to start: %s", msg)
		}
		return 0, fmt.Errorf("daemon failed to start (check logs: %s)", d.LogPath())
	}
	return cmd.Process.Pid, nil
}

// Stop signals the running daemon and waits up to timeout for it to exit
// before killing it.
func (d *Daemon) Stop(timeout time.Duration) error {
	pid := d.pidFile.RunningPID()
	if pid == 0 {
		return ErrNotRunning
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}
	if err := process.Signal(os.Interrupt); err != nil {
		if err := process.Kill(); err != nil {
			return fmt.Errorf("failed to stop daemon: %w", err)
		}
	}

	deadline := time.Now().Add(timeout)
	for IsProcessRunning(pid) {
		if time.Now().After(deadline) {
			_ = process.Kill()
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	d.pidFile.Remove()
	d.removeState()
	return nil
}

// lastLogError returns the last error-looking line among the final ten.
func lastLogError(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}

	lines := strings.Split(string(data), "\n")
	start := max(len(lines)-10, 0)
	for i := len(lines) - 1; i >= start; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.Contains(strings.ToLower(line), "error") || strings.Contains(line, "failed to") {
			return line
		}
	}
	return ""
}

// DaemonState is the status file written by a running daemon.
type DaemonState struct {
	PID       int             `json:"pid"`
	StartedAt time.Time       `json:"started_at"`
	Backend   string          `json:"backend"`
	Channels  []string        `json:"channels"`
	Metrics   MetricsSnapshot `json:"metrics"`
}

// writeState replaces the status file. Failures are logged only.
func (d *Daemon) writeState() {
	state := DaemonState{
		PID:       os.Getpid(),
		StartedAt: d.startedAt,
		Backend:   d.cfg.Storage.Backend,
		Channels:  d.cfg.Notify.Channels,
		Metrics:   d.metrics.Snapshot(),
	}
	data, err := json.Marshal(state)
	if err == nil {
		err = writeFileAtomic(d.StatePath(), data)
	}
	if err != nil {
		d.logger.Warn("failed to write daemon state", logging.KeyError, err, "path", d.StatePath())
	}
}

func (d *Daemon) readState() (*DaemonState, error) {
	data, err := os.ReadFile(d.StatePath())
	if err != nil {
		return nil, err
	}
	var state DaemonState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (d *Daemon) removeState() {
	if err := os.Remove(d.StatePath()); err != nil && !os.IsNotExist(err) {
		d.logger.Warn("failed to remove daemon state file", logging.KeyError, err, "path", d.StatePath())
	}
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// formatUptime formats a duration as uptime.
func formatUptime(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % 60
		if minutes > 0 {
			return fmt.Sprintf("%dh %dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	if hours > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	return fmt.Sprintf("%dd", days)
}
