// Package config provides centralized configuration for remindbot runtime values.
package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/manav03panchal/remindbot/internal/errors"
	"github.com/manav03panchal/remindbot/internal/notify"
	"github.com/manav03panchal/remindbot/internal/storage"
	"github.com/manav03panchal/remindbot/internal/validate"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "REMINDBOT_"

// Notification channels.
const (
	ChannelStdout   = notify.ChannelStdout
	ChannelWebhook  = notify.ChannelWebhook
	ChannelTelegram = notify.ChannelTelegram
)

// RuntimeConfig holds every runtime setting. Sources, in increasing
// precedence: defaults, YAML file, REMINDBOT_* environment, CLI flags.
type RuntimeConfig struct {
	// Scheduler is the timer configuration.
	Scheduler SchedulerConfig

	// Storage selects and locates the database.
	Storage StorageConfig

	// Notify configures reminder delivery.
	Notify NotifyConfig

	// Telegram configures the chat bot.
	Telegram TelegramConfig

	// Daemon configuration
	Daemon DaemonConfig

	// Owner is the default owner for CLI commands.
	Owner string

	// Location interprets user-typed times that name no zone and renders
	// times for display. Stored instants are always UTC.
	Location *time.Location
}

// SchedulerConfig holds the reminder timer configuration.
type SchedulerConfig struct {
	// TickInterval is how often due events are scanned.
	// Default: 1m
	TickInterval time.Duration

	// LeadTime is how long before an event's start it becomes due.
	// Default: 10m
	LeadTime time.Duration
}

// StorageConfig holds storage-related configuration.
type StorageConfig struct {
	// Backend is "sqlite" or "badger".
	// Default: sqlite
	Backend string

	// Path is the database file (sqlite) or directory (badger).
	// Default: under $XDG_DATA_HOME/remindbot
	Path string

	// BusyTimeout bounds how long SQLite waits for another process's lock.
	// Default: 5s
	BusyTimeout time.Duration
}

// NotifyConfig holds reminder delivery configuration.
type NotifyConfig struct {
	// Channels lists the delivery channels: stdout, webhook, telegram.
	// Default: [stdout]
	Channels []string

	// WebhookURL is the endpoint for the webhook channel.
	WebhookURL string

	// WebhookType picks the payload format: discord, slack, teams, generic.
	// Default: discord
	WebhookType string

	// WebhookTemplate is an optional text/template for generic webhooks.
	WebhookTemplate string

	// RatePerSec caps deliveries per second per channel; 0 disables.
	// Default: 3
	RatePerSec int

	// Timeout bounds one webhook request.
	// Default: 10s
	Timeout time.Duration
}

// TelegramConfig holds Telegram bot configuration.
type TelegramConfig struct {
	// Token is the bot token. It is read only from REMINDBOT_TELEGRAM_TOKEN.
	Token string

	// PollTimeout is the long-poll timeout.
	// Default: 10s
	PollTimeout time.Duration
}

// DaemonConfig holds daemon-related configuration.
type DaemonConfig struct {
	// ShutdownTimeout bounds graceful shutdown.
	// Default: 5s
	ShutdownTimeout time.Duration
}

// MaxRatePerSec bounds Notify.RatePerSec.
const MaxRatePerSec = 100

// DefaultRuntimeConfig returns the default runtime configuration.
func DefaultRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		Scheduler: SchedulerConfig{
			TickInterval: time.Minute,
			LeadTime:     10 * time.Minute,
		},
		Storage: StorageConfig{
			Backend:     storage.BackendSQLite,
			BusyTimeout: 5 * time.Second,
		},
		Notify: NotifyConfig{
			Channels:    []string{ChannelStdout},
			WebhookType: notify.WebhookTypeDiscord,
			RatePerSec:  3,
			Timeout:     notify.DefaultTimeout,
		},
		Telegram: TelegramConfig{
			PollTimeout: 10 * time.Second,
		},
		Daemon: DaemonConfig{
			ShutdownTimeout: 5 * time.Second,
		},
		Owner:    defaultOwner(),
		Location: time.Local,
	}
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/remindbot/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, storage.AppName, "config.yaml")
}

// Load builds the configuration from defaults, the YAML file at path and
// the environment. An empty path uses DefaultConfigPath and tolerates a
// missing file; an explicit path must exist.
func Load(path string) (*RuntimeConfig, error) {
	cfg := DefaultRuntimeConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	if err := cfg.LoadFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg.loadFromEnv()
	return cfg, nil
}

// StoragePath returns the configured database path or the backend default.
func (c *RuntimeConfig) StoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	return storage.DefaultPath(c.Storage.Backend)
}

// HasChannel reports whether a delivery channel is enabled.
func (c *RuntimeConfig) HasChannel(name string) bool {
	for _, ch := range c.Notify.Channels {
		if ch == name {
			return true
		}
	}
	return false
}

// loadFromEnv loads configuration overrides from environment variables.
// Unparseable values are ignored.
func (c *RuntimeConfig) loadFromEnv() {
	// Scheduler configuration
	if d, ok := envDuration("TICK_INTERVAL"); ok {
		c.Scheduler.TickInterval = d
	}
	if d, ok := envDuration("LEAD_TIME"); ok {
		c.Scheduler.LeadTime = d
	}

	// Storage configuration
	if v := env("BACKEND"); v != "" {
		c.Storage.Backend = strings.ToLower(v)
	}
	if v := env("DB"); v != "" {
		c.Storage.Path = v
	}
	if d, ok := envDuration("BUSY_TIMEOUT"); ok {
		c.Storage.BusyTimeout = d
	}

	// Notify configuration
	if v := env("NOTIFY"); v != "" {
		c.Notify.Channels = splitList(v)
	}
	if v := env("WEBHOOK_URL"); v != "" {
		c.Notify.WebhookURL = v
	}
	if v := env("WEBHOOK_TYPE"); v != "" {
		c.Notify.WebhookType = strings.ToLower(v)
	}
	if v := env("NOTIFY_RATE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Notify.RatePerSec = n
		}
	}
	if d, ok := envDuration("NOTIFY_TIMEOUT"); ok {
		c.Notify.Timeout = d
	}

	// Telegram configuration
	if v := env("TELEGRAM_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if d, ok := envDuration("TELEGRAM_POLL_TIMEOUT"); ok {
		c.Telegram.PollTimeout = d
	}

	// Daemon configuration
	if d, ok := envDuration("SHUTDOWN_TIMEOUT"); ok {
		c.Daemon.ShutdownTimeout = d
	}

	if v := env("OWNER"); v != "" {
		c.Owner = v
	}
	if v := env("TZ"); v != "" {
		if loc, err := time.LoadLocation(v); err == nil {
			c.Location = loc
		}
	}
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *RuntimeConfig) Validate() error {
	if c.Scheduler.TickInterval <= 0 {
		return invalid("tick_interval", c.Scheduler.TickInterval.String(), "Tick interval must be positive", "Use a duration like 1m")
	}
	if c.Scheduler.LeadTime <= 0 {
		return invalid("lead_time", c.Scheduler.LeadTime.String(), "Lead time must be positive", "Use a duration like 10m")
	}

	switch c.Storage.Backend {
	case storage.BackendSQLite, storage.BackendBadger:
	default:
		return invalid("backend", c.Storage.Backend, "Unknown storage backend", "Use sqlite or badger")
	}

	if len(c.Notify.Channels) == 0 {
		return invalid("notify", "", "No notification channel configured", "Enable at least one of stdout, webhook, telegram")
	}
	for _, ch := range c.Notify.Channels {
		switch ch {
		case ChannelStdout:
		case ChannelWebhook:
			if c.Notify.WebhookURL == "" {
				return invalid("webhook_url", "", "Webhook channel needs a URL", "Set notify.webhook_url or REMINDBOT_WEBHOOK_URL")
			}
			if err := validate.URL(c.Notify.WebhookURL); err != nil {
				return err
			}
			if !notify.ValidWebhookType(c.Notify.WebhookType) {
				return invalid("webhook_type", c.Notify.WebhookType, "Unknown webhook type", "Use discord, slack, teams or generic")
			}
		case ChannelTelegram:
			if c.Telegram.Token == "" {
				return invalid("telegram_token", "", "Telegram channel needs a bot token", "Set REMINDBOT_TELEGRAM_TOKEN")
			}
		default:
			return invalid("notify", ch, "Unknown notification channel", "Use stdout, webhook or telegram")
		}
	}

	if err := validate.InRange("rate_per_sec", c.Notify.RatePerSec, 0, MaxRatePerSec); err != nil {
		return err
	}
	return nil
}

func invalid(field, value, message, suggestion string) error {
	return errors.NewValidationErrorWithValue(field, value, message, suggestion, nil)
}

func env(name string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + name))
}

func envDuration(name string) (time.Duration, bool) {
	v := env(name)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultOwner() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return os.Getenv("USERNAME")
}
