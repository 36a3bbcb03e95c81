package cmd

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/remindbot/internal/config"
	"github.com/manav03panchal/remindbot/internal/logging"
	"github.com/manav03panchal/remindbot/internal/output"
)

// configCmd represents the config command.
var configCmd = &cobra.Command{
	Use:     "config",
	Aliases: []string{"cfg", "settings"},
	Short:   "Show the effective configuration",
	Long: `Show the configuration after the config file, REMINDBOT_* environment
variables and command-line flags have been applied. Secrets are masked.

Examples:
  remindbot config
  remindbot config path
  remindbot --format json config show`,
	Annotations: map[string]string{annotationNoStore: ""},
	Args:        cobra.NoArgs,
	RunE:        runConfigShow,
}

// configShowCmd prints the effective configuration.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

// configPathCmd prints the config file location.
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := flagConfig
		if path == "" {
			path = config.DefaultConfigPath()
		}
		if isJSON() {
			return out.JSON(map[string]string{"path": path})
		}
		out.Println(path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// configView is the displayable form of the configuration.
type configView struct {
	Owner           string   `json:"owner"`
	Timezone        string   `json:"timezone"`
	Backend         string   `json:"backend"`
	Path            string   `json:"path"`
	TickInterval    string   `json:"tick_interval"`
	LeadTime        string   `json:"lead_time"`
	Channels        []string `json:"channels"`
	WebhookURL      string   `json:"webhook_url,omitempty"`
	WebhookType     string   `json:"webhook_type,omitempty"`
	RatePerSec      int      `json:"rate_per_sec"`
	TelegramToken   string   `json:"telegram_token,omitempty"`
	ShutdownTimeout string   `json:"shutdown_timeout"`
}

func newConfigView(c *config.RuntimeConfig) configView {
	return configView{
		Owner:           c.Owner,
		Timezone:        c.Location.String(),
		Backend:         c.Storage.Backend,
		Path:            c.StoragePath(),
		TickInterval:    c.Scheduler.TickInterval.String(),
		LeadTime:        c.Scheduler.LeadTime.String(),
		Channels:        c.Notify.Channels,
		WebhookURL:      logging.MaskURL(c.Notify.WebhookURL),
		WebhookType:     c.Notify.WebhookType,
		RatePerSec:      c.Notify.RatePerSec,
		TelegramToken:   logging.MaskValue(c.Telegram.Token),
		ShutdownTimeout: c.Daemon.ShutdownTimeout.String(),
	}
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	view := newConfigView(cfg)
	if isJSON() {
		return out.JSON(view)
	}

	rows := []output.TableRow{
		{Columns: []string{"owner", view.Owner}},
		{Columns: []string{"timezone", view.Timezone}},
		{Columns: []string{"storage.backend", view.Backend}},
		{Columns: []string{"storage.path", view.Path}},
		{Columns: []string{"scheduler.tick_interval", view.TickInterval}},
		{Columns: []string{"scheduler.lead_time", view.LeadTime}},
		{Columns: []string{"notify.channels", strings.Join(view.Channels, ", ")}},
	}
	if view.WebhookURL != "" {
		rows = append(rows,
			output.TableRow{Columns: []string{"notify.webhook_url", view.WebhookURL}},
			output.TableRow{Columns: []string{"notify.webhook_type", view.WebhookType}},
		)
	}
	rows = append(rows, output.TableRow{Columns: []string{"notify.rate_per_sec", strconv.Itoa(view.RatePerSec)}})
	if view.TelegramToken != "" {
		rows = append(rows, output.TableRow{Columns: []string{"telegram.token", view.TelegramToken}})
	}
	rows = append(rows, output.TableRow{Columns: []string{"daemon.shutdown_timeout", view.ShutdownTimeout}})

	output.NewCLIFormatter(out).PrintTable([]string{"KEY", "VALUE"}, rows)
	return nil
}
