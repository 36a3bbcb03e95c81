package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// fileConfig mirrors the YAML layout. Durations are strings such as "90s".
// The Telegram token is deliberately absent: it comes from the environment.
type fileConfig struct {
	Scheduler struct {
		TickInterval string `yaml:"tick_interval"`
		LeadTime     string `yaml:"lead_time"`
	} `yaml:"scheduler"`

	Storage struct {
		Backend     string `yaml:"backend"`
		Path        string `yaml:"path"`
		BusyTimeout string `yaml:"busy_timeout"`
	} `yaml:"storage"`

	Notify struct {
		Channels        []string `yaml:"channels"`
		WebhookURL      string   `yaml:"webhook_url"`
		WebhookType     string   `yaml:"webhook_type"`
		WebhookTemplate string   `yaml:"webhook_template"`
		RatePerSec      *int     `yaml:"rate_per_sec"`
		Timeout         string   `yaml:"timeout"`
	} `yaml:"notify"`

	Telegram struct {
		PollTimeout string `yaml:"poll_timeout"`
	} `yaml:"telegram"`

	Daemon struct {
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	} `yaml:"daemon"`

	Owner    string `yaml:"owner"`
	Timezone string `yaml:"timezone"`
}

// LoadFile overlays the YAML file at path onto c. Unknown keys are errors.
func (c *RuntimeConfig) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := c.apply(data); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

func (c *RuntimeConfig) apply(data []byte) error {
	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && err != io.EOF {
		return fmt.Errorf("yaml unmarshal: %w", err)
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"scheduler.tick_interval", fc.Scheduler.TickInterval, &c.Scheduler.TickInterval},
		{"scheduler.lead_time", fc.Scheduler.LeadTime, &c.Scheduler.LeadTime},
		{"storage.busy_timeout", fc.Storage.BusyTimeout, &c.Storage.BusyTimeout},
		{"notify.timeout", fc.Notify.Timeout, &c.Notify.Timeout},
		{"telegram.poll_timeout", fc.Telegram.PollTimeout, &c.Telegram.PollTimeout},
		{"daemon.shutdown_timeout", fc.Daemon.ShutdownTimeout, &c.Daemon.ShutdownTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = v
	}

	if fc.Storage.Backend != "" {
		c.Storage.Backend = strings.ToLower(fc.Storage.Backend)
	}
	if fc.Storage.Path != "" {
		c.Storage.Path = fc.Storage.Path
	}

	if len(fc.Notify.Channels) > 0 {
		c.Notify.Channels = splitList(strings.Join(fc.Notify.Channels, ","))
	}
	if fc.Notify.WebhookURL != "" {
		c.Notify.WebhookURL = fc.Notify.WebhookURL
	}
	if fc.Notify.WebhookType != "" {
		c.Notify.WebhookType = strings.ToLower(fc.Notify.WebhookType)
	}
	if fc.Notify.WebhookTemplate != "" {
		c.Notify.WebhookTemplate = fc.Notify.WebhookTemplate
	}
	if fc.Notify.RatePerSec != nil {
		c.Notify.RatePerSec = *fc.Notify.RatePerSec
	}

	if fc.Owner != "" {
		c.Owner = fc.Owner
	}
	if fc.Timezone != "" {
		loc, err := time.LoadLocation(fc.Timezone)
		if err != nil {
			return fmt.Errorf("timezone: %w", err)
		}
		c.Location = loc
	}
	return nil
}
