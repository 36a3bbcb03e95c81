package daemon

import (
	"fmt"
	"io"

	"github.com/manav03panchal/remindbot/internal/config"
	"github.com/manav03panchal/remindbot/internal/errors"
	"github.com/manav03panchal/remindbot/internal/notify"
)

// BuildNotifier assembles the configured channels into one notifier.
// Remote channels are rate limited; stdout is not. sender may be nil when
// the telegram channel is disabled.
func BuildNotifier(cfg *config.RuntimeConfig, stdout io.Writer, sender notify.Sender) (notify.Notifier, error) {
	var notifiers []notify.Notifier
	for _, ch := range cfg.Notify.Channels {
		switch ch {
		case config.ChannelStdout:
			notifiers = append(notifiers, notify.NewWriterNotifier(stdout, cfg.Location))
		case config.ChannelWebhook:
			wh := notify.NewWebhookNotifier(notify.WebhookOptions{
				URL:      cfg.Notify.WebhookURL,
				Type:     cfg.Notify.WebhookType,
				Template: cfg.Notify.WebhookTemplate,
				Timeout:  cfg.Notify.Timeout,
				Location: cfg.Location,
			})
			notifiers = append(notifiers, notify.NewRateLimited(wh, notify.ChannelWebhook, cfg.Notify.RatePerSec))
		case config.ChannelTelegram:
			if sender == nil {
				return nil, errors.Wrap(errors.ErrNotifierUnavailable, "telegram channel enabled without a bot")
			}
			tg := notify.NewTelegramNotifier(sender, cfg.Location)
			notifiers = append(notifiers, notify.NewRateLimited(tg, notify.ChannelTelegram, cfg.Notify.RatePerSec))
		default:
			return nil, fmt.Errorf("unknown notification channel %q", ch)
		}
	}

	switch len(notifiers) {
	case 0:
		return nil, fmt.Errorf("no notification channel configured")
	case 1:
		return notifiers[0], nil
	default:
		return notify.NewDispatcher(notifiers...), nil
	}
}
