package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/manav03panchal/remindbot/internal/errors"
	"github.com/manav03panchal/remindbot/internal/logging"
	"github.com/manav03panchal/remindbot/internal/model"
)

// ChannelWebhook names the webhook channel in errors and logs.
const ChannelWebhook = "webhook"

// WebhookNotifier posts reminders to a chat webhook (Discord, Slack, Teams
// or a generic JSON endpoint).
type WebhookNotifier struct {
	url       string
	formatter Formatter
	client    *HTTPClient
	loc       *time.Location
}

// WebhookOptions configures a WebhookNotifier.
type WebhookOptions struct {
	URL      string
	Type     string
	Template string // generic webhooks only
	Timeout  time.Duration
	Location *time.Location
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(opts WebhookOptions) *WebhookNotifier {
	var formatter Formatter
	if opts.Type == WebhookTypeGeneric && opts.Template != "" {
		formatter = NewGenericFormatter(opts.Template)
	} else {
		formatter = GetFormatter(opts.Type)
	}
	return &WebhookNotifier{
		url:       opts.URL,
		formatter: formatter,
		client:    NewHTTPClient(opts.Timeout),
		loc:       opts.Location,
	}
}

// Notify formats and posts a single reminder.
func (w *WebhookNotifier) Notify(ctx context.Context, owner, title string, fireAt time.Time) error {
	n := model.NewReminderNotification(owner, title, fireAt, w.loc)

	payload, err := w.formatter.Format(n)
	if err != nil {
		return errors.NewDeliveryError(ChannelWebhook, owner, fmt.Errorf("failed to format notification: %w", err))
	}

	result := w.client.Send(ctx, w.url, w.formatter.ContentType(), payload)
	if result.Error != nil {
		return errors.NewDeliveryError(ChannelWebhook, owner, result.Error)
	}

	logging.LoggerFromContext(ctx).DebugContext(ctx, "webhook delivered",
		logging.KeyChannel, ChannelWebhook,
		logging.KeyOwner, owner,
		"status", result.StatusCode,
		logging.KeyDuration, result.Duration.Milliseconds(),
	)
	return nil
}
