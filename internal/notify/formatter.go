// Package notify delivers event reminders over stdout, chat webhooks and
// Telegram.
package notify

import (
	"context"
	"time"

	"github.com/manav03panchal/remindbot/internal/model"
)

// Notifier delivers one reminder to an owner. Implementations make a single
// attempt; the scheduler never retries.
type Notifier interface {
	Notify(ctx context.Context, owner, title string, fireAt time.Time) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, owner, title string, fireAt time.Time) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, owner, title string, fireAt time.Time) error {
	return f(ctx, owner, title, fireAt)
}

// Webhook types.
const (
	WebhookTypeDiscord = "discord"
	WebhookTypeSlack   = "slack"
	WebhookTypeTeams   = "teams"
	WebhookTypeGeneric = "generic"
)

// Formatter formats notifications for a specific webhook type.
type Formatter interface {
	// Format converts a notification into the webhook-specific payload.
	Format(n *model.Notification) ([]byte, error)

	// ContentType returns the HTTP Content-Type for the payload.
	ContentType() string
}

// GetFormatter returns the appropriate formatter for a webhook type.
func GetFormatter(webhookType string) Formatter {
	switch webhookType {
	case WebhookTypeDiscord:
		return &DiscordFormatter{}
	case WebhookTypeSlack:
		return &SlackFormatter{}
	case WebhookTypeTeams:
		return &TeamsFormatter{}
	default:
		return &GenericFormatter{}
	}
}

// ValidWebhookType reports whether t names a known formatter.
func ValidWebhookType(t string) bool {
	switch t {
	case WebhookTypeDiscord, WebhookTypeSlack, WebhookTypeTeams, WebhookTypeGeneric:
		return true
	}
	return false
}
