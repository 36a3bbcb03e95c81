package notify

import (
	"context"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/manav03panchal/remindbot/internal/errors"
	"github.com/manav03panchal/remindbot/internal/model"
)

// ChannelTelegram names the Telegram channel in errors and logs.
const ChannelTelegram = "telegram"

// Sender is the part of *tele.Bot used to deliver messages.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// TelegramNotifier sends reminders as direct messages. Owners are Telegram
// user ids, which double as private chat ids.
type TelegramNotifier struct {
	sender Sender
	loc    *time.Location
}

// NewTelegramNotifier creates a Telegram notifier over sender.
func NewTelegramNotifier(sender Sender, loc *time.Location) *TelegramNotifier {
	return &TelegramNotifier{sender: sender, loc: loc}
}

// Notify sends the reminder text to the owner's chat.
func (t *TelegramNotifier) Notify(ctx context.Context, owner, title string, fireAt time.Time) error {
	if t.sender == nil {
		return errors.NewDeliveryError(ChannelTelegram, owner, errors.ErrNotifierUnavailable)
	}
	chatID, err := ParseChatID(owner)
	if err != nil {
		return errors.NewDeliveryError(ChannelTelegram, owner, err)
	}
	if err := ctx.Err(); err != nil {
		return errors.NewDeliveryError(ChannelTelegram, owner, err)
	}

	msg := model.NewReminderNotification(owner, title, fireAt, t.loc).Message
	if _, err := t.sender.Send(tele.ChatID(chatID), msg); err != nil {
		return errors.NewDeliveryError(ChannelTelegram, owner, err)
	}
	return nil
}

// ParseChatID converts an owner id to a Telegram chat id.
func ParseChatID(owner string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(owner), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.ErrUnknownRecipient
	}
	return id, nil
}
