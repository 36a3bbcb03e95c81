package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/manav03panchal/remindbot/internal/logging"
	"github.com/manav03panchal/remindbot/internal/notify"
)

// Options configures the Telegram connection.
type Options struct {
	Token       string
	PollTimeout time.Duration
	// Offline skips the getMe call so the bot can be built without network.
	Offline bool
}

// Bot routes Telegram commands to Commands.
type Bot struct {
	tb       *tele.Bot
	commands *Commands
	logger   *slog.Logger
}

// New connects to Telegram and registers every command.
func New(opts Options, commands *Commands, logger *slog.Logger) (*Bot, error) {
	if logger == nil {
		logger = logging.Logger()
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 10 * time.Second
	}

	b := &Bot{commands: commands, logger: logger}
	tb, err := tele.NewBot(tele.Settings{
		Token:   opts.Token,
		Poller:  &tele.LongPoller{Timeout: opts.PollTimeout},
		Offline: opts.Offline,
		OnError: func(err error, c tele.Context) {
			logger.Error("telegram handler failed", logging.KeyError, err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	b.tb = tb
	b.register()
	return b, nil
}

// Sender exposes the bot for direct-message reminders.
func (b *Bot) Sender() notify.Sender {
	return b.tb
}

// Run polls for updates until ctx is canceled, then stops polling and
// cancels every running Pomodoro.
func (b *Bot) Run(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.tb.Start()
	}()

	<-ctx.Done()
	b.tb.Stop()
	<-done
	b.commands.Timers().StopAll()
}

func (b *Bot) register() {
	b.tb.Handle("/start", b.reply(func(ctx context.Context, c tele.Context, owner string) string {
		return HelpText
	}))
	b.tb.Handle("/help", b.reply(func(ctx context.Context, c tele.Context, owner string) string {
		return HelpText
	}))

	b.tb.Handle("/add_task", b.reply(func(ctx context.Context, c tele.Context, owner string) string {
		return b.commands.AddTask(ctx, owner, c.Message().Payload)
	}))
	b.tb.Handle("/list_tasks", b.reply(func(ctx context.Context, c tele.Context, owner string) string {
		return b.commands.ListTasks(ctx, owner)
	}))
	b.tb.Handle("/complete_task", b.reply(func(ctx context.Context, c tele.Context, owner string) string {
		return b.commands.CompleteTask(ctx, owner, c.Message().Payload)
	}))
	b.tb.Handle("/remove_task", b.reply(func(ctx context.Context, c tele.Context, owner string) string {
		return b.commands.RemoveTask(ctx, owner, c.Message().Payload)
	}))

	b.tb.Handle("/add_event", b.reply(func(ctx context.Context, c tele.Context, owner string) string {
		return b.commands.AddEvent(ctx, owner, c.Message().Payload)
	}))
	b.tb.Handle("/list_events", b.reply(func(ctx context.Context, c tele.Context, owner string) string {
		return b.commands.ListEvents(ctx, owner)
	}))
	b.tb.Handle("/remove_event", b.reply(func(ctx context.Context, c tele.Context, owner string) string {
		return b.commands.RemoveEvent(ctx, owner, c.Message().Payload)
	}))

	b.tb.Handle("/pomodoro", b.reply(func(ctx context.Context, c tele.Context, owner string) string {
		chat := c.Chat()
		return b.commands.Pomodoro(chatKey(chat), c.Args(), func(msg string) {
			if _, err := b.tb.Send(chat, msg); err != nil {
				b.logger.Warn("pomodoro message not sent", logging.KeyChannel, notify.ChannelTelegram, logging.KeyError, err)
			}
		})
	}))
	b.tb.Handle("/stop_pomodoro", b.reply(func(ctx context.Context, c tele.Context, owner string) string {
		return b.commands.StopPomodoro(chatKey(c.Chat()))
	}))
}

type handlerFunc func(ctx context.Context, c tele.Context, owner string) string

// reply adapts a handler to telebot: it derives the owner from the sender,
// gives the update a request id and sends the returned text.
func (b *Bot) reply(fn handlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		owner, ok := OwnerOf(c.Sender())
		if !ok || c.Chat() == nil {
			return nil
		}
		ctx := logging.WithLogger(logging.NewRequestContext(context.Background()), b.logger)
		return c.Send(fn(ctx, c, owner))
	}
}

// OwnerOf returns the owner id for a Telegram user: the decimal user id,
// which is also the user's private chat id.
func OwnerOf(u *tele.User) (string, bool) {
	if u == nil || u.ID == 0 {
		return "", false
	}
	return strconv.FormatInt(u.ID, 10), true
}

func chatKey(chat *tele.Chat) string {
	return strconv.FormatInt(chat.ID, 10)
}
