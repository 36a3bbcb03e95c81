package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/manav03panchal/remindbot/internal/clock"
	"github.com/manav03panchal/remindbot/internal/logging"
	"github.com/manav03panchal/remindbot/internal/notify"
	"github.com/manav03panchal/remindbot/internal/storage"
)

// TickResult counts what one scan did.
type TickResult struct {
	Scanned   int // un-notified events read from the store
	Due       int // events inside their reminder window
	Claimed   int // due events whose notified flag this tick flipped
	Delivered int // claimed events the notifier accepted
	Failed    int // claimed events the notifier rejected
	Skipped   int // due events whose claim hit a store error
}

// ReminderChecker runs the scan-and-fire step over every owner's events.
//
// A due event is claimed with MarkNotified before the notifier is called.
// Only the claimer notifies, and a failed delivery keeps the flag set, so
// each event is delivered at most once no matter how many checkers race.
type ReminderChecker struct {
	store    storage.Store
	notifier notify.Notifier
	clock    clock.Clock
	lead     time.Duration
}

// NewReminderChecker creates a new reminder checker.
func NewReminderChecker(store storage.Store, notifier notify.Notifier, clk clock.Clock, lead time.Duration) *ReminderChecker {
	if clk == nil {
		clk = clock.Real{}
	}
	return &ReminderChecker{
		store:    store,
		notifier: notifier,
		clock:    clk,
		lead:     lead,
	}
}

// Check scans for due events and notifies their owners.
//
// Failing to list events ends the scan and is returned. A failed claim skips
// that event only; it stays unnotified and is re-evaluated next tick.
// Delivery failures are counted, logged and never retried.
func (c *ReminderChecker) Check(ctx context.Context) (TickResult, error) {
	var res TickResult
	log := logging.LoggerFromContext(ctx)
	now := c.clock.Now()

	events, err := c.store.ListUnnotifiedEvents(ctx)
	if err != nil {
		log.ErrorContext(ctx, "failed to list events", logging.KeyError, err)
		return res, err
	}
	res.Scanned = len(events)

	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !ev.IsDue(now, c.lead) {
			continue
		}
		res.Due++

		claimed, err := c.store.MarkNotified(ctx, ev.ID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			res.Skipped++
			log.ErrorContext(ctx, "failed to claim event",
				logging.KeyEventID, ev.ID, logging.KeyError, err)
			continue
		}
		if !claimed {
			log.DebugContext(ctx, "event already claimed", logging.KeyEventID, ev.ID)
			continue
		}
		res.Claimed++

		if err := c.notifier.Notify(ctx, ev.Owner, ev.Title, ev.FireAt); err != nil {
			res.Failed++
			log.WarnContext(ctx, "reminder delivery failed",
				logging.KeyEventID, ev.ID,
				logging.KeyOwner, ev.Owner,
				logging.KeyError, err,
			)
			continue
		}
		res.Delivered++
		log.InfoContext(ctx, "reminder sent",
			logging.KeyEventID, ev.ID,
			logging.KeyOwner, ev.Owner,
			logging.KeyFireAt, ev.FireAt,
		)
	}

	return res, nil
}

// LogValue renders the result as a slog group.
func (r TickResult) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("scanned", r.Scanned),
		slog.Int("due", r.Due),
		slog.Int("claimed", r.Claimed),
		slog.Int("delivered", r.Delivered),
		slog.Int("failed", r.Failed),
		slog.Int("skipped", r.Skipped),
	)
}
