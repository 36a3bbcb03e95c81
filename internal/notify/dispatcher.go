package notify

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/manav03panchal/remindbot/internal/errors"
	"github.com/manav03panchal/remindbot/internal/logging"
)

// Dispatcher fans a reminder out to every configured channel concurrently.
// It fails only when every channel failed.
type Dispatcher struct {
	notifiers []Notifier
}

// NewDispatcher creates a dispatcher over notifiers.
func NewDispatcher(notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers}
}

// Len returns the number of channels.
func (d *Dispatcher) Len() int {
	return len(d.notifiers)
}

// Notify delivers to all channels and joins their errors when none succeeded.
// When some channels succeed the failures are logged as warnings.
func (d *Dispatcher) Notify(ctx context.Context, owner, title string, fireAt time.Time) error {
	switch len(d.notifiers) {
	case 0:
		return nil
	case 1:
		return d.notifiers[0].Notify(ctx, owner, title, fireAt)
	}

	var wg sync.WaitGroup
	results := make([]error, len(d.notifiers))

	for i, n := range d.notifiers {
		wg.Add(1)
		go func(idx int, n Notifier) {
			defer wg.Done()
			results[idx] = n.Notify(ctx, owner, title, fireAt)
		}(i, n)
	}
	wg.Wait()

	var failed []error
	for _, err := range results {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) == len(results) {
		return stderrors.Join(failed...)
	}

	log := logging.LoggerFromContext(ctx)
	for _, err := range failed {
		channel := "unknown"
		var de *errors.DeliveryError
		if errors.As(err, &de) {
			channel = de.Channel
		}
		log.WarnContext(ctx, "reminder channel failed",
			logging.KeyChannel, channel,
			logging.KeyOwner, owner,
			logging.KeyError, err,
		)
	}
	return nil
}
