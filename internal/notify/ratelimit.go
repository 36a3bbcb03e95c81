package notify

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/manav03panchal/remindbot/internal/errors"
)

// RateLimited spaces out deliveries through a token bucket so a burst of
// due events does not trip the provider's own limits.
type RateLimited struct {
	next    Notifier
	channel string
	limiter *rate.Limiter
}

// NewRateLimited wraps next with a limiter allowing rps deliveries per
// second. rps <= 0 disables limiting.
func NewRateLimited(next Notifier, channel string, rps int) *RateLimited {
	var lim *rate.Limiter
	if rps > 0 {
		lim = rate.NewLimiter(rate.Limit(rps), rps)
	}
	return &RateLimited{next: next, channel: channel, limiter: lim}
}

// Notify waits for a token and then delegates.
func (r *RateLimited) Notify(ctx context.Context, owner, title string, fireAt time.Time) error {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return errors.NewDeliveryError(r.channel, owner, err)
		}
	}
	return r.next.Notify(ctx, owner, title, fireAt)
}
