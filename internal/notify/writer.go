package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/manav03panchal/remindbot/internal/errors"
	"github.com/manav03panchal/remindbot/internal/model"
)

// ChannelStdout names the writer channel in errors and logs.
const ChannelStdout = "stdout"

// WriterNotifier prints one reminder line per delivery.
type WriterNotifier struct {
	mu  sync.Mutex
	w   io.Writer
	loc *time.Location
}

// NewWriterNotifier creates a notifier writing to w; nil means stdout.
func NewWriterNotifier(w io.Writer, loc *time.Location) *WriterNotifier {
	if w == nil {
		w = os.Stdout
	}
	return &WriterNotifier{w: w, loc: loc}
}

// Notify writes "[owner] Reminder: ..." to the writer.
func (n *WriterNotifier) Notify(ctx context.Context, owner, title string, fireAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return errors.NewDeliveryError(ChannelStdout, owner, err)
	}
	msg := model.NewReminderNotification(owner, title, fireAt, n.loc).Message

	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := fmt.Fprintf(n.w, "[%s] %s\n", owner, msg); err != nil {
		return errors.NewDeliveryError(ChannelStdout, owner, err)
	}
	return nil
}
