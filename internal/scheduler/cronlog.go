package scheduler

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// cronLogger bridges cron's logger interface onto slog.
type cronLogger struct {
	l *slog.Logger
}

var _ cron.Logger = cronLogger{}

// Info logs routine cron messages at debug level; cron is chatty.
func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

// Error logs cron failures, including recovered job panics.
func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
