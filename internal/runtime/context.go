// Package runtime holds what a single CLI invocation needs: configuration,
// the open store, the task/event service and the output formatter.
package runtime

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/manav03panchal/remindbot/internal/clock"
	"github.com/manav03panchal/remindbot/internal/config"
	"github.com/manav03panchal/remindbot/internal/logging"
	"github.com/manav03panchal/remindbot/internal/output"
	"github.com/manav03panchal/remindbot/internal/service"
	"github.com/manav03panchal/remindbot/internal/storage"
)

// Context holds the application runtime context.
type Context struct {
	Config    *config.RuntimeConfig
	Store     storage.Store
	Service   *service.Service
	Formatter *output.Formatter
	Clock     clock.Clock
	Logger    *slog.Logger

	// Debug mode
	Debug bool
}

// Options configures the runtime context.
type Options struct {
	Format    output.Format
	ColorMode output.ColorMode
	Writer    io.Writer
	Clock     clock.Clock
	Debug     bool
	// InMemory opens a throwaway store, for tests.
	InMemory bool
}

// DefaultOptions returns default runtime options.
func DefaultOptions() Options {
	return Options{
		Format:    output.FormatCLI,
		ColorMode: output.ColorAuto,
		Writer:    os.Stdout,
	}
}

// New opens the configured store and builds the service around it.
func New(cfg *config.RuntimeConfig, opts Options) (*Context, error) {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}

	store, err := storage.Open(storage.Options{
		Backend:       cfg.Storage.Backend,
		Path:          cfg.StoragePath(),
		InMemory:      opts.InMemory,
		BusyTimeoutMS: cfg.Storage.BusyTimeout.Milliseconds(),
	})
	if err != nil {
		return nil, err
	}

	formatter := output.NewFormatter()
	formatter.Writer = opts.Writer
	formatter.Format = opts.Format
	formatter.ColorMode = opts.ColorMode
	formatter.Location = cfg.Location

	return &Context{
		Config:    cfg,
		Store:     store,
		Service:   service.New(store, service.WithClock(opts.Clock), service.WithLocation(cfg.Location)),
		Formatter: formatter,
		Clock:     opts.Clock,
		Logger:    logging.Logger(),
		Debug:     opts.Debug,
	}, nil
}

// Close closes the store.
func (c *Context) Close() error {
	if c.Store != nil {
		return c.Store.Close()
	}
	return nil
}

// Ctx returns a request-scoped context carrying the logger and a fresh
// request id.
func (c *Context) Ctx(parent context.Context) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	return logging.WithLogger(logging.NewRequestContext(parent), c.Logger)
}

// Now returns the current time from the context's clock.
func (c *Context) Now() time.Time {
	return c.Clock.Now()
}

// Owner returns the owner CLI commands act for.
func (c *Context) Owner() string {
	return c.Config.Owner
}

// CLIFormatter returns a CLI formatter.
func (c *Context) CLIFormatter() *output.CLIFormatter {
	return output.NewCLIFormatter(c.Formatter)
}

// JSONFormatter returns a JSON formatter.
func (c *Context) JSONFormatter() *output.JSONFormatter {
	return output.NewJSONFormatter(c.Formatter)
}

// IsJSON returns true if output format is JSON.
func (c *Context) IsJSON() bool {
	return c.Formatter.Format == output.FormatJSON
}
