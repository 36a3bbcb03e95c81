// Package scheduler runs the recurring reminder scan for the daemon.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/manav03panchal/remindbot/internal/clock"
	"github.com/manav03panchal/remindbot/internal/logging"
	"github.com/manav03panchal/remindbot/internal/notify"
	"github.com/manav03panchal/remindbot/internal/storage"
)

// Defaults for the timer configuration.
const (
	DefaultTickInterval = time.Minute
	DefaultLeadTime     = 10 * time.Minute
)

// Config is the timer configuration.
type Config struct {
	TickInterval time.Duration
	LeadTime     time.Duration
}

// DefaultConfig returns the default timer configuration.
func DefaultConfig() Config {
	return Config{
		TickInterval: DefaultTickInterval,
		LeadTime:     DefaultLeadTime,
	}
}

// Scheduler runs the reminder check once at start and then on every tick.
type Scheduler struct {
	cron     *cron.Cron
	checker  *ReminderChecker
	interval time.Duration
	logger   *slog.Logger
	observe  func(TickResult, error)

	mu      sync.Mutex
	running bool
	entry   cron.EntryID
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*options)

type options struct {
	clock   clock.Clock
	logger  *slog.Logger
	observe func(TickResult, error)
}

// WithClock sets the clock used to decide which events are due.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the logger; by default the global logger is used.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver registers fn to receive the outcome of every scheduled tick.
// Ticks cut short by Stop are not reported.
func WithObserver(fn func(TickResult, error)) Option {
	return func(o *options) { o.observe = fn }
}

// NewScheduler creates a new scheduler.
func NewScheduler(store storage.Store, notifier notify.Notifier, cfg Config, opts ...Option) (*Scheduler, error) {
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("tick interval must be positive, got %s", cfg.TickInterval)
	}
	if cfg.LeadTime <= 0 {
		return nil, fmt.Errorf("lead time must be positive, got %s", cfg.LeadTime)
	}

	o := options{clock: clock.Real{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.Logger()
	}

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger{l: o.logger}),
		),
		checker:  NewReminderChecker(store, notifier, o.clock, cfg.LeadTime),
		interval: cfg.TickInterval,
		logger:   o.logger,
		observe:  o.observe,
	}, nil
}

// Tick runs one scan now. It is safe to call concurrently with itself and
// with the recurring loop.
func (s *Scheduler) Tick(ctx context.Context) (TickResult, error) {
	return s.checker.Check(ctx)
}

// Start runs a first tick immediately and then one per tick interval until
// Stop is called or ctx is canceled. Errors and panics inside a tick are
// logged and never end the loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already started")
	}

	tickCtx, cancel := context.WithCancel(ctx)
	l := cronLogger{l: s.logger}
	job := cron.NewChain(cron.Recover(l), cron.SkipIfStillRunning(l)).
		Then(cron.FuncJob(func() { s.runTick(tickCtx) }))

	s.entry = s.cron.Schedule(cron.Every(s.interval), job)
	s.cron.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		job.Run()
	}()

	s.running = true
	s.cancel = cancel

	s.logger.Info("scheduler started", "tick_interval", s.interval.String(), "lead_time", s.checker.lead.String())
	return nil
}

// Stop stops scheduling new ticks, cancels the tick in flight and waits for
// it to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	cronCtx := s.cron.Stop()
	s.cancel()
	<-cronCtx.Done()
	s.wg.Wait()
	s.cron.Remove(s.entry)

	s.running = false
	s.logger.Info("scheduler stopped")
}

// NextRun returns when the next tick is due, or zero if not running.
func (s *Scheduler) NextRun() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) runTick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	ctx = logging.WithLogger(logging.NewRequestContext(ctx), s.logger)

	start := time.Now()
	res, err := s.Tick(ctx)
	log := logging.LoggerFromContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			log.Debug("tick interrupted", "result", res)
			return
		}
		log.Error("tick failed", logging.KeyError, err, "result", res)
	} else {
		log.Debug("tick complete", "result", res, logging.KeyDuration, time.Since(start).Milliseconds())
	}

	if s.observe != nil {
		s.observe(res, err)
	}
}
