package daemon

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/manav03panchal/remindbot/internal/errors"
	"github.com/manav03panchal/remindbot/internal/scheduler"
)

// Metrics accumulates scheduler tick outcomes for the status file.
type Metrics struct {
	ticks     atomic.Int64
	tickErrs  atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64
	skipped   atomic.Int64

	mu          sync.RWMutex
	lastTick    time.Time
	lastResult  scheduler.TickResult
	lastError   string
	lastErrorAt time.Time

	errorsByCategory map[string]int64
}

// NewMetrics creates an empty metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{errorsByCategory: make(map[string]int64)}
}

// MetricsSnapshot is a point-in-time view of Metrics.
type MetricsSnapshot struct {
	TicksTotal         int64            `json:"ticks_total"`
	TickErrorsTotal    int64            `json:"tick_errors_total"`
	RemindersDelivered int64            `json:"reminders_delivered_total"`
	RemindersFailed    int64            `json:"reminders_failed_total"`
	ClaimErrors        int64            `json:"claim_errors_total"`
	LastTick           *time.Time       `json:"last_tick,omitempty"`
	LastDue            int              `json:"last_due"`
	LastError          string           `json:"last_error,omitempty"`
	LastErrorAt        *time.Time       `json:"last_error_at,omitempty"`
	ErrorsByCategory   map[string]int64 `json:"errors_by_category,omitempty"`
}

// Observe records one tick. It matches scheduler.WithObserver.
func (m *Metrics) Observe(res scheduler.TickResult, err error) {
	m.ticks.Add(1)
	m.delivered.Add(int64(res.Delivered))
	m.failed.Add(int64(res.Failed))
	m.skipped.Add(int64(res.Skipped))

	now := time.Now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastTick = now
	m.lastResult = res
	if err != nil {
		m.tickErrs.Add(1)
		m.lastError = err.Error()
		m.lastErrorAt = now
		m.errorsByCategory[errors.Classify(err).String()]++
	}
}

// Snapshot returns a copy of the current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		TicksTotal:         m.ticks.Load(),
		TickErrorsTotal:    m.tickErrs.Load(),
		RemindersDelivered: m.delivered.Load(),
		RemindersFailed:    m.failed.Load(),
		ClaimErrors:        m.skipped.Load(),
		LastDue:            m.lastResult.Due,
		LastError:          m.lastError,
	}
	if !m.lastTick.IsZero() {
		t := m.lastTick
		snap.LastTick = &t
	}
	if !m.lastErrorAt.IsZero() {
		t := m.lastErrorAt
		snap.LastErrorAt = &t
	}
	if len(m.errorsByCategory) > 0 {
		snap.ErrorsByCategory = make(map[string]int64, len(m.errorsByCategory))
		for k, v := range m.errorsByCategory {
			snap.ErrorsByCategory[k] = v
		}
	}
	return snap
}

// Healthy reports whether the most recent tick succeeded.
func (s MetricsSnapshot) Healthy() bool {
	if s.LastErrorAt == nil {
		return true
	}
	return s.LastTick != nil && s.LastTick.After(*s.LastErrorAt)
}
