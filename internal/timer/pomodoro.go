// Package timer runs Pomodoro work/break cycles for chat users.
package timer

import (
	"context"
	"fmt"
	"time"
)

// SessionType represents the phase of a Pomodoro cycle.
type SessionType int

const (
	SessionWork SessionType = iota
	SessionBreak
)

// String returns the display name for the session type.
func (s SessionType) String() string {
	switch s {
	case SessionWork:
		return "WORK"
	case SessionBreak:
		return "BREAK"
	default:
		return "UNKNOWN"
	}
}

// PomodoroConfig holds the configuration for a Pomodoro cycle.
type PomodoroConfig struct {
	WorkDuration  time.Duration
	BreakDuration time.Duration
}

// DefaultPomodoroConfig returns 25 minutes of work followed by a 5 minute break.
func DefaultPomodoroConfig() PomodoroConfig {
	return PomodoroConfig{
		WorkDuration:  25 * time.Minute,
		BreakDuration: 5 * time.Minute,
	}
}

// Validate rejects non-positive durations.
func (c PomodoroConfig) Validate() error {
	if c.WorkDuration <= 0 {
		return fmt.Errorf("work duration must be positive, got %s", c.WorkDuration)
	}
	if c.BreakDuration <= 0 {
		return fmt.Errorf("break duration must be positive, got %s", c.BreakDuration)
	}
	return nil
}

// PomodoroEvent represents events from the pomodoro timer.
type PomodoroEvent int

const (
	EventStarted PomodoroEvent = iota
	EventSessionComplete
	EventAllComplete
	EventQuit
)

// PomodoroCallback is called when events occur. session is the phase the
// event belongs to.
type PomodoroCallback func(event PomodoroEvent, session SessionType)

// Pomodoro runs a single work phase followed by a single break.
type Pomodoro struct {
	config   PomodoroConfig
	callback PomodoroCallback
}

// NewPomodoro creates a new Pomodoro timer.
func NewPomodoro(config PomodoroConfig) *Pomodoro {
	return &Pomodoro{config: config}
}

// SetCallback sets the event callback.
func (p *Pomodoro) SetCallback(cb PomodoroCallback) {
	p.callback = cb
}

// Run blocks until the cycle finishes or ctx is canceled. Cancellation
// fires EventQuit and returns ctx.Err().
func (p *Pomodoro) Run(ctx context.Context) error {
	if err := p.config.Validate(); err != nil {
		return err
	}

	p.emit(EventStarted, SessionWork)
	if err := sleep(ctx, p.config.WorkDuration); err != nil {
		p.emit(EventQuit, SessionWork)
		return err
	}
	p.emit(EventSessionComplete, SessionWork)

	if err := sleep(ctx, p.config.BreakDuration); err != nil {
		p.emit(EventQuit, SessionBreak)
		return err
	}
	p.emit(EventAllComplete, SessionBreak)
	return nil
}

func (p *Pomodoro) emit(event PomodoroEvent, session SessionType) {
	if p.callback != nil {
		p.callback(event, session)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
