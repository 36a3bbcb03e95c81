package timer

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/manav03panchal/remindbot/internal/logging"
)

// ErrManagerClosed is returned by Start after StopAll.
var ErrManagerClosed = errors.New("pomodoro manager is closed")

// Manager keeps at most one running Pomodoro per key (a chat id).
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session
	closed   bool
	wg       sync.WaitGroup
	logger   *slog.Logger
}

type session struct {
	cancel context.CancelFunc
}

// NewManager returns an empty manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.Logger()
	}
	return &Manager{
		sessions: make(map[string]*session),
		logger:   logger,
	}
}

// Start launches a Pomodoro for key in the background, canceling any
// Pomodoro already running for it. It reports whether one was replaced.
func (m *Manager) Start(key string, cfg PomodoroConfig, cb PomodoroCallback) (bool, error) {
	if err := cfg.Validate(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, ErrManagerClosed
	}

	prev, replaced := m.sessions[key]
	if replaced {
		prev.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{cancel: cancel}
	m.sessions[key] = s

	p := NewPomodoro(cfg)
	p.SetCallback(cb)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Warn("pomodoro failed", logging.KeyError, err)
		}
		m.mu.Lock()
		if m.sessions[key] == s {
			delete(m.sessions, key)
		}
		m.mu.Unlock()
	}()

	return replaced, nil
}

// Cancel stops the Pomodoro running for key and reports whether there was one.
func (m *Manager) Cancel(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key]
	if !ok {
		return false
	}
	s.cancel()
	delete(m.sessions, key)
	return true
}

// Active reports whether a Pomodoro is running for key.
func (m *Manager) Active(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[key]
	return ok
}

// StopAll cancels every running Pomodoro, waits for them to return and
// refuses further Starts.
func (m *Manager) StopAll() {
	m.mu.Lock()
	m.closed = true
	for key, s := range m.sessions {
		s.cancel()
		delete(m.sessions, key)
	}
	m.mu.Unlock()

	m.wg.Wait()
}
