package scheduler

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/remindbot/internal/clock"
	"github.com/manav03panchal/remindbot/internal/errors"
	"github.com/manav03panchal/remindbot/internal/logging"
	"github.com/manav03panchal/remindbot/internal/model"
	"github.com/manav03panchal/remindbot/internal/storage"
)

var t0 = time.Date(2024, 8, 23, 14, 0, 0, 0, time.UTC)

type delivery struct {
	Owner  string
	Title  string
	FireAt time.Time
}

// recordingNotifier remembers every delivery attempt.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []delivery
	fail  error
}

func (r *recordingNotifier) Notify(ctx context.Context, owner, title string, fireAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, delivery{owner, title, fireAt})
	if r.fail != nil {
		return errors.NewDeliveryError("test", owner, r.fail)
	}
	return nil
}

func (r *recordingNotifier) Calls() []delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]delivery(nil), r.calls...)
}

var backends = []struct {
	name string
	opts storage.Options
}{
	{"sqlite", storage.Options{Backend: storage.BackendSQLite, InMemory: true}},
	{"badger", storage.Options{Backend: storage.BackendBadger, InMemory: true}},
}

func openStore(t *testing.T, opts storage.Options) storage.Store {
	t.Helper()
	st, err := storage.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestScheduler(t *testing.T, st storage.Store, n *recordingNotifier, clk clock.Clock) *Scheduler {
	t.Helper()
	s, err := NewScheduler(st, n, DefaultConfig(), WithClock(clk), WithLogger(logging.Discard()))
	require.NoError(t, err)
	return s
}

func addEvent(t *testing.T, st storage.Store, owner, title string, fireAt time.Time) *model.Event {
	t.Helper()
	ev := model.NewEvent(owner, title, fireAt)
	require.NoError(t, st.CreateEvent(context.Background(), ev))
	return ev
}

// =============================================================================
// Construction
// =============================================================================

func TestNewSchedulerRejectsBadConfig(t *testing.T) {
	st := openStore(t, backends[0].opts)

	_, err := NewScheduler(st, &recordingNotifier{}, Config{TickInterval: 0, LeadTime: time.Minute})
	assert.Error(t, err)

	_, err = NewScheduler(st, &recordingNotifier{}, Config{TickInterval: time.Minute, LeadTime: -time.Second})
	assert.Error(t, err)

	s, err := NewScheduler(st, &recordingNotifier{}, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, time.Minute, s.interval)
	assert.Equal(t, 10*time.Minute, s.checker.lead)
}

// =============================================================================
// Due window
// =============================================================================

func TestTickDueWindow(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			st := openStore(t, b.opts)
			n := &recordingNotifier{}
			s := newTestScheduler(t, st, n, clock.NewFake(t0))

			soon := addEvent(t, st, "alice", "soon", t0.Add(5*time.Minute))
			addEvent(t, st, "alice", "later", t0.Add(20*time.Minute))

			res, err := s.Tick(context.Background())
			require.NoError(t, err)
			assert.Equal(t, TickResult{Scanned: 2, Due: 1, Claimed: 1, Delivered: 1}, res)

			calls := n.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, delivery{"alice", "soon", soon.FireAt}, calls[0])
		})
	}
}

func TestTickWindowBoundsInclusive(t *testing.T) {
	st := openStore(t, backends[0].opts)
	n := &recordingNotifier{}
	s := newTestScheduler(t, st, n, clock.NewFake(t0))

	addEvent(t, st, "alice", "opens now", t0.Add(10*time.Minute))
	addEvent(t, st, "alice", "starts now", t0)
	addEvent(t, st, "alice", "just missed", t0.Add(-time.Nanosecond))
	addEvent(t, st, "alice", "not yet", t0.Add(10*time.Minute+time.Nanosecond))

	res, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Delivered)

	var titles []string
	for _, c := range n.Calls() {
		titles = append(titles, c.Title)
	}
	assert.ElementsMatch(t, []string{"opens now", "starts now"}, titles)
}

func TestTickMissedWindowIsNeverNotified(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			st := openStore(t, b.opts)
			n := &recordingNotifier{}
			fc := clock.NewFake(t0)
			s := newTestScheduler(t, st, n, fc)

			missed := addEvent(t, st, "alice", "yesterday's standup", t0.Add(-15*time.Minute))

			for i := 0; i < 3; i++ {
				res, err := s.Tick(context.Background())
				require.NoError(t, err)
				assert.Zero(t, res.Due)
				fc.Advance(time.Minute)
			}
			assert.Empty(t, n.Calls())

			// It silently ages out but stays un-notified in the store.
			open, err := st.ListOpenEvents(context.Background(), "alice")
			require.NoError(t, err)
			require.Len(t, open, 1)
			assert.Equal(t, missed.ID, open[0].ID)
		})
	}
}

// =============================================================================
// Scenarios
// =============================================================================

func TestStandupScenario(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			st := openStore(t, b.opts)
			n := &recordingNotifier{}
			T := t0.Add(time.Hour)
			fc := clock.NewFake(T.Add(-30 * time.Minute))
			s := newTestScheduler(t, st, n, fc)

			addEvent(t, st, "alice", "Standup", T)

			// Far from the window: nothing.
			_, err := s.Tick(context.Background())
			require.NoError(t, err)
			assert.Empty(t, n.Calls())

			fc.Set(T.Add(-9 * time.Minute))
			res, err := s.Tick(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 1, res.Delivered)

			fc.Set(T.Add(-1 * time.Minute))
			res, err = s.Tick(context.Background())
			require.NoError(t, err)
			assert.Zero(t, res.Scanned)

			calls := n.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, "alice", calls[0].Owner)
			assert.Equal(t, "Standup", calls[0].Title)
			assert.True(t, calls[0].FireAt.Equal(T))
		})
	}
}

func TestDeliveryFailureIsNotRetried(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			st := openStore(t, b.opts)
			n := &recordingNotifier{fail: stderrors.New("channel down")}
			fc := clock.NewFake(t0)
			s := newTestScheduler(t, st, n, fc)

			ev := addEvent(t, st, "alice", "Standup", t0.Add(5*time.Minute))

			res, err := s.Tick(context.Background())
			require.NoError(t, err, "delivery failures do not fail the tick")
			assert.Equal(t, TickResult{Scanned: 1, Due: 1, Claimed: 1, Failed: 1}, res)

			// The flag stays set.
			flipped, err := st.MarkNotified(context.Background(), ev.ID)
			require.NoError(t, err)
			assert.False(t, flipped)

			fc.Advance(time.Minute)
			res, err = s.Tick(context.Background())
			require.NoError(t, err)
			assert.Zero(t, res.Scanned)
			assert.Len(t, n.Calls(), 1)
		})
	}
}

// =============================================================================
// Concurrency
// =============================================================================

func TestConcurrentTicksNotifyAtMostOnce(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			st := openStore(t, b.opts)
			n := &recordingNotifier{}
			clk := clock.NewFake(t0)

			const events = 20
			for i := 0; i < events; i++ {
				addEvent(t, st, fmt.Sprintf("owner-%d", i%3), fmt.Sprintf("event-%d", i),
					t0.Add(time.Duration(i%10)*time.Minute))
			}

			// Several independent schedulers sharing one store, like
			// overlapping ticks or a second daemon.
			const racers = 8
			var (
				wg      sync.WaitGroup
				claimed atomic.Int32
				start   = make(chan struct{})
			)
			for i := 0; i < racers; i++ {
				s := newTestScheduler(t, st, n, clk)
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					res, err := s.Tick(context.Background())
					assert.NoError(t, err)
					claimed.Add(int32(res.Claimed))
				}()
			}
			close(start)
			wg.Wait()

			perTitle := make(map[string]int)
			for _, c := range n.Calls() {
				perTitle[c.Title]++
			}
			for title, count := range perTitle {
				assert.Equal(t, 1, count, "event %s notified %d times", title, count)
			}
			assert.Len(t, perTitle, events)
			assert.EqualValues(t, events, claimed.Load())
		})
	}
}

// =============================================================================
// Store failures
// =============================================================================

// flakyStore fails ListUnnotifiedEvents a fixed number of times.
type flakyStore struct {
	storage.Store
	failures atomic.Int32
}

func (f *flakyStore) ListUnnotifiedEvents(ctx context.Context) ([]*model.Event, error) {
	if f.failures.Add(-1) >= 0 {
		return nil, errors.NewStoreError("list_unnotified_events", stderrors.New("disk on fire"))
	}
	return f.Store.ListUnnotifiedEvents(ctx)
}

func TestTickStoreErrorIsReturned(t *testing.T) {
	st := &flakyStore{Store: openStore(t, backends[0].opts)}
	st.failures.Store(1)
	n := &recordingNotifier{}
	s := newTestScheduler(t, st, n, clock.NewFake(t0))
	addEvent(t, st, "alice", "Standup", t0.Add(time.Minute))

	_, err := s.Tick(context.Background())
	assert.True(t, errors.IsStoreError(err))
	assert.Empty(t, n.Calls())

	res, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Delivered)
}

// claimFailStore fails MarkNotified for one event id.
type claimFailStore struct {
	storage.Store
	failID string
}

func (c *claimFailStore) MarkNotified(ctx context.Context, id string) (bool, error) {
	if id == c.failID {
		return false, errors.NewStoreError("mark_notified", stderrors.New("database is locked"))
	}
	return c.Store.MarkNotified(ctx, id)
}

func TestTickClaimErrorSkipsEvent(t *testing.T) {
	base := openStore(t, backends[0].opts)
	n := &recordingNotifier{}
	stuck := addEvent(t, base, "alice", "Standup", t0.Add(time.Minute))
	addEvent(t, base, "bob", "Retro", t0.Add(2*time.Minute))

	st := &claimFailStore{Store: base, failID: stuck.ID}
	s := newTestScheduler(t, st, n, clock.NewFake(t0))

	res, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Due)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Delivered)
	require.Len(t, n.Calls(), 1)
	assert.Equal(t, "bob", n.Calls()[0].Owner)

	// The skipped event stays unnotified and is claimed once the store recovers.
	st.failID = ""
	res, err = s.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Delivered)
	require.Len(t, n.Calls(), 2)
	assert.Equal(t, "alice", n.Calls()[1].Owner)
}

func TestTickStopsOnCanceledContext(t *testing.T) {
	st := openStore(t, backends[0].opts)
	n := &recordingNotifier{}
	s := newTestScheduler(t, st, n, clock.NewFake(t0))
	addEvent(t, st, "alice", "Standup", t0.Add(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Tick(ctx)
	assert.Error(t, err)
	assert.Empty(t, n.Calls())
}

// =============================================================================
// Loop lifecycle
// =============================================================================

func TestStartRunsImmediately(t *testing.T) {
	st := openStore(t, backends[0].opts)
	n := &recordingNotifier{}
	s := newTestScheduler(t, st, n, clock.NewFake(t0))
	addEvent(t, st, "alice", "Standup", t0.Add(time.Minute))

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool { return len(n.Calls()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, s.NextRun().IsZero())
	assert.Error(t, s.Start(context.Background()), "second start is rejected")
}

func TestObserverSeesScheduledTicks(t *testing.T) {
	st := openStore(t, backends[0].opts)
	n := &recordingNotifier{}
	addEvent(t, st, "alice", "Standup", t0.Add(time.Minute))

	results := make(chan TickResult, 4)
	s, err := NewScheduler(st, n, DefaultConfig(),
		WithClock(clock.NewFake(t0)),
		WithLogger(logging.Discard()),
		WithObserver(func(res TickResult, err error) {
			if err == nil {
				results <- res
			}
		}))
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	select {
	case res := <-results:
		assert.Equal(t, 1, res.Delivered)
	case <-time.After(2 * time.Second):
		t.Fatal("observer was not called")
	}
}

func TestLoopSurvivesStoreErrors(t *testing.T) {
	st := &flakyStore{Store: openStore(t, backends[0].opts)}
	st.failures.Store(1)
	n := &recordingNotifier{}
	s, err := NewScheduler(st, n, Config{TickInterval: time.Second, LeadTime: 10 * time.Minute},
		WithClock(clock.NewFake(t0)), WithLogger(logging.Discard()))
	require.NoError(t, err)
	addEvent(t, st, "alice", "Standup", t0.Add(time.Minute))

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	// The first tick fails; a later one delivers.
	require.Eventually(t, func() bool { return len(n.Calls()) == 1 }, 5*time.Second, 20*time.Millisecond)
}

// panickyNotifier panics on its first call.
type panickyNotifier struct {
	recordingNotifier
	panicked atomic.Bool
}

func (p *panickyNotifier) Notify(ctx context.Context, owner, title string, fireAt time.Time) error {
	if p.panicked.CompareAndSwap(false, true) {
		panic("notifier exploded")
	}
	return p.recordingNotifier.Notify(ctx, owner, title, fireAt)
}

func TestLoopSurvivesPanics(t *testing.T) {
	st := openStore(t, backends[0].opts)
	n := &panickyNotifier{}
	s, err := NewScheduler(st, n, Config{TickInterval: time.Second, LeadTime: 10 * time.Minute},
		WithClock(clock.NewFake(t0)), WithLogger(logging.Discard()))
	require.NoError(t, err)
	addEvent(t, st, "alice", "first", t0.Add(time.Minute))

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, n.panicked.Load, 2*time.Second, 10*time.Millisecond)
	addEvent(t, st, "alice", "second", t0.Add(2*time.Minute))

	require.Eventually(t, func() bool { return len(n.Calls()) == 1 }, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "second", n.Calls()[0].Title)
}

// blockingNotifier blocks until its context is canceled.
type blockingNotifier struct {
	entered chan struct{}
	once    sync.Once
}

func (b *blockingNotifier) Notify(ctx context.Context, owner, title string, fireAt time.Time) error {
	b.once.Do(func() { close(b.entered) })
	<-ctx.Done()
	return ctx.Err()
}

func TestStopCancelsInFlightTick(t *testing.T) {
	st := openStore(t, backends[0].opts)
	n := &blockingNotifier{entered: make(chan struct{})}
	s, err := NewScheduler(st, n, DefaultConfig(), WithClock(clock.NewFake(t0)), WithLogger(logging.Discard()))
	require.NoError(t, err)
	ev := addEvent(t, st, "alice", "Standup", t0.Add(time.Minute))

	require.NoError(t, s.Start(context.Background()))

	select {
	case <-n.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("tick never reached the notifier")
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	assert.True(t, s.NextRun().IsZero())

	// The interrupted delivery is not retried.
	flipped, err := st.MarkNotified(context.Background(), ev.ID)
	require.NoError(t, err)
	assert.False(t, flipped)

	s.Stop() // idempotent
}

func TestStopWithoutStart(t *testing.T) {
	st := openStore(t, backends[0].opts)
	s := newTestScheduler(t, st, &recordingNotifier{}, clock.NewFake(t0))
	s.Stop()
}

func TestTickResultLogValue(t *testing.T) {
	v := TickResult{Scanned: 3, Due: 2, Claimed: 1, Delivered: 1}.LogValue()
	assert.Len(t, v.Group(), 6)
}
