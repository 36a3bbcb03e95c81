package storage

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/remindbot/internal/errors"
	"github.com/manav03panchal/remindbot/internal/model"
)

// backends lists every Store implementation the contract tests run against.
var backends = []struct {
	name string
	open func(t *testing.T) Store
}{
	{"badger", func(t *testing.T) Store {
		s, err := OpenBadger(Options{InMemory: true})
		require.NoError(t, err)
		return s
	}},
	{"sqlite_memory", func(t *testing.T) Store {
		s, err := OpenSQLite(Options{InMemory: true})
		require.NoError(t, err)
		return s
	}},
	{"sqlite_file", func(t *testing.T) Store {
		s, err := OpenSQLite(Options{Path: filepath.Join(t.TempDir(), "test.db")})
		require.NoError(t, err)
		return s
	}},
}

// forEachBackend runs fn against a fresh store of every backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			t.Cleanup(func() { s.Close() })
			fn(t, s)
		})
	}
}

// =============================================================================
// Open Tests
// =============================================================================

func TestOpen(t *testing.T) {
	t.Run("default_backend_is_sqlite", func(t *testing.T) {
		s, err := Open(Options{InMemory: true})
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &SQLiteStore{}, s)
	})

	t.Run("badger", func(t *testing.T) {
		s, err := Open(Options{Backend: "Badger", InMemory: true})
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &BadgerStore{}, s)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := Open(Options{Backend: "mongo"})
		assert.Error(t, err)
	})
}

func TestDefaultPath(t *testing.T) {
	assert.Contains(t, DefaultPath(BackendSQLite), "remindbot")
	assert.Equal(t, "remindbot.db", filepath.Base(DefaultPath(BackendSQLite)))
	assert.Equal(t, "db", filepath.Base(DefaultPath(BackendBadger)))
}

func TestCloseIsIdempotent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		require.NoError(t, s.Close())
		assert.NoError(t, s.Close())

		_, err := s.ListUnnotifiedEvents(context.Background())
		assert.True(t, errors.IsStoreError(err))
		assert.ErrorIs(t, err, errors.ErrStoreClosed)
	})
}

// =============================================================================
// Task Tests
// =============================================================================

func TestCreateAndListTasks(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		first := model.NewTask("alice", "write report")
		first.CreatedAt = time.Now().UTC().Add(-time.Minute)
		require.NoError(t, s.CreateTask(ctx, first))
		assert.NotEmpty(t, first.ID)

		require.NoError(t, s.CreateTask(ctx, model.NewTask("alice", "buy milk")))
		require.NoError(t, s.CreateTask(ctx, model.NewTask("bob", "bob's task")))

		tasks, err := s.ListOpenTasks(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		assert.Equal(t, "write report", tasks[0].Description)
		assert.Equal(t, "buy milk", tasks[1].Description)
		for _, task := range tasks {
			assert.Equal(t, "alice", task.Owner)
			assert.False(t, task.Completed)
		}
	})
}

func TestTaskIDsAreUnique(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seen := make(map[string]bool)
		for i := 0; i < 20; i++ {
			task := model.NewTask("alice", "t")
			require.NoError(t, s.CreateTask(ctx, task))
			assert.False(t, seen[task.ID])
			seen[task.ID] = true
		}
	})
}

func TestCompleteTask(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		task := model.NewTask("alice", "x")
		require.NoError(t, s.CreateTask(ctx, task))

		require.NoError(t, s.CompleteTask(ctx, "alice", task.ID))
		tasks, err := s.ListOpenTasks(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, tasks)

		// Completing again is harmless.
		assert.NoError(t, s.CompleteTask(ctx, "alice", task.ID))
	})
}

func TestDeleteTask(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		task := model.NewTask("alice", "x")
		require.NoError(t, s.CreateTask(ctx, task))

		require.NoError(t, s.DeleteTask(ctx, "alice", task.ID))
		tasks, err := s.ListOpenTasks(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, tasks)

		// Deleting again is a no-op.
		assert.NoError(t, s.DeleteTask(ctx, "alice", task.ID))
	})
}

func TestCrossOwnerTaskMutationIsNoop(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		task := model.NewTask("alice", "private")
		require.NoError(t, s.CreateTask(ctx, task))

		assert.NoError(t, s.CompleteTask(ctx, "mallory", task.ID))
		assert.NoError(t, s.DeleteTask(ctx, "mallory", task.ID))

		tasks, err := s.ListOpenTasks(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, task.ID, tasks[0].ID)
		assert.False(t, tasks[0].Completed)

		others, err := s.ListOpenTasks(ctx, "mallory")
		require.NoError(t, err)
		assert.Empty(t, others)
	})
}

func TestUnknownTaskMutationIsNoop(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		assert.NoError(t, s.CompleteTask(ctx, "alice", "does-not-exist"))
		assert.NoError(t, s.DeleteTask(ctx, "alice", "does-not-exist"))
	})
}

// =============================================================================
// Event Tests
// =============================================================================

func TestCreateAndListEvents(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		base := time.Date(2024, 8, 23, 14, 30, 0, 0, time.UTC)

		later := model.NewEvent("alice", "Retro", base.Add(time.Hour))
		sooner := model.NewEvent("alice", "Standup", base)
		require.NoError(t, s.CreateEvent(ctx, later))
		require.NoError(t, s.CreateEvent(ctx, sooner))
		require.NoError(t, s.CreateEvent(ctx, model.NewEvent("bob", "Lunch", base.Add(30*time.Minute))))

		events, err := s.ListOpenEvents(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "Standup", events[0].Title)
		assert.Equal(t, "Retro", events[1].Title)
		assert.True(t, events[0].FireAt.Equal(base))
		assert.Equal(t, time.UTC, events[0].FireAt.Location())

		all, err := s.ListUnnotifiedEvents(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"Standup", "Lunch", "Retro"},
			[]string{all[0].Title, all[1].Title, all[2].Title})
	})
}

func TestCreateEventNormalisesFireAt(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		loc := time.FixedZone("UTC-7", -7*3600)
		local := time.Date(2024, 8, 23, 7, 30, 0, 123, loc)

		ev := &model.Event{Owner: "alice", Title: "x", FireAt: local, Notified: true}
		require.NoError(t, s.CreateEvent(ctx, ev))
		assert.False(t, ev.Notified, "new events always start un-notified")

		events, err := s.ListOpenEvents(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.True(t, events[0].FireAt.Equal(local))
	})
}

func TestDeleteEvent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		ev := model.NewEvent("alice", "x", time.Now().Add(time.Hour))
		require.NoError(t, s.CreateEvent(ctx, ev))

		// Another owner cannot remove it.
		require.NoError(t, s.DeleteEvent(ctx, "bob", ev.ID))
		events, err := s.ListOpenEvents(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, events, 1)

		require.NoError(t, s.DeleteEvent(ctx, "alice", ev.ID))
		events, err = s.ListOpenEvents(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, events)

		assert.NoError(t, s.DeleteEvent(ctx, "alice", ev.ID))
	})
}

// =============================================================================
// MarkNotified Tests
// =============================================================================

func TestMarkNotifiedTwice(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		ev := model.NewEvent("alice", "Standup", time.Now().Add(5*time.Minute))
		require.NoError(t, s.CreateEvent(ctx, ev))

		flipped, err := s.MarkNotified(ctx, ev.ID)
		require.NoError(t, err)
		assert.True(t, flipped)

		pending, err := s.ListUnnotifiedEvents(ctx)
		require.NoError(t, err)
		assert.Empty(t, pending)

		flipped, err = s.MarkNotified(ctx, ev.ID)
		require.NoError(t, err)
		assert.False(t, flipped)

		pending, err = s.ListUnnotifiedEvents(ctx)
		require.NoError(t, err)
		assert.Empty(t, pending)
		open, err := s.ListOpenEvents(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, open)
	})
}

func TestMarkNotifiedUnknownID(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		flipped, err := s.MarkNotified(context.Background(), "missing")
		require.NoError(t, err)
		assert.False(t, flipped)
	})
}

func TestMarkNotifiedConcurrent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		ev := model.NewEvent("alice", "Standup", time.Now().Add(5*time.Minute))
		require.NoError(t, s.CreateEvent(ctx, ev))

		const racers = 32
		var (
			wg      sync.WaitGroup
			winners atomic.Int32
			start   = make(chan struct{})
		)
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				flipped, err := s.MarkNotified(ctx, ev.ID)
				assert.NoError(t, err)
				if flipped {
					winners.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		assert.EqualValues(t, 1, winners.Load())
	})
}

func TestMarkNotifiedPersistsAcrossReopen(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "reopen.db")
		ctx := context.Background()

		s, err := OpenSQLite(Options{Path: path})
		require.NoError(t, err)
		ev := model.NewEvent("alice", "x", time.Now().Add(time.Minute))
		require.NoError(t, s.CreateEvent(ctx, ev))
		flipped, err := s.MarkNotified(ctx, ev.ID)
		require.NoError(t, err)
		require.True(t, flipped)
		require.NoError(t, s.Close())

		s, err = OpenSQLite(Options{Path: path})
		require.NoError(t, err)
		defer s.Close()
		flipped, err = s.MarkNotified(ctx, ev.ID)
		require.NoError(t, err)
		assert.False(t, flipped)
	})

	t.Run("badger", func(t *testing.T) {
		dir := t.TempDir()
		ctx := context.Background()

		s, err := OpenBadger(Options{Path: dir})
		require.NoError(t, err)
		ev := model.NewEvent("alice", "x", time.Now().Add(time.Minute))
		require.NoError(t, s.CreateEvent(ctx, ev))
		flipped, err := s.MarkNotified(ctx, ev.ID)
		require.NoError(t, err)
		require.True(t, flipped)
		require.NoError(t, s.Close())

		s, err = OpenBadger(Options{Path: dir})
		require.NoError(t, err)
		defer s.Close()
		flipped, err = s.MarkNotified(ctx, ev.ID)
		require.NoError(t, err)
		assert.False(t, flipped)
	})
}

func TestCanceledContext(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := s.ListUnnotifiedEvents(ctx)
		assert.Error(t, err)
		assert.True(t, errors.IsStoreError(err))
	})
}

func TestSQLitePragmas(t *testing.T) {
	s, err := OpenSQLite(Options{Path: filepath.Join(t.TempDir(), "test.db"), BusyTimeoutMS: 1234})
	require.NoError(t, err)
	defer s.Close()

	var busy int
	require.NoError(t, s.db.QueryRow("PRAGMA busy_timeout").Scan(&busy))
	assert.Equal(t, 1234, busy)

	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestSQLitePragmaFailure(t *testing.T) {
	// A directory cannot be opened as a database file.
	_, err := OpenSQLite(Options{Path: t.TempDir()})
	require.Error(t, err)
	assert.True(t, errors.IsStoreError(err))
	assert.Contains(t, err.Error(), "busy_timeout")
}

func TestParseTime(t *testing.T) {
	ts := time.Date(2024, 8, 23, 14, 30, 0, 500, time.UTC)
	got, err := parseTime(formatTime(ts))
	require.NoError(t, err)
	assert.True(t, got.Equal(ts))

	got, err = parseTime("2024-08-23T16:30:00+02:00")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 8, 23, 14, 30, 0, 0, time.UTC)))

	_, err = parseTime("yesterday")
	assert.Error(t, err)
}
