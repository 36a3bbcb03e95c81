// Package storage provides the durable task and event store for remindbot.
//
// Two backends implement Store: an embedded Badger key-value database and
// an SQLite database holding the tasks and events relations. Both serialise
// MarkNotified so that at most one caller ever flips an event's notified
// flag.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/xdg"

	"github.com/manav03panchal/remindbot/internal/errors"
	"github.com/manav03panchal/remindbot/internal/model"
)

const (
	// AppName is the application name used for data directories.
	AppName = "remindbot"

	// BackendSQLite selects the SQLite store.
	BackendSQLite = "sqlite"
	// BackendBadger selects the Badger store.
	BackendBadger = "badger"
)

// Store is the durable mapping of tasks and events.
//
// Owner-scoped mutations affect nothing, and return no error, when the id
// does not exist or belongs to someone else.
type Store interface {
	CreateTask(ctx context.Context, task *model.Task) error
	ListOpenTasks(ctx context.Context, owner string) ([]*model.Task, error)
	CompleteTask(ctx context.Context, owner, id string) error
	DeleteTask(ctx context.Context, owner, id string) error

	CreateEvent(ctx context.Context, event *model.Event) error
	ListOpenEvents(ctx context.Context, owner string) ([]*model.Event, error)
	DeleteEvent(ctx context.Context, owner, id string) error

	// ListUnnotifiedEvents returns every owner's events whose notified flag
	// is still false, ordered by fire time.
	ListUnnotifiedEvents(ctx context.Context) ([]*model.Event, error)
	// MarkNotified flips the event's notified flag. It returns true only
	// for the single call that performed the false to true transition.
	MarkNotified(ctx context.Context, id string) (bool, error)

	Close() error
}

// Options configures the store.
type Options struct {
	// Backend is BackendSQLite or BackendBadger. Empty means SQLite.
	Backend string
	// Path is the database location. For SQLite it is a file; for Badger
	// a directory. Empty string uses in-memory mode.
	Path string
	// InMemory forces in-memory mode regardless of Path.
	InMemory bool
	// BusyTimeoutMS bounds how long SQLite waits on a lock held by another
	// process.
	BusyTimeoutMS int64
}

// DefaultPath returns the default database path for a backend following
// the XDG base directory layout.
func DefaultPath(backend string) string {
	if backend == BackendBadger {
		return filepath.Join(xdg.DataHome, AppName, "db")
	}
	return filepath.Join(xdg.DataHome, AppName, "remindbot.db")
}

// Open opens the configured backend.
func Open(opts Options) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendSQLite:
		return OpenSQLite(opts)
	case BackendBadger:
		return OpenBadger(opts)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}

func storeErr(op string, err error) error {
	return errors.NewStoreError(op, err)
}

func sortTasks(tasks []*model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
}

func sortEvents(events []*model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].FireAt.Equal(events[j].FireAt) {
			return events[i].FireAt.Before(events[j].FireAt)
		}
		return events[i].ID < events[j].ID
	})
}
