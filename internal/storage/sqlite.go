package storage

import (
	"context"
	"database/sql"
	"embed"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/manav03panchal/remindbot/internal/errors"
	"github.com/manav03panchal/remindbot/internal/model"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// timeLayout is fixed width so stored instants sort lexically.
// Values are always written in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore keeps tasks and events in two relations,
// tasks(id, owner, description, completed) and
// events(id, owner, title, fire_at, notified).
//
// MarkNotified is a single conditional UPDATE; SQLite's write lock makes
// it a compare-and-set across connections and processes.
type SQLiteStore struct {
	db     *sql.DB
	closed atomic.Bool
}

// OpenSQLite opens or creates an SQLite database and applies migrations.
func OpenSQLite(opts Options) (*SQLiteStore, error) {
	dsn := opts.Path
	if opts.InMemory || opts.Path == "" {
		dsn = ":memory:"
	} else if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, storeErr("open", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storeErr("open", err)
	}
	// SQLite prefers a single writer; this also keeps an in-memory
	// database alive on one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	busy := opts.BusyTimeoutMS
	if busy <= 0 {
		busy = 5000
	}
	pragmas := []string{fmt.Sprintf("PRAGMA busy_timeout = %d", busy)}
	if dsn != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, storeErr("open", fmt.Errorf("%s: %w", p, err))
		}
	}

	st := &SQLiteStore{db: db}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, storeErr("migrate", err)
	}
	return st, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) ready() error {
	if s.closed.Load() {
		return errors.ErrStoreClosed
	}
	return nil
}

// CreateTask inserts a new task, assigning an id when none is set.
func (s *SQLiteStore) CreateTask(ctx context.Context, task *model.Task) error {
	if err := s.ready(); err != nil {
		return storeErr("create_task", err)
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks(id, owner, description, completed, created_at) VALUES(?,?,?,?,?)`,
		task.ID, task.Owner, task.Description, task.Completed, formatTime(task.CreatedAt),
	)
	return storeErr("create_task", err)
}

// ListOpenTasks returns the owner's tasks that are not completed.
func (s *SQLiteStore) ListOpenTasks(ctx context.Context, owner string) ([]*model.Task, error) {
	if err := s.ready(); err != nil {
		return nil, storeErr("list_open_tasks", err)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner, description, completed, created_at FROM tasks
		 WHERE owner = ? AND completed = 0 ORDER BY created_at, id`, owner)
	if err != nil {
		return nil, storeErr("list_open_tasks", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		var (
			t       model.Task
			created string
		)
		if err := rows.Scan(&t.ID, &t.Owner, &t.Description, &t.Completed, &created); err != nil {
			return nil, storeErr("list_open_tasks", err)
		}
		if t.CreatedAt, err = parseTime(created); err != nil {
			return nil, storeErr("list_open_tasks", err)
		}
		tasks = append(tasks, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list_open_tasks", err)
	}
	return tasks, nil
}

// CompleteTask marks the owner's task as completed.
func (s *SQLiteStore) CompleteTask(ctx context.Context, owner, id string) error {
	if err := s.ready(); err != nil {
		return storeErr("complete_task", err)
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET completed = 1 WHERE id = ? AND owner = ?`, id, owner)
	return storeErr("complete_task", err)
}

// DeleteTask removes the owner's task.
func (s *SQLiteStore) DeleteTask(ctx context.Context, owner, id string) error {
	if err := s.ready(); err != nil {
		return storeErr("delete_task", err)
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = ? AND owner = ?`, id, owner)
	return storeErr("delete_task", err)
}

// CreateEvent inserts a new event with notified = 0.
func (s *SQLiteStore) CreateEvent(ctx context.Context, event *model.Event) error {
	if err := s.ready(); err != nil {
		return storeErr("create_event", err)
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	event.FireAt = event.FireAt.UTC()
	event.Notified = false
	event.NotifiedAt = time.Time{}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events(id, owner, title, fire_at, notified, created_at) VALUES(?,?,?,?,0,?)`,
		event.ID, event.Owner, event.Title, formatTime(event.FireAt), formatTime(event.CreatedAt),
	)
	return storeErr("create_event", err)
}

// ListOpenEvents returns the owner's events that have not been notified.
func (s *SQLiteStore) ListOpenEvents(ctx context.Context, owner string) ([]*model.Event, error) {
	if err := s.ready(); err != nil {
		return nil, storeErr("list_open_events", err)
	}
	events, err := s.queryEvents(ctx,
		`SELECT id, owner, title, fire_at, notified, created_at FROM events
		 WHERE owner = ? AND notified = 0 ORDER BY fire_at, id`, owner)
	return events, storeErr("list_open_events", err)
}

// DeleteEvent removes the owner's event.
func (s *SQLiteStore) DeleteEvent(ctx context.Context, owner, id string) error {
	if err := s.ready(); err != nil {
		return storeErr("delete_event", err)
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM events WHERE id = ? AND owner = ?`, id, owner)
	return storeErr("delete_event", err)
}

// ListUnnotifiedEvents returns all events across owners that are still
// waiting for their reminder.
func (s *SQLiteStore) ListUnnotifiedEvents(ctx context.Context) ([]*model.Event, error) {
	if err := s.ready(); err != nil {
		return nil, storeErr("list_unnotified_events", err)
	}
	events, err := s.queryEvents(ctx,
		`SELECT id, owner, title, fire_at, notified, created_at FROM events
		 WHERE notified = 0 ORDER BY fire_at, id`)
	return events, storeErr("list_unnotified_events", err)
}

// MarkNotified flips the notified flag if and only if it is still 0.
func (s *SQLiteStore) MarkNotified(ctx context.Context, id string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, storeErr("mark_notified", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET notified = 1, notified_at = ? WHERE id = ? AND notified = 0`,
		formatTime(time.Now()), id)
	if err != nil {
		return false, storeErr("mark_notified", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr("mark_notified", err)
	}
	return n == 1, nil
}

func (s *SQLiteStore) queryEvents(ctx context.Context, query string, args ...any) ([]*model.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		var (
			ev              model.Event
			fireAt, created string
		)
		if err := rows.Scan(&ev.ID, &ev.Owner, &ev.Title, &fireAt, &ev.Notified, &created); err != nil {
			return nil, err
		}
		if ev.FireAt, err = parseTime(fireAt); err != nil {
			return nil, err
		}
		if ev.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// Rows written by hand may use plain RFC3339.
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, stderrors.Join(fmt.Errorf("bad timestamp %q", s), err)
		}
	}
	return t.UTC(), nil
}
