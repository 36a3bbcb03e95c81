package storage

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/manav03panchal/remindbot/internal/errors"
	"github.com/manav03panchal/remindbot/internal/model"
)

// maxConflictRetries bounds how often a read-modify-write transaction is
// replayed after Badger reports a write conflict.
const maxConflictRetries = 16

// ErrKeyNotFound is returned when a key is not found in the database.
var ErrKeyNotFound = stderrors.New("key not found")

// IsErrKeyNotFound returns true if the error is a key not found error.
func IsErrKeyNotFound(err error) bool {
	return stderrors.Is(err, ErrKeyNotFound) || stderrors.Is(err, badger.ErrKeyNotFound)
}

// BadgerStore keeps tasks and events as JSON values under "task:<id>" and
// "event:<id>" keys.
//
// Badger transactions are serializable: when two transactions read and
// then write the same event key, the later commit fails with ErrConflict
// and is replayed, at which point it observes notified=true.
type BadgerStore struct {
	db     *badger.DB
	closed atomic.Bool
}

// OpenBadger opens or creates a Badger database.
func OpenBadger(opts Options) (*BadgerStore, error) {
	var badgerOpts badger.Options

	if opts.InMemory || opts.Path == "" {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(opts.Path, 0755); err != nil {
			return nil, storeErr("open", err)
		}
		badgerOpts = badger.DefaultOptions(opts.Path)
	}

	// Reduce logging noise
	badgerOpts = badgerOpts.WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, storeErr("open", err)
	}

	return &BadgerStore{db: db}, nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

func (s *BadgerStore) ready(ctx context.Context) error {
	if s.closed.Load() {
		return errors.ErrStoreClosed
	}
	return ctx.Err()
}

// CreateTask stores a new task, assigning an id when none is set.
func (s *BadgerStore) CreateTask(ctx context.Context, task *model.Task) error {
	if err := s.ready(ctx); err != nil {
		return storeErr("create_task", err)
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	return storeErr("create_task", s.set(task))
}

// ListOpenTasks returns the owner's tasks that are not completed.
func (s *BadgerStore) ListOpenTasks(ctx context.Context, owner string) ([]*model.Task, error) {
	if err := s.ready(ctx); err != nil {
		return nil, storeErr("list_open_tasks", err)
	}
	all, err := getAllByPrefix(s.db, model.PrefixTask+":", func() *model.Task {
		return &model.Task{}
	})
	if err != nil {
		return nil, storeErr("list_open_tasks", err)
	}

	var open []*model.Task
	for _, t := range all {
		if t.OwnedBy(owner) && !t.Completed {
			open = append(open, t)
		}
	}
	sortTasks(open)
	return open, nil
}

// CompleteTask marks the owner's task as completed.
func (s *BadgerStore) CompleteTask(ctx context.Context, owner, id string) error {
	if err := s.ready(ctx); err != nil {
		return storeErr("complete_task", err)
	}
	err := s.update(ctx, func(txn *badger.Txn) error {
		task := &model.Task{}
		if err := get(txn, model.GenerateTaskKey(id), task); err != nil {
			return err
		}
		if !task.OwnedBy(owner) || task.Completed {
			return nil
		}
		task.Completed = true
		return put(txn, task)
	})
	return storeErr("complete_task", ignoreNotFound(err))
}

// DeleteTask removes the owner's task.
func (s *BadgerStore) DeleteTask(ctx context.Context, owner, id string) error {
	if err := s.ready(ctx); err != nil {
		return storeErr("delete_task", err)
	}
	err := s.update(ctx, func(txn *badger.Txn) error {
		task := &model.Task{}
		if err := get(txn, model.GenerateTaskKey(id), task); err != nil {
			return err
		}
		if !task.OwnedBy(owner) {
			return nil
		}
		return txn.Delete([]byte(task.GetKey()))
	})
	return storeErr("delete_task", ignoreNotFound(err))
}

// CreateEvent stores a new event, assigning an id when none is set.
// The notified flag is always stored as false.
func (s *BadgerStore) CreateEvent(ctx context.Context, event *model.Event) error {
	if err := s.ready(ctx); err != nil {
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
	return storeErr("create_event", s.set(event))
}

// ListOpenEvents returns the owner's events that have not been notified.
func (s *BadgerStore) ListOpenEvents(ctx context.Context, owner string) ([]*model.Event, error) {
	pending, err := s.listUnnotified(ctx, "list_open_events")
	if err != nil {
		return nil, err
	}
	var open []*model.Event
	for _, ev := range pending {
		if ev.OwnedBy(owner) {
			open = append(open, ev)
		}
	}
	return open, nil
}

// DeleteEvent removes the owner's event.
func (s *BadgerStore) DeleteEvent(ctx context.Context, owner, id string) error {
	if err := s.ready(ctx); err != nil {
		return storeErr("delete_event", err)
	}
	err := s.update(ctx, func(txn *badger.Txn) error {
		ev := &model.Event{}
		if err := get(txn, model.GenerateEventKey(id), ev); err != nil {
			return err
		}
		if !ev.OwnedBy(owner) {
			return nil
		}
		return txn.Delete([]byte(ev.GetKey()))
	})
	return storeErr("delete_event", ignoreNotFound(err))
}

// ListUnnotifiedEvents returns all events across owners that are still
// waiting for their reminder.
func (s *BadgerStore) ListUnnotifiedEvents(ctx context.Context) ([]*model.Event, error) {
	return s.listUnnotified(ctx, "list_unnotified_events")
}

func (s *BadgerStore) listUnnotified(ctx context.Context, op string) ([]*model.Event, error) {
	if err := s.ready(ctx); err != nil {
		return nil, storeErr(op, err)
	}
	all, err := getAllByPrefix(s.db, model.PrefixEvent+":", func() *model.Event {
		return &model.Event{}
	})
	if err != nil {
		return nil, storeErr(op, err)
	}

	var pending []*model.Event
	for _, ev := range all {
		if !ev.Notified {
			pending = append(pending, ev)
		}
	}
	sortEvents(pending)
	return pending, nil
}

// MarkNotified flips the notified flag inside a serializable transaction.
func (s *BadgerStore) MarkNotified(ctx context.Context, id string) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, storeErr("mark_notified", err)
	}

	var flipped bool
	err := s.update(ctx, func(txn *badger.Txn) error {
		flipped = false
		ev := &model.Event{}
		if err := get(txn, model.GenerateEventKey(id), ev); err != nil {
			return err
		}
		if ev.Notified {
			return nil
		}
		ev.Notified = true
		ev.NotifiedAt = time.Now().UTC()
		if err := put(txn, ev); err != nil {
			return err
		}
		flipped = true
		return nil
	})
	if err = ignoreNotFound(err); err != nil {
		return false, storeErr("mark_notified", err)
	}
	return flipped, nil
}

// update runs fn in a read-write transaction, replaying it on conflict.
func (s *BadgerStore) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		err = s.db.Update(fn)
		if !stderrors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func (s *BadgerStore) set(v model.Model) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return put(txn, v)
	})
}

func put(txn *badger.Txn, v model.Model) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set([]byte(v.GetKey()), data)
}

func get(txn *badger.Txn, key string, v model.Model) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return ErrKeyNotFound
		}
		return err
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, v); err != nil {
			return err
		}
		v.SetKey(key)
		return nil
	})
}

func ignoreNotFound(err error) error {
	if IsErrKeyNotFound(err) {
		return nil
	}
	return err
}

// getAllByPrefix retrieves all values with the given prefix.
func getAllByPrefix[T model.Model](db *badger.DB, prefix string, newFunc func() T) ([]T, error) {
	var results []T
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 100
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		prefixBytes := []byte(prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))
			err := item.Value(func(val []byte) error {
				v := newFunc()
				if err := json.Unmarshal(val, v); err != nil {
					return err
				}
				v.SetKey(key)
				results = append(results, v)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return results, err
}
