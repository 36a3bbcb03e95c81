// Package service is the owner-scoped task and event API shared by the CLI
// and the chat bot. It validates input and delegates to a storage.Store.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/manav03panchal/remindbot/internal/clock"
	"github.com/manav03panchal/remindbot/internal/errors"
	"github.com/manav03panchal/remindbot/internal/logging"
	"github.com/manav03panchal/remindbot/internal/model"
	"github.com/manav03panchal/remindbot/internal/parser"
	"github.com/manav03panchal/remindbot/internal/storage"
	"github.com/manav03panchal/remindbot/internal/validate"
)

// MinPrefixLength is the shortest id prefix that is resolved to a full id.
const MinPrefixLength = 4

// Service validates commands and forwards them to the store.
//
// Complete and remove operations never report a missing or foreign id; they
// simply change nothing.
type Service struct {
	store storage.Store
	clock clock.Clock
	loc   *time.Location
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for creation times and relative event times.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLocation sets the zone used for event times that name no zone.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// New creates a Service over store.
func New(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		clock: clock.Real{},
		loc:   time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the zone user-facing times are interpreted and shown in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// AddTask creates an open task for owner.
func (s *Service) AddTask(ctx context.Context, owner, description string) (*model.Task, error) {
	description = validate.SanitizeText(description)
	if err := validateInput(owner, "description", description); err != nil {
		return nil, err
	}

	task := model.NewTask(owner, description)
	task.CreatedAt = s.clock.Now().UTC()
	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, err
	}

	logging.LoggerFromContext(ctx).DebugContext(ctx, "task added",
		logging.KeyOwner, owner, logging.KeyTaskID, task.ID)
	return task, nil
}

// ListTasks returns owner's open tasks, oldest first.
func (s *Service) ListTasks(ctx context.Context, owner string) ([]*model.Task, error) {
	if err := validate.Owner(owner); err != nil {
		return nil, err
	}
	return s.store.ListOpenTasks(ctx, owner)
}

// CompleteTask marks one of owner's tasks done. ref is an id or a unique
// prefix of one.
func (s *Service) CompleteTask(ctx context.Context, owner, ref string) error {
	if err := validate.Owner(owner); err != nil {
		return err
	}
	id, err := s.resolveTask(ctx, owner, ref)
	if err != nil {
		return err
	}
	return s.store.CompleteTask(ctx, owner, id)
}

// RemoveTask deletes one of owner's tasks.
func (s *Service) RemoveTask(ctx context.Context, owner, ref string) error {
	if err := validate.Owner(owner); err != nil {
		return err
	}
	id, err := s.resolveTask(ctx, owner, ref)
	if err != nil {
		return err
	}
	return s.store.DeleteTask(ctx, owner, id)
}

// AddEvent parses when and schedules an event for owner.
func (s *Service) AddEvent(ctx context.Context, owner, title, when string) (*model.Event, error) {
	title = validate.SanitizeText(title)
	if err := validateInput(owner, "title", title); err != nil {
		return nil, err
	}

	fireAt, err := parser.ParseEventTime(when, s.clock.Now(), s.loc)
	if err != nil {
		var tpe *parser.TimeParseError
		if errors.As(err, &tpe) {
			return nil, tpe.ToValidationError()
		}
		return nil, errors.NewValidationErrorWithValue("time", when,
			"could not parse time", errors.Suggestions[errors.ErrInvalidTimestamp], errors.ErrInvalidTimestamp)
	}

	return s.addEvent(ctx, owner, title, fireAt)
}

// AddEventAt schedules an event for an already resolved instant.
func (s *Service) AddEventAt(ctx context.Context, owner, title string, fireAt time.Time) (*model.Event, error) {
	title = validate.SanitizeText(title)
	if err := validateInput(owner, "title", title); err != nil {
		return nil, err
	}
	if fireAt.IsZero() {
		return nil, errors.NewValidationError("time", "Event time is required",
			errors.Suggestions[errors.ErrInvalidTimestamp], errors.ErrInvalidTimestamp)
	}
	return s.addEvent(ctx, owner, title, fireAt)
}

func (s *Service) addEvent(ctx context.Context, owner, title string, fireAt time.Time) (*model.Event, error) {
	event := model.NewEvent(owner, title, fireAt)
	event.CreatedAt = s.clock.Now().UTC()
	if err := s.store.CreateEvent(ctx, event); err != nil {
		return nil, err
	}

	logging.LoggerFromContext(ctx).DebugContext(ctx, "event scheduled",
		logging.KeyOwner, owner, logging.KeyEventID, event.ID, logging.KeyFireAt, event.FireAt)
	return event, nil
}

// ListEvents returns owner's events that have not been reminded yet,
// soonest first.
func (s *Service) ListEvents(ctx context.Context, owner string) ([]*model.Event, error) {
	if err := validate.Owner(owner); err != nil {
		return nil, err
	}
	return s.store.ListOpenEvents(ctx, owner)
}

// RemoveEvent deletes one of owner's events.
func (s *Service) RemoveEvent(ctx context.Context, owner, ref string) error {
	if err := validate.Owner(owner); err != nil {
		return err
	}
	id, err := s.resolveEvent(ctx, owner, ref)
	if err != nil {
		return err
	}
	return s.store.DeleteEvent(ctx, owner, id)
}

func validateInput(owner, field, text string) error {
	if err := validate.Owner(owner); err != nil {
		return err
	}
	return validate.Text(field, text)
}

func (s *Service) resolveTask(ctx context.Context, owner, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if len(ref) < MinPrefixLength {
		return ref, nil
	}
	tasks, err := s.store.ListOpenTasks(ctx, owner)
	if err != nil {
		return "", err
	}
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return resolvePrefix(ref, ids), nil
}

func (s *Service) resolveEvent(ctx context.Context, owner, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if len(ref) < MinPrefixLength {
		return ref, nil
	}
	events, err := s.store.ListOpenEvents(ctx, owner)
	if err != nil {
		return "", err
	}
	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	return resolvePrefix(ref, ids), nil
}

// resolvePrefix returns the single id ref is a prefix of. An exact match
// wins; otherwise ambiguous or unknown refs come back unchanged.
func resolvePrefix(ref string, ids []string) string {
	match := ""
	for _, id := range ids {
		if id == ref {
			return id
		}
		if strings.HasPrefix(id, ref) {
			if match != "" {
				return ref
			}
			match = id
		}
	}
	if match == "" {
		return ref
	}
	return match
}
