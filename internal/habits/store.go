// Package habits holds the single source of truth for a user's habits and
// their daily completion records. The store mediates every write to the
// document provider, mirrors the latest collection snapshots in memory, and
// recomputes the derived "today" view and history whenever the provider's
// change feed pushes an update.
package habits

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/umbral/internal/constants"
	"github.com/julianstephens/umbral/internal/document"
	"github.com/julianstephens/umbral/internal/errors"
	"github.com/julianstephens/umbral/internal/history"
	"github.com/julianstephens/umbral/internal/logger"
	"github.com/julianstephens/umbral/internal/models"
	"github.com/julianstephens/umbral/internal/reminder"
	"github.com/julianstephens/umbral/internal/utils"
	"github.com/julianstephens/umbral/internal/validation"
)

// Store owns the in-memory snapshot of one user's habit data.
//
// Commands mutate the snapshot optimistically and push the remote write in
// the background; the provider's watch feed reconciles the snapshot with
// whatever actually landed. Only reminder updates are awaited, because
// their step ordering (permission, persist, cancel, schedule) is
// load-bearing.
type Store struct {
	docs     *document.Scoped
	bridge   *reminder.Bridge
	timezone string

	mu          sync.RWMutex
	habits      []models.Habit
	completions []models.Completion
	loaded      bool

	subs   []func()
	errs   chan error
	writes chan func() error

	now func() time.Time
}

// New creates a store for the given owner over the provider. The bridge may
// be nil when the build has no notification scheduler; SetReminder then
// only persists the time.
func New(provider document.Provider, ownerID, timezone string, bridge *reminder.Bridge) *Store {
	return &Store{
		docs:     document.NewScoped(provider, ownerID),
		bridge:   bridge,
		timezone: timezone,
		errs:     make(chan error, constants.ErrorQueueSize),
		writes:   make(chan func() error, constants.ErrorQueueSize),
		now:      time.Now,
	}
}

// Start performs the initial snapshot load, seeds first-time users, and
// begins consuming the provider's change feed. It returns once the first
// load completed; Loading reports false from then on.
func (s *Store) Start(ctx context.Context) error {
	if err := s.reloadHabits(); err != nil {
		return fmt.Errorf("failed to load habits: %w", err)
	}
	if err := s.reloadCompletions(); err != nil {
		return fmt.Errorf("failed to load completions: %w", err)
	}

	s.mu.Lock()
	s.loaded = true
	s.mu.Unlock()

	if err := s.seedIfNeeded(); err != nil {
		// A failed seed batch is atomic, so the empty-collection
		// precondition still holds and the next start retries safely.
		s.report(fmt.Errorf("%w: %v", errors.ErrSeeding, err))
	}

	events, err := s.docs.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to changes: %w", err)
	}
	go s.pump(ctx, events)
	go s.drainWrites(ctx)

	return nil
}

// Reload discards the snapshot and repeats the initial load and seeding
// against the provider's current contents. Callers use it after replacing
// the underlying storage out from under a started store.
func (s *Store) Reload() error {
	s.mu.Lock()
	s.habits = nil
	s.completions = nil
	s.mu.Unlock()

	if err := s.reloadHabits(); err != nil {
		return fmt.Errorf("failed to load habits: %w", err)
	}
	if err := s.reloadCompletions(); err != nil {
		return fmt.Errorf("failed to load completions: %w", err)
	}
	if err := s.seedIfNeeded(); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrSeeding, err)
	}
	s.notify()
	return nil
}

// Loading reports whether the initial snapshot load is still in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.loaded
}

// Subscribe registers fn to run after every snapshot change. Callbacks run
// on the mutating goroutine and must not block.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Errors exposes the side-channel for failed fire-and-forget writes. The
// channel is bounded; overflow is logged and dropped.
func (s *Store) Errors() <-chan error {
	return s.errs
}

// Today returns the current calendar day in the store's timezone.
func (s *Store) Today() string {
	loc, err := utils.LoadLocation(s.timezone)
	if err != nil {
		loc = time.Local
	}
	return s.now().In(loc).Format(constants.DateFormat)
}

// Habits returns the derived display list: every habit annotated with its
// completion state for today, ascending by creation time (stable).
func (s *Store) Habits() []models.DisplayHabit {
	today := s.Today()

	s.mu.RLock()
	defer s.mu.RUnlock()

	hist := history.ByDay(s.completions)
	display := make([]models.DisplayHabit, len(s.habits))
	for i, h := range s.habits {
		display[i] = models.DisplayHabit{
			Habit:     h,
			Completed: hist.CompletedOn(h.ID, today),
		}
	}
	sort.SliceStable(display, func(i, j int) bool {
		return display[i].CreatedAt.Before(display[j].CreatedAt)
	})
	return display
}

// History returns the date-grouped view of all completions.
func (s *Store) History() models.History {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return history.ByDay(s.completions)
}

// Get returns the habit with the given id from the current snapshot.
func (s *Store) Get(id string) (models.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, h := range s.habits {
		if h.ID == id {
			return h, nil
		}
	}
	return models.Habit{}, fmt.Errorf("habit %q not found", id)
}

// GetByName returns the habit with the given display name.
func (s *Store) GetByName(name string) (models.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, h := range s.habits {
		if h.Name == name {
			return h, nil
		}
	}
	return models.Habit{}, fmt.Errorf("habit %q not found", name)
}

// Add validates the name and creates a new habit. The remote write is
// fire-and-forget: Add returns once the snapshot is updated locally, and a
// failed write surfaces on Errors, not here.
func (s *Store) Add(name string) (models.Habit, error) {
	trimmed, err := validation.HabitName(name)
	if err != nil {
		return models.Habit{}, err
	}

	habit := models.Habit{
		ID:        uuid.New().String(),
		Name:      trimmed,
		OwnerID:   s.docs.OwnerID(),
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	s.habits = append(s.habits, habit)
	s.mu.Unlock()
	s.notify()

	s.enqueue(func() error {
		data, err := json.Marshal(habit)
		if err != nil {
			return err
		}
		return s.docs.Set(s.docs.Doc(constants.HabitsCollection, habit.ID), data)
	})

	return habit, nil
}

// Toggle flips the habit's completion state for today.
func (s *Store) Toggle(id string) error {
	return s.ToggleOn(id, s.Today())
}

// ToggleOn flips the habit's completion state for the given day. The write
// is a read-modify-write on the derived view: if a completion exists it is
// deleted, otherwise one is created. Because the completion document id is
// the (habit, day) pair, re-creating an existing completion is an upsert
// and the pair can never be duplicated.
func (s *Store) ToggleOn(id, day string) error {
	if err := validation.Day(day); err != nil {
		return err
	}
	if _, err := s.Get(id); err != nil {
		return err
	}

	s.mu.Lock()
	idx := -1
	for i, c := range s.completions {
		if c.HabitID == id && c.Day == day {
			idx = i
			break
		}
	}

	path := s.docs.Doc(constants.CompletionsCollection, models.CompletionKey(id, day))
	if idx >= 0 {
		s.completions = append(s.completions[:idx], s.completions[idx+1:]...)
		s.mu.Unlock()
		s.notify()
		s.enqueue(func() error { return s.docs.Delete(path) })
		return nil
	}

	completion := models.Completion{
		HabitID:   id,
		Day:       day,
		OwnerID:   s.docs.OwnerID(),
		CreatedAt: s.now(),
	}
	s.completions = append(s.completions, completion)
	s.mu.Unlock()
	s.notify()

	s.enqueue(func() error {
		data, err := json.Marshal(completion)
		if err != nil {
			return err
		}
		return s.docs.Set(path, data)
	})
	return nil
}

// SetReminder updates only the habit's reminder time and keeps the
// notification scheduler in sync through the bridge. Unlike Add and Toggle
// this is awaited end to end; nothing changes when permission is denied.
func (s *Store) SetReminder(id string, timeStr *string) error {
	habit, err := s.Get(id)
	if err != nil {
		return err
	}

	persist := func() error {
		var value any
		if timeStr != nil {
			value = *timeStr
		}
		// Partial update: only reminder_time moves, name and created_at
		// stay untouched.
		return s.docs.Patch(
			s.docs.Doc(constants.HabitsCollection, id),
			map[string]any{"reminder_time": value},
		)
	}

	if s.bridge != nil {
		err = s.bridge.Set(id, habit.Name, timeStr, persist)
	} else {
		if err = validation.ReminderTime(timeStr); err == nil {
			err = persist()
		}
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	for i := range s.habits {
		if s.habits[i].ID == id {
			s.habits[i].ReminderTime = timeStr
			break
		}
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// pump consumes change events and reloads the affected collection.
func (s *Store) pump(ctx context.Context, events <-chan document.Event) {
	habitsPrefix := s.docs.Collection(constants.HabitsCollection)
	completionsPrefix := s.docs.Collection(constants.CompletionsCollection)

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			var err error
			switch evt.Collection {
			case habitsPrefix:
				err = s.reloadHabits()
			case completionsPrefix:
				err = s.reloadCompletions()
			case "":
				// Provider lost track of what changed; refresh everything.
				if err = s.reloadHabits(); err == nil {
					err = s.reloadCompletions()
				}
			default:
				continue
			}
			if err != nil {
				logger.Warn("Snapshot reload failed", "collection", evt.Collection, "error", err)
				continue
			}
			s.notify()
		}
	}
}

func (s *Store) reloadHabits() error {
	docs, err := s.docs.List(s.docs.Collection(constants.HabitsCollection))
	if err != nil {
		return err
	}

	habits := make([]models.Habit, 0, len(docs))
	for _, d := range docs {
		var h models.Habit
		if err := json.Unmarshal(d.Data, &h); err != nil {
			logger.Warn("Skipping malformed habit document", "path", d.Path, "error", err)
			continue
		}
		if h.ID == "" {
			h.ID = d.ID()
		}
		habits = append(habits, h)
	}
	sort.SliceStable(habits, func(i, j int) bool {
		return habits[i].CreatedAt.Before(habits[j].CreatedAt)
	})

	s.mu.Lock()
	s.habits = habits
	s.mu.Unlock()
	return nil
}

func (s *Store) reloadCompletions() error {
	docs, err := s.docs.List(s.docs.Collection(constants.CompletionsCollection))
	if err != nil {
		return err
	}

	completions := make([]models.Completion, 0, len(docs))
	for _, d := range docs {
		var c models.Completion
		if err := json.Unmarshal(d.Data, &c); err != nil {
			logger.Warn("Skipping malformed completion document", "path", d.Path, "error", err)
			continue
		}
		completions = append(completions, c)
	}

	s.mu.Lock()
	s.completions = completions
	s.mu.Unlock()
	return nil
}

// enqueue hands a remote write to the background drainer. A single worker
// keeps writes in command order, so a toggle's delete can never overtake
// the create it follows. Failures surface on the error side-channel, never
// to the caller.
func (s *Store) enqueue(fn func() error) {
	// The buffered send only blocks when the provider has stalled badly
	// enough to back up the whole queue; dropping or reordering the write
	// would be worse than the stall.
	s.writes <- fn
}

// Flush blocks until every write enqueued before the call has been
// attempted. Short-lived callers use it to make sure their mutations
// reached the provider before exiting.
func (s *Store) Flush() {
	done := make(chan struct{})
	s.writes <- func() error {
		close(done)
		return nil
	}
	<-done
}

func (s *Store) drainWrites(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-s.writes:
			if err := fn(); err != nil {
				s.report(fmt.Errorf("%w: %v", errors.ErrRemoteWrite, err))
			}
		}
	}
}

func (s *Store) report(err error) {
	logger.Error("Habit store error", "error", err)
	select {
	case s.errs <- err:
	default:
		logger.Warn("Error queue full, dropping", "error", err)
	}
}

func (s *Store) notify() {
	s.mu.RLock()
	subs := make([]func(), len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()
	for _, fn := range subs {
		fn()
	}
}
