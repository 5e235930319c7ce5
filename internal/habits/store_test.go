package habits

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/julianstephens/umbral/internal/constants"
	"github.com/julianstephens/umbral/internal/document"
	"github.com/julianstephens/umbral/internal/errors"
	"github.com/julianstephens/umbral/internal/models"
	"github.com/julianstephens/umbral/internal/reminder"
)

// fixedDay pins the store clock so "today" is deterministic.
var fixedDay = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, provider document.Provider, bridge *reminder.Bridge) *Store {
	t.Helper()
	// Mark the user as already seeded so tests start from an empty list.
	if err := provider.Set("users/u1/meta/"+constants.SeededMarkerID, []byte(`{"seeded_at":"2024-01-01T00:00:00Z"}`)); err != nil {
		t.Fatalf("marker: %v", err)
	}

	s := New(provider, "u1", "UTC", bridge)
	s.now = func() time.Time { return fixedDay }

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	return s
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestAddValidatesName(t *testing.T) {
	s := newTestStore(t, document.NewMemory(), nil)

	for _, name := range []string{"", "   ", "\t\n"} {
		if _, err := s.Add(name); !errors.Is(err, errors.ErrValidation) {
			t.Errorf("Add(%q) should fail validation, got %v", name, err)
		}
	}

	habit, err := s.Add("  Leer  ")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if habit.Name != "Leer" {
		t.Errorf("name should be trimmed, got %q", habit.Name)
	}
	if habit.ID == "" {
		t.Error("habit should get an id")
	}
	if habit.OwnerID != "u1" {
		t.Errorf("owner = %q, want u1", habit.OwnerID)
	}
}

func TestAddIsFireAndForget(t *testing.T) {
	provider := document.NewMemory()
	s := newTestStore(t, provider, nil)

	habit, err := s.Add("Leer")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	// Visible locally immediately.
	if got := s.Habits(); len(got) == 0 || got[len(got)-1].Name != "Leer" {
		t.Error("habit should appear in the snapshot before the write lands")
	}

	// And durable remotely shortly after.
	path := "users/u1/habits/" + habit.ID
	waitFor(t, func() bool {
		_, err := provider.Get(path)
		return err == nil
	}, "habit document never written to the provider")
}

func TestFlushWaitsForPendingWrites(t *testing.T) {
	provider := document.NewMemory()
	s := newTestStore(t, provider, nil)

	habit, err := s.Add("Leer")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	s.Flush()

	if _, err := provider.Get("users/u1/habits/" + habit.ID); err != nil {
		t.Errorf("write should be durable after Flush: %v", err)
	}
}

func TestAddWriteFailureSurfacesOnErrors(t *testing.T) {
	provider := &failingProvider{Memory: document.NewMemory()}
	s := newTestStore(t, provider, nil)
	provider.failSet = true

	if _, err := s.Add("Leer"); err != nil {
		t.Fatalf("add should not return the write error, got %v", err)
	}

	select {
	case err := <-s.Errors():
		if !errors.Is(err, errors.ErrRemoteWrite) {
			t.Errorf("expected ErrRemoteWrite, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("write failure never surfaced on the error channel")
	}
}

func TestToggleScenario(t *testing.T) {
	// Habit {id: h1, name: Leer}, no completions. Toggling on 2024-05-01
	// marks it completed and records the day in history; toggling again
	// clears both.
	provider := document.NewMemory()
	s := newTestStore(t, provider, nil)

	habit, err := s.Add("Leer")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := s.Toggle(habit.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	display := s.Habits()
	if len(display) != 1 || !display[0].Completed {
		t.Fatalf("habit should be completed today: %+v", display)
	}
	if !s.History().CompletedOn(habit.ID, "2024-05-01") {
		t.Error("history should record 2024-05-01")
	}

	if err := s.Toggle(habit.ID); err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if display := s.Habits(); display[0].Completed {
		t.Error("second toggle should clear completion")
	}
	if s.History().Count("2024-05-01") != 0 {
		t.Errorf("history for 2024-05-01 should be empty, got %d", s.History().Count("2024-05-01"))
	}
}

func TestToggleIsIdempotentPerPair(t *testing.T) {
	provider := document.NewMemory()
	s := newTestStore(t, provider, nil)

	habit, _ := s.Add("Leer")

	// An even number of rapid toggles restores the original state exactly,
	// locally and remotely.
	for i := 0; i < 4; i++ {
		if err := s.Toggle(habit.ID); err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
	}

	if s.Habits()[0].Completed {
		t.Error("even toggle count should leave the habit incomplete")
	}

	completionPath := "users/u1/habitCompletions/" + models.CompletionKey(habit.ID, "2024-05-01")
	waitFor(t, func() bool {
		_, err := provider.Get(completionPath)
		return err == document.ErrNotFound
	}, "completion document should not remain after an even toggle count")
}

func TestAtMostOneCompletionPerPair(t *testing.T) {
	provider := document.NewMemory()
	s := newTestStore(t, provider, nil)

	habit, _ := s.Add("Leer")

	for i := 0; i < 5; i++ {
		if err := s.Toggle(habit.ID); err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
	}

	// Odd count: completed, with exactly one document for the pair.
	if !s.Habits()[0].Completed {
		t.Error("odd toggle count should leave the habit completed")
	}
	waitFor(t, func() bool {
		docs, err := provider.List("users/u1/habitCompletions")
		return err == nil && len(docs) == 1
	}, "exactly one completion document should exist")
}

func TestToggleUnknownHabit(t *testing.T) {
	s := newTestStore(t, document.NewMemory(), nil)
	if err := s.Toggle("missing"); err == nil {
		t.Error("toggling an unknown habit should fail")
	}
}

func TestToggleOnValidatesDay(t *testing.T) {
	s := newTestStore(t, document.NewMemory(), nil)
	habit, _ := s.Add("Leer")
	if err := s.ToggleOn(habit.ID, "05/01/2024"); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("expected ErrValidation for bad date, got %v", err)
	}
}

func TestHabitsSortedByCreation(t *testing.T) {
	s := newTestStore(t, document.NewMemory(), nil)

	times := []time.Time{fixedDay, fixedDay.Add(time.Second), fixedDay.Add(2 * time.Second)}
	names := []string{"Caminar", "Leer", "Meditar"}
	for i, name := range names {
		tt := times[i]
		s.now = func() time.Time { return tt }
		if _, err := s.Add(name); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}

	display := s.Habits()
	if len(display) != 3 {
		t.Fatalf("expected 3 habits, got %d", len(display))
	}
	for i, name := range names {
		if display[i].Name != name {
			t.Errorf("position %d = %q, want %q", i, display[i].Name, name)
		}
	}
}

func TestLoadingClearsAfterStart(t *testing.T) {
	s := New(document.NewMemory(), "u1", "UTC", nil)
	if !s.Loading() {
		t.Error("store should be loading before Start")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.Loading() {
		t.Error("store should not be loading after Start")
	}
}

func TestSnapshotFollowsExternalWrites(t *testing.T) {
	// A write made by another client reaches this store through the
	// provider's change feed.
	provider := document.NewMemory()
	s := newTestStore(t, provider, nil)

	habit := models.Habit{ID: "ext1", Name: "Desde otro cliente", OwnerID: "u1", CreatedAt: fixedDay}
	data := fmt.Sprintf(`{"id":%q,"name":%q,"owner_id":"u1","created_at":%q}`,
		habit.ID, habit.Name, fixedDay.Format(time.RFC3339))
	if err := provider.Set("users/u1/habits/ext1", []byte(data)); err != nil {
		t.Fatalf("external set: %v", err)
	}

	waitFor(t, func() bool {
		for _, h := range s.Habits() {
			if h.ID == "ext1" {
				return true
			}
		}
		return false
	}, "external habit never reached the snapshot")
}

func TestSubscribeFiresOnChange(t *testing.T) {
	s := newTestStore(t, document.NewMemory(), nil)

	fired := make(chan struct{}, 8)
	s.Subscribe(func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})

	if _, err := s.Add("Leer"); err != nil {
		t.Fatalf("add: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("subscriber never notified")
	}
}

// --- reminder wiring ---

type recordingScheduler struct {
	granted   bool
	scheduled map[string][2]int
}

func (r *recordingScheduler) CheckPermission() (bool, error)   { return r.granted, nil }
func (r *recordingScheduler) RequestPermission() (bool, error) { return r.granted, nil }
func (r *recordingScheduler) Schedule(id string, hour, minute int, _ reminder.Payload) error {
	if r.scheduled == nil {
		r.scheduled = make(map[string][2]int)
	}
	r.scheduled[id] = [2]int{hour, minute}
	return nil
}
func (r *recordingScheduler) Cancel(id string) error {
	delete(r.scheduled, id)
	return nil
}

func TestSetReminderPersistsOnlyReminderField(t *testing.T) {
	provider := document.NewMemory()
	sched := &recordingScheduler{granted: true}
	s := newTestStore(t, provider, reminder.NewBridge(sched))

	habit, _ := s.Add("Leer")
	path := "users/u1/habits/" + habit.ID
	waitFor(t, func() bool {
		_, err := provider.Get(path)
		return err == nil
	}, "habit never written")

	timeStr := "09:00"
	if err := s.SetReminder(habit.ID, &timeStr); err != nil {
		t.Fatalf("set reminder: %v", err)
	}

	got, err := s.Get(habit.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ReminderTime == nil || *got.ReminderTime != "09:00" {
		t.Errorf("snapshot reminder = %v, want 09:00", got.ReminderTime)
	}
	if got.Name != "Leer" || !got.CreatedAt.Equal(habit.CreatedAt) {
		t.Errorf("partial update clobbered other fields: %+v", got)
	}
	if sched.scheduled[habit.ID] != [2]int{9, 0} {
		t.Errorf("scheduler state = %v", sched.scheduled)
	}

	// Clearing.
	if err := s.SetReminder(habit.ID, nil); err != nil {
		t.Fatalf("clear reminder: %v", err)
	}
	got, _ = s.Get(habit.ID)
	if got.ReminderTime != nil {
		t.Errorf("reminder should be cleared, got %v", *got.ReminderTime)
	}
	if len(sched.scheduled) != 0 {
		t.Error("schedule should be cancelled")
	}
}

func TestSetReminderDeniedLeavesStateUntouched(t *testing.T) {
	provider := document.NewMemory()
	sched := &recordingScheduler{granted: false}
	s := newTestStore(t, provider, reminder.NewBridge(sched))

	habit, _ := s.Add("Leer")
	path := "users/u1/habits/" + habit.ID
	waitFor(t, func() bool {
		_, err := provider.Get(path)
		return err == nil
	}, "habit never written")

	timeStr := "09:00"
	err := s.SetReminder(habit.ID, &timeStr)
	if !errors.Is(err, errors.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	got, _ := s.Get(habit.ID)
	if got.ReminderTime != nil {
		t.Error("denied permission must leave ReminderTime unset")
	}
	if len(sched.scheduled) != 0 {
		t.Error("denied permission must not schedule")
	}
}

// failingProvider wraps Memory and injects Set failures.
type failingProvider struct {
	*document.Memory
	failSet bool
}

func (f *failingProvider) Set(path string, data []byte) error {
	if f.failSet {
		return fmt.Errorf("injected failure")
	}
	return f.Memory.Set(path, data)
}
