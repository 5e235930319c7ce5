package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/julianstephens/umbral/internal/logger"
	"github.com/julianstephens/umbral/internal/models"
	"github.com/julianstephens/umbral/internal/reminder"
	"github.com/julianstephens/umbral/internal/utils"
)

type scheduleEntry struct {
	hour    int
	minute  int
	payload reminder.Payload
}

// Dispatcher delivers habit reminders through the tray application. It
// implements reminder.Scheduler: permission maps to the tray app being
// reachable, and scheduled entries fire when the wall clock matches their
// HH:MM.
type Dispatcher struct {
	notifier *Notifier

	mu      sync.Mutex
	entries map[string]scheduleEntry

	// Seams for tests.
	deliver func(text string) error
	now     func() time.Time
}

func NewDispatcher(n *Notifier) *Dispatcher {
	return &Dispatcher{
		notifier: n,
		entries:  make(map[string]scheduleEntry),
		deliver:  n.Notify,
		now:      time.Now,
	}
}

// CheckPermission reports whether notifications can be delivered, which
// for the tray transport means the tray process is running.
func (d *Dispatcher) CheckPermission() (bool, error) {
	return d.notifier.Available(), nil
}

// RequestPermission re-checks availability. The tray app owns the OS-level
// notification prompt; there is nothing to request from here.
func (d *Dispatcher) RequestPermission() (bool, error) {
	return d.notifier.Available(), nil
}

// Hydrate restores schedules for reminder times persisted in earlier
// sessions. Without it a fresh process would only fire reminders set
// through the bridge after startup.
func (d *Dispatcher) Hydrate(habits []models.DisplayHabit) {
	for _, h := range habits {
		if h.ReminderTime == nil {
			continue
		}
		hour, minute, err := utils.ParseClock(*h.ReminderTime)
		if err != nil {
			logger.Warn("Skipping malformed reminder time", "habit", h.ID, "time", *h.ReminderTime)
			continue
		}
		d.Schedule(h.ID, hour, minute, reminder.NewPayload(h.ID, h.Name))
	}
}

func (d *Dispatcher) Schedule(id string, hour, minute int, payload reminder.Payload) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[id] = scheduleEntry{hour: hour, minute: minute, payload: payload}
	return nil
}

func (d *Dispatcher) Cancel(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, id)
	return nil
}

// Run fires due reminders once per minute until the context is cancelled.
// Ticks are aligned to the minute boundary so a reminder set for 09:00
// goes out at 09:00:00, not up to a minute late.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		next := d.now().Truncate(time.Minute).Add(time.Minute)
		select {
		case <-ctx.Done():
			return
		case <-time.After(next.Sub(d.now())):
		}
		d.tick(d.now())
	}
}

// tick delivers every entry whose HH:MM matches the given time.
func (d *Dispatcher) tick(at time.Time) {
	d.mu.Lock()
	due := make([]scheduleEntry, 0, len(d.entries))
	for _, e := range d.entries {
		if e.hour == at.Hour() && e.minute == at.Minute() {
			due = append(due, e)
		}
	}
	d.mu.Unlock()

	for _, e := range due {
		text := e.payload.Title + "\n" + e.payload.Body
		if err := d.deliver(text); err != nil {
			logger.Warn("Failed to deliver reminder", "habit", e.payload.HabitID, "error", err)
		}
	}
}
