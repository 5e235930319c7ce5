// Package reminder keeps an external notification scheduler consistent with
// each habit's reminder time. The bridge owns the ordering of the protocol:
// permission is confirmed before anything persists, the old schedule is
// cancelled before the new one is registered.
package reminder

import (
	"fmt"

	"github.com/julianstephens/umbral/internal/constants"
	"github.com/julianstephens/umbral/internal/errors"
	"github.com/julianstephens/umbral/internal/logger"
	"github.com/julianstephens/umbral/internal/utils"
	"github.com/julianstephens/umbral/internal/validation"
)

// Payload carries what the host needs to render a reminder and act on tap.
type Payload struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	HabitID   string `json:"habit_id"`
	HabitName string `json:"habit_name"`
	Link      string `json:"link"` // deep-link target
}

// Scheduler is the per-device notification scheduler contract. Schedule
// registers a daily repeating notification keyed by id; Cancel of an
// unknown id must not be treated as an error.
type Scheduler interface {
	CheckPermission() (bool, error)
	RequestPermission() (bool, error)
	Schedule(id string, hour, minute int, payload Payload) error
	Cancel(id string) error
}

// Bridge runs the reminder protocol against a Scheduler.
type Bridge struct {
	scheduler Scheduler
}

// NewBridge returns a bridge over the given scheduler.
func NewBridge(scheduler Scheduler) *Bridge {
	return &Bridge{scheduler: scheduler}
}

// NewPayload builds the notification payload for a habit reminder.
func NewPayload(habitID, habitName string) Payload {
	return Payload{
		Title:     constants.ReminderTitle,
		Body:      fmt.Sprintf(constants.ReminderBodyFormat, habitName),
		HabitID:   habitID,
		HabitName: habitName,
		Link:      "umbral://habits/" + habitID,
	}
}

// Set executes the reminder protocol for one habit, in order:
//
//  1. For a non-nil time, confirm notification permission; denial aborts
//     before any state changes.
//  2. Persist the reminder time (the caller-provided persist func performs
//     the partial update).
//  3. Cancel any existing schedule for the habit.
//  4. For a non-nil time, register the new daily schedule.
//
// A nil timeStr clears the reminder.
func (b *Bridge) Set(habitID, habitName string, timeStr *string, persist func() error) error {
	if err := validation.ReminderTime(timeStr); err != nil {
		return err
	}

	if timeStr != nil {
		ok, err := b.ensurePermission()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: enable notifications to use reminders", errors.ErrPermissionDenied)
		}
	}

	if err := persist(); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrRemoteWrite, err)
	}

	if err := b.scheduler.Cancel(habitID); err != nil {
		// Cancellation of a non-existent schedule is a no-op by contract;
		// any other cancel failure is logged but does not abort, the
		// reschedule below supersedes the stale entry.
		logger.Warn("Failed to cancel reminder", "habit", habitID, "error", err)
	}

	if timeStr == nil {
		return nil
	}

	hour, minute, err := utils.ParseClock(*timeStr)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	if err := b.scheduler.Schedule(habitID, hour, minute, NewPayload(habitID, habitName)); err != nil {
		return fmt.Errorf("failed to schedule reminder: %w", err)
	}
	return nil
}

// ensurePermission checks the current permission state and requests it once
// if undetermined.
func (b *Bridge) ensurePermission() (bool, error) {
	ok, err := b.scheduler.CheckPermission()
	if err != nil {
		return false, fmt.Errorf("failed to check notification permission: %w", err)
	}
	if ok {
		return true, nil
	}
	ok, err = b.scheduler.RequestPermission()
	if err != nil {
		return false, fmt.Errorf("failed to request notification permission: %w", err)
	}
	return ok, nil
}
