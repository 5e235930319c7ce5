package habits

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/umbral/internal/constants"
	"github.com/julianstephens/umbral/internal/document"
	"github.com/julianstephens/umbral/internal/logger"
	"github.com/julianstephens/umbral/internal/models"
)

// seedMarker is the per-user document recording that the default habit set
// was written. Its presence, not the collection's emptiness, is what gates
// seeding, so a user who deletes every habit is never re-seeded.
type seedMarker struct {
	SeededAt time.Time `json:"seeded_at"`
}

// seedIfNeeded writes the default habit set for first-time users. The
// default habits and the marker go out in one atomic batch: a partial seed
// can never remain, and retrying after failure is safe because the
// precondition still holds.
func (s *Store) seedIfNeeded() error {
	s.mu.RLock()
	count := len(s.habits)
	s.mu.RUnlock()
	if count > 0 {
		return nil
	}

	if _, err := s.docs.Get(s.docs.Doc(constants.MetaCollection, constants.SeededMarkerID)); err == nil {
		// Already seeded once; the user emptied their list on purpose.
		return nil
	} else if err != document.ErrNotFound {
		return err
	}

	now := s.now()
	seeded := make([]models.Habit, 0, len(constants.DefaultHabitNames))
	var batch document.Batch
	for i, name := range constants.DefaultHabitNames {
		habit := models.Habit{
			ID:      uuid.New().String(),
			Name:    name,
			OwnerID: s.docs.OwnerID(),
			// Staggered timestamps keep the default list in a defined
			// order under the created-at sort.
			CreatedAt: now.Add(time.Duration(i) * time.Millisecond),
		}
		data, err := json.Marshal(habit)
		if err != nil {
			return err
		}
		batch = batch.Put(s.docs.Doc(constants.HabitsCollection, habit.ID), data)
		seeded = append(seeded, habit)
	}

	marker, err := json.Marshal(seedMarker{SeededAt: now})
	if err != nil {
		return err
	}
	batch = batch.Put(s.docs.Doc(constants.MetaCollection, constants.SeededMarkerID), marker)

	if err := s.docs.Apply(batch); err != nil {
		return err
	}

	s.mu.Lock()
	s.habits = seeded
	s.mu.Unlock()
	s.notify()

	logger.Info("Seeded default habits", "user", s.docs.OwnerID(), "count", len(seeded))
	return nil
}
