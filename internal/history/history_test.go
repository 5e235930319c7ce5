package history

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/julianstephens/umbral/internal/models"
)

func completion(habitID, day string) models.Completion {
	return models.Completion{HabitID: habitID, Day: day, OwnerID: "u1"}
}

func TestByDayGroups(t *testing.T) {
	facts := []models.Completion{
		completion("h1", "2024-05-01"),
		completion("h2", "2024-05-01"),
		completion("h1", "2024-05-02"),
	}

	h := ByDay(facts)
	if len(h) != 2 {
		t.Fatalf("expected 2 days, got %d", len(h))
	}
	if !h.CompletedOn("h1", "2024-05-01") || !h.CompletedOn("h2", "2024-05-01") {
		t.Error("2024-05-01 missing completions")
	}
	if !h.CompletedOn("h1", "2024-05-02") {
		t.Error("2024-05-02 missing h1")
	}
	if h.CompletedOn("h2", "2024-05-02") {
		t.Error("h2 should not be completed on 2024-05-02")
	}
}

func TestByDayIsOrderInsensitive(t *testing.T) {
	facts := []models.Completion{
		completion("h1", "2024-05-01"),
		completion("h2", "2024-05-01"),
		completion("h3", "2024-05-02"),
		completion("h1", "2024-05-03"),
		completion("h2", "2024-05-03"),
	}

	want := ByDay(facts)
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := make([]models.Completion, len(facts))
		copy(shuffled, facts)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		if got := ByDay(shuffled); !reflect.DeepEqual(got, want) {
			t.Fatalf("grouping differs under permutation: %v vs %v", got, want)
		}
	}
}

func TestByDayCollapsesDuplicates(t *testing.T) {
	facts := []models.Completion{
		completion("h1", "2024-05-01"),
		completion("h1", "2024-05-01"),
	}
	h := ByDay(facts)
	if h.Count("2024-05-01") != 1 {
		t.Errorf("duplicate facts should collapse, got count %d", h.Count("2024-05-01"))
	}
}

func TestWeeklySeriesAlwaysSevenPoints(t *testing.T) {
	h := ByDay([]models.Completion{
		completion("h1", "2024-05-01"),
		completion("h2", "2024-05-01"),
		completion("h1", "2024-04-29"),
	})

	points, err := WeeklySeries(h, "2024-05-01")
	if err != nil {
		t.Fatalf("weekly series: %v", err)
	}
	if len(points) != 7 {
		t.Fatalf("expected 7 points, got %d", len(points))
	}
	if points[0].Day != "2024-04-25" {
		t.Errorf("series should start at today-6, got %s", points[0].Day)
	}
	if points[6].Day != "2024-05-01" {
		t.Errorf("series should end today, got %s", points[6].Day)
	}
	if points[6].Count != 2 {
		t.Errorf("today count = %d, want 2", points[6].Count)
	}
	if points[4].Count != 1 {
		t.Errorf("2024-04-29 count = %d, want 1", points[4].Count)
	}
	// Empty days are present with zero counts, not omitted.
	for _, p := range []Point{points[1], points[2], points[3], points[5]} {
		if p.Count != 0 {
			t.Errorf("day %s should have zero count, got %d", p.Day, p.Count)
		}
	}
}

func TestWeeklySeriesEmptyHistory(t *testing.T) {
	points, err := WeeklySeries(models.History{}, "2024-05-01")
	if err != nil {
		t.Fatalf("weekly series: %v", err)
	}
	if len(points) != 7 {
		t.Fatalf("expected 7 points, got %d", len(points))
	}
	for _, p := range points {
		if p.Count != 0 {
			t.Errorf("day %s should have zero count, got %d", p.Day, p.Count)
		}
	}
}

func TestMonthToDate(t *testing.T) {
	// 2 habits, 3 days elapsed, 4 completions recorded.
	h := ByDay([]models.Completion{
		completion("h1", "2024-05-01"),
		completion("h2", "2024-05-01"),
		completion("h1", "2024-05-02"),
		completion("h1", "2024-05-03"),
	})

	c, err := MonthToDate(2, h, "2024-05-03")
	if err != nil {
		t.Fatalf("month to date: %v", err)
	}
	if c.Completed != 4 || c.Possible != 6 {
		t.Errorf("got {%d, %d}, want {4, 6}", c.Completed, c.Possible)
	}
	if c.Pending() != 2 {
		t.Errorf("pending = %d, want 2", c.Pending())
	}
}

func TestMonthToDateIgnoresOtherMonths(t *testing.T) {
	h := ByDay([]models.Completion{
		completion("h1", "2024-04-30"),
		completion("h1", "2024-05-01"),
	})

	c, err := MonthToDate(1, h, "2024-05-01")
	if err != nil {
		t.Fatalf("month to date: %v", err)
	}
	if c.Completed != 1 || c.Possible != 1 {
		t.Errorf("got {%d, %d}, want {1, 1}", c.Completed, c.Possible)
	}
}

func TestMonthToDateZeroHabits(t *testing.T) {
	c, err := MonthToDate(0, models.History{}, "2024-05-15")
	if err != nil {
		t.Fatalf("month to date: %v", err)
	}
	if c.Completed != 0 || c.Possible != 0 {
		t.Errorf("zero habits should report degenerate state, got {%d, %d}", c.Completed, c.Possible)
	}
}
