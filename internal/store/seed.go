package store

import (
	"time"

	"github.com/loadshedding-tracker/backend/internal/storage/models"
)

// SeedData returns the demonstration areas and schedules, positioned relative to now.
func SeedData(now time.Time) ([]models.Area, []models.ScheduleEvent) {
	at := func(hours float64) time.Time {
		return now.Add(time.Duration(hours * float64(time.Hour)))
	}
	next := func(hours float64) *time.Time {
		t := at(hours)
		return &t
	}

	areas := []models.Area{
		{ID: "1", Name: "Cape Town Central", Stage: 2, NextScheduled: next(2), Duration: 2.5},
		{ID: "2", Name: "Johannesburg North", Stage: 3, NextScheduled: next(4), Duration: 4},
		{ID: "3", Name: "Durban South", Stage: 1, NextScheduled: next(6), Duration: 2},
	}

	schedules := []models.ScheduleEvent{
		{ID: "1", AreaID: "1", Start: at(2), End: at(4.5), Stage: 2, Status: models.StatusScheduled},
		{ID: "2", AreaID: "2", Start: at(-1), End: at(3), Stage: 3, Status: models.StatusActive},
		{ID: "3", AreaID: "3", Start: at(6), End: at(8), Stage: 1, Status: models.StatusScheduled},
	}

	return areas, schedules
}

// Seed replaces the store contents with SeedData(now).
func (s *Store) Seed(now time.Time) {
	s.Replace(SeedData(now))
}
