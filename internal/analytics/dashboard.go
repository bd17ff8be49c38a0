package analytics

import (
	"time"

	"github.com/loadshedding-tracker/backend/internal/storage/models"
	"github.com/loadshedding-tracker/backend/internal/store"
)

// Summary backs the dashboard status cards.
type Summary struct {
	ActiveOutages    int       `json:"active_outages"`
	AreasWithPower   int       `json:"areas_with_power"`
	ScheduledOutages int       `json:"scheduled_outages"`
	TotalAreas       int       `json:"total_areas"`
	NextOutage       *Outage   `json:"next_outage,omitempty"`
	CurrentOutages   []Outage  `json:"current_outages"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// Summarize computes the dashboard summary for snap.
func Summarize(snap store.Snapshot, now time.Time) Summary {
	active := ActiveOutages(snap.Areas)

	s := Summary{
		ActiveOutages:    active,
		AreasWithPower:   len(snap.Areas) - active,
		ScheduledOutages: CountByStatus(snap.Schedules, models.StatusScheduled),
		TotalAreas:       len(snap.Areas),
		CurrentOutages:   CurrentOutages(snap),
		GeneratedAt:      now,
	}
	if next, ok := NextOutage(snap); ok {
		s.NextOutage = &next
	}
	return s
}
