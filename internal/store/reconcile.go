package store

import (
	"time"

	"github.com/loadshedding-tracker/backend/internal/storage/models"
)

// Transition records one time-driven status change.
type Transition struct {
	ScheduleID string                `json:"schedule_id"`
	AreaID     string                `json:"area_id"`
	Stage      int                   `json:"stage"`
	From       models.ScheduleStatus `json:"from"`
	To         models.ScheduleStatus `json:"to"`
}

// ActivityChange records an area whose derived IsActive flipped during a cycle.
type ActivityChange struct {
	AreaID   string `json:"area_id"`
	AreaName string `json:"area_name"`
	Active   bool   `json:"active"`
}

// ReconcileResult summarizes one reconciliation cycle.
type ReconcileResult struct {
	At              time.Time        `json:"at"`
	Transitions     []Transition     `json:"transitions"`
	ActivityChanges []ActivityChange `json:"activity_changes"`
}

// Changed reports whether the cycle modified anything.
func (r ReconcileResult) Changed() bool {
	return len(r.Transitions) > 0 || len(r.ActivityChanges) > 0
}

// Reconcile advances schedule statuses against now and re-derives area activity
// from the statuses produced by this same cycle.
//
// scheduled -> active when now is within [start, end]; active -> completed when
// now is past end. Cancelled and completed events never move.
func (s *Store) Reconcile(now time.Time) ReconcileResult {
	s.mu.Lock()

	result := ReconcileResult{At: now}
	before := s.activeAreasLocked()

	var changes []Change
	for i := range s.schedules {
		e := &s.schedules[i]
		next := nextStatus(*e, now)
		if next == e.Status {
			continue
		}

		prev := e.Status
		e.Status = next
		result.Transitions = append(result.Transitions, Transition{
			ScheduleID: e.ID,
			AreaID:     e.AreaID,
			Stage:      e.Stage,
			From:       prev,
			To:         next,
		})
		changes = append(changes, Change{
			Kind:           ScheduleStatusChanged,
			Schedule:       ptr(*e),
			PreviousStatus: prev,
		})
	}

	activity := s.activityChangesLocked(before)
	for _, c := range activity {
		result.ActivityChanges = append(result.ActivityChanges, ActivityChange{
			AreaID:   c.Area.ID,
			AreaName: c.Area.Name,
			Active:   c.Area.IsActive,
		})
	}

	// Attach post-cycle area state to each status change.
	for i := range changes {
		changes[i].Area = s.areaPtrLocked(changes[i].Schedule.AreaID)
	}
	changes = append(changes, activity...)

	s.commit(changes)
	return result
}

// nextStatus applies a single lifecycle step for now.
func nextStatus(e models.ScheduleEvent, now time.Time) models.ScheduleStatus {
	switch e.Status {
	case models.StatusScheduled:
		if e.Covers(now) {
			return models.StatusActive
		}
	case models.StatusActive:
		if now.After(e.End) {
			return models.StatusCompleted
		}
	}
	return e.Status
}
