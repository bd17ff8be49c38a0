package models

import (
	"time"
)

// ScheduleStatus is the lifecycle state of a ScheduleEvent.
type ScheduleStatus string

// Schedule status constants
const (
	StatusScheduled ScheduleStatus = "scheduled" // Planned, not started
	StatusActive    ScheduleStatus = "active"    // Outage in progress
	StatusCompleted ScheduleStatus = "completed" // Window has passed
	StatusCancelled ScheduleStatus = "cancelled" // Withdrawn before it started
)

// Valid reports whether s is one of the known statuses.
func (s ScheduleStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next keeps the lifecycle monotonic.
// Staying in the same status is always allowed.
func (s ScheduleStatus) CanTransitionTo(next ScheduleStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusScheduled:
		return next == StatusActive || next == StatusCancelled
	case StatusActive:
		return next == StatusCompleted
	}
	return false
}

// ScheduleEvent is a single planned or in-progress outage window for one area.
type ScheduleEvent struct {
	ID     string         `json:"id"`
	AreaID string         `json:"area_id"`
	Start  time.Time      `json:"start"`
	End    time.Time      `json:"end"`
	Stage  int            `json:"stage"`
	Status ScheduleStatus `json:"status"`
}

// Duration returns the length of the outage window.
func (e *ScheduleEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// DurationHours returns the length of the outage window in hours.
func (e *ScheduleEvent) DurationHours() float64 {
	return e.Duration().Hours()
}

// Covers reports whether t lies within [Start, End].
func (e *ScheduleEvent) Covers(t time.Time) bool {
	return !t.Before(e.Start) && !t.After(e.End)
}

// SchedulePatch carries the fields of a partial schedule update. Nil fields are left untouched.
type SchedulePatch struct {
	AreaID *string         `json:"area_id,omitempty"`
	Start  *time.Time      `json:"start,omitempty"`
	End    *time.Time      `json:"end,omitempty"`
	Stage  *int            `json:"stage,omitempty"`
	Status *ScheduleStatus `json:"status,omitempty"`
}

// Apply returns a copy of e with the patch merged in.
func (p SchedulePatch) Apply(e ScheduleEvent) ScheduleEvent {
	if p.AreaID != nil {
		e.AreaID = *p.AreaID
	}
	if p.Start != nil {
		e.Start = *p.Start
	}
	if p.End != nil {
		e.End = *p.End
	}
	if p.Stage != nil {
		e.Stage = *p.Stage
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	return e
}
