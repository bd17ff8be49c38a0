// Package models contains the domain models for the application.
package models

import (
	"time"
)

// Area is a named geographic zone tracked for load-shedding status.
type Area struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Stage         int        `json:"stage"`
	IsActive      bool       `json:"is_active"`
	NextScheduled *time.Time `json:"next_scheduled"`
	Duration      float64    `json:"duration"` // hours
}

// Stage bounds
const (
	MinStage = 1
	MaxStage = 4
)

// ValidStage reports whether stage is within the supported severity levels.
func ValidStage(stage int) bool {
	return stage >= MinStage && stage <= MaxStage
}

// AreaPatch carries the fields of a partial area update. Nil fields are left untouched.
type AreaPatch struct {
	Name               *string    `json:"name,omitempty"`
	Stage              *int       `json:"stage,omitempty"`
	NextScheduled      *time.Time `json:"next_scheduled,omitempty"`
	ClearNextScheduled bool       `json:"clear_next_scheduled,omitempty"`
	Duration           *float64   `json:"duration,omitempty"`
}

// Apply returns a copy of a with the patch merged in.
func (p AreaPatch) Apply(a Area) Area {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Stage != nil {
		a.Stage = *p.Stage
	}
	if p.ClearNextScheduled {
		a.NextScheduled = nil
	} else if p.NextScheduled != nil {
		next := *p.NextScheduled
		a.NextScheduled = &next
	}
	if p.Duration != nil {
		a.Duration = *p.Duration
	}
	return a
}

// Clone returns a deep copy of the area.
func (a Area) Clone() Area {
	if a.NextScheduled != nil {
		next := *a.NextScheduled
		a.NextScheduled = &next
	}
	return a
}
