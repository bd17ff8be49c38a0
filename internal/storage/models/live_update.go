package models

import (
	"time"
)

// UpdateType classifies an entry of the live updates feed.
type UpdateType string

// Live update type constants
const (
	UpdateOutageStart    UpdateType = "outage_start"
	UpdateOutageEnd      UpdateType = "outage_end"
	UpdateScheduleChange UpdateType = "schedule_change"
	UpdateSystemAlert    UpdateType = "system_alert"
)

// LiveUpdate is one entry of the live updates feed shown on the dashboard.
type LiveUpdate struct {
	ID        string     `json:"id"`
	Timestamp time.Time  `json:"timestamp"`
	Type      UpdateType `json:"type"`
	Message   string     `json:"message"`
	AreaName  string     `json:"area_name,omitempty"`
	TimeAgo   string     `json:"time_ago,omitempty"`
}
