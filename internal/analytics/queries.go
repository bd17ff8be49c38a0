// Package analytics provides read-only queries and aggregations over a store snapshot.
// Nothing in this package mutates state.
package analytics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/loadshedding-tracker/backend/internal/storage/models"
	"github.com/loadshedding-tracker/backend/internal/store"
)

// ErrUnknownTimeRange is returned for analytics ranges other than 7d, 30d and 90d.
var ErrUnknownTimeRange = errors.New("unknown time range")

// DateLayout is the day key used by daily series and date filters.
const DateLayout = "2006-01-02"

// DefaultUpcomingLimit is the number of upcoming outages shown by default.
const DefaultUpcomingLimit = 5

// Outage pairs a schedule event with its area. Area is nil when the area no longer exists.
type Outage struct {
	Schedule      models.ScheduleEvent `json:"schedule"`
	Area          *models.Area         `json:"area,omitempty"`
	DurationHours float64              `json:"duration_hours"`
}

// Stats summarizes the schedule events of a time window.
type Stats struct {
	Days             int         `json:"days"`
	TotalOutages     int         `json:"total_outages"`
	CompletedOutages int         `json:"completed_outages"`
	AverageDuration  float64     `json:"average_duration"` // hours, one decimal
	StageBreakdown   map[int]int `json:"stage_breakdown"`
	AffectedAreas    int         `json:"affected_areas"`
}

// DayPoint is one bar of the daily outage charts.
type DayPoint struct {
	Date          string  `json:"date"`
	Outages       int     `json:"outages"`
	DurationHours float64 `json:"duration_hours"`
}

// ParseTimeRange converts a "7d", "30d" or "90d" selector into a number of days.
func ParseTimeRange(value string) (int, error) {
	switch value {
	case "7d":
		return 7, nil
	case "30d":
		return 30, nil
	case "90d":
		return 90, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTimeRange, value)
}

// ActiveOutages counts areas that currently have an active outage.
func ActiveOutages(areas []models.Area) int {
	n := 0
	for _, a := range areas {
		if a.IsActive {
			n++
		}
	}
	return n
}

// CountByStatus counts schedule events with the given status.
func CountByStatus(schedules []models.ScheduleEvent, status models.ScheduleStatus) int {
	n := 0
	for _, e := range schedules {
		if e.Status == status {
			n++
		}
	}
	return n
}

// NextOutage returns the scheduled event with the earliest start, paired with its area.
// Ties keep insertion order. ok is false when nothing is scheduled.
func NextOutage(snap store.Snapshot) (Outage, bool) {
	var (
		next  models.ScheduleEvent
		found bool
	)
	for _, e := range snap.Schedules {
		if e.Status != models.StatusScheduled {
			continue
		}
		if !found || e.Start.Before(next.Start) {
			next = e
			found = true
		}
	}
	if !found {
		return Outage{}, false
	}
	return newOutage(next, snap.Areas), true
}

// CurrentOutages returns every active area together with its active event.
func CurrentOutages(snap store.Snapshot) []Outage {
	outages := []Outage{}
	for _, a := range snap.Areas {
		if !a.IsActive {
			continue
		}
		for _, e := range snap.Schedules {
			if e.AreaID == a.ID && e.Status == models.StatusActive {
				area := a
				outages = append(outages, Outage{Schedule: e, Area: &area, DurationHours: e.DurationHours()})
				break
			}
		}
	}
	return outages
}

// Upcoming returns scheduled events starting after now, earliest first.
// A non-positive limit means DefaultUpcomingLimit.
func Upcoming(snap store.Snapshot, now time.Time, limit int) []Outage {
	if limit <= 0 {
		limit = DefaultUpcomingLimit
	}

	var pending []models.ScheduleEvent
	for _, e := range snap.Schedules {
		if e.Status == models.StatusScheduled && e.Start.After(now) {
			pending = append(pending, e)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Start.Before(pending[j].Start)
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}

	outages := make([]Outage, 0, len(pending))
	for _, e := range pending {
		outages = append(outages, newOutage(e, snap.Areas))
	}
	return outages
}

// SchedulesForArea returns the events that belong to areaID.
func SchedulesForArea(schedules []models.ScheduleEvent, areaID string) []models.ScheduleEvent {
	out := []models.ScheduleEvent{}
	for _, e := range schedules {
		if e.AreaID == areaID {
			out = append(out, e)
		}
	}
	return out
}

// SchedulesForDate returns the events whose start falls on the same calendar day as day in loc.
func SchedulesForDate(schedules []models.ScheduleEvent, day time.Time, loc *time.Location) []models.ScheduleEvent {
	loc = locationOrLocal(loc)
	y, m, d := day.In(loc).Date()

	out := []models.ScheduleEvent{}
	for _, e := range schedules {
		ey, em, ed := e.Start.In(loc).Date()
		if ey == y && em == m && ed == d {
			out = append(out, e)
		}
	}
	return out
}

// WindowStats aggregates the events that start within [now - days, now].
func WindowStats(schedules []models.ScheduleEvent, now time.Time, days int) Stats {
	from := now.Add(-time.Duration(days) * 24 * time.Hour)

	stats := Stats{
		Days:           days,
		StageBreakdown: make(map[int]int),
	}
	areas := make(map[string]struct{})
	var total time.Duration

	for _, e := range schedules {
		if e.Start.Before(from) || e.Start.After(now) {
			continue
		}
		stats.TotalOutages++
		if e.Status == models.StatusCompleted {
			stats.CompletedOutages++
		}
		total += e.Duration()
		stats.StageBreakdown[e.Stage]++
		areas[e.AreaID] = struct{}{}
	}

	if stats.TotalOutages > 0 {
		avg := total.Hours() / float64(stats.TotalOutages)
		stats.AverageDuration = roundTenth(avg)
	}
	stats.AffectedAreas = len(areas)

	return stats
}

// DailySeries returns one point per calendar day in loc, oldest first, ending on the day of now.
// Every event is counted on the day it starts, regardless of how far back it lies.
func DailySeries(schedules []models.ScheduleEvent, now time.Time, days int, loc *time.Location) []DayPoint {
	loc = locationOrLocal(loc)
	if days <= 0 {
		return []DayPoint{}
	}

	byDay := make(map[string]*DayPoint)
	for _, e := range schedules {
		key := e.Start.In(loc).Format(DateLayout)
		p, ok := byDay[key]
		if !ok {
			p = &DayPoint{Date: key}
			byDay[key] = p
		}
		p.Outages++
		p.DurationHours += e.DurationHours()
	}

	today := now.In(loc)
	points := make([]DayPoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		key := today.AddDate(0, 0, -i).Format(DateLayout)
		if p, ok := byDay[key]; ok {
			points = append(points, *p)
			continue
		}
		points = append(points, DayPoint{Date: key})
	}
	return points
}

// WithAreas pairs every event with its area, keeping the input order.
func WithAreas(schedules []models.ScheduleEvent, areas []models.Area) []Outage {
	outages := make([]Outage, 0, len(schedules))
	for _, e := range schedules {
		outages = append(outages, newOutage(e, areas))
	}
	return outages
}

func newOutage(e models.ScheduleEvent, areas []models.Area) Outage {
	o := Outage{Schedule: e, DurationHours: e.DurationHours()}
	for _, a := range areas {
		if a.ID == e.AreaID {
			area := a
			o.Area = &area
			break
		}
	}
	return o
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

func locationOrLocal(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
