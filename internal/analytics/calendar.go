package analytics

import (
	"time"

	"github.com/loadshedding-tracker/backend/internal/store"
)

// CalendarDay is one cell of the month grid.
type CalendarDay struct {
	Day       int      `json:"day"`
	Date      string   `json:"date"`
	IsToday   bool     `json:"is_today"`
	Schedules []Outage `json:"schedules"`
}

// CalendarMonth is a Sunday-first month grid with the outages starting on each day.
type CalendarMonth struct {
	Year          int           `json:"year"`
	Month         int           `json:"month"`
	MonthName     string        `json:"month_name"`
	LeadingBlanks int           `json:"leading_blanks"`
	Days          []CalendarDay `json:"days"`
	Previous      string        `json:"previous"`
	Next          string        `json:"next"`
}

// Month builds the calendar grid for year/month in loc. Out-of-range months are
// normalized the way time.Date does (month 13 is January of the next year).
func Month(snap store.Snapshot, year int, month time.Month, now time.Time, loc *time.Location) CalendarMonth {
	loc = locationOrLocal(loc)
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	daysInMonth := first.AddDate(0, 1, -1).Day()
	today := now.In(loc).Format(DateLayout)

	cal := CalendarMonth{
		Year:          first.Year(),
		Month:         int(first.Month()),
		MonthName:     first.Month().String(),
		LeadingBlanks: int(first.Weekday()),
		Days:          make([]CalendarDay, 0, daysInMonth),
		Previous:      first.AddDate(0, -1, 0).Format("2006-01"),
		Next:          first.AddDate(0, 1, 0).Format("2006-01"),
	}

	for d := 1; d <= daysInMonth; d++ {
		date := time.Date(cal.Year, first.Month(), d, 0, 0, 0, 0, loc)
		key := date.Format(DateLayout)

		day := CalendarDay{
			Day:       d,
			Date:      key,
			IsToday:   key == today,
			Schedules: []Outage{},
		}
		for _, e := range SchedulesForDate(snap.Schedules, date, loc) {
			day.Schedules = append(day.Schedules, newOutage(e, snap.Areas))
		}
		cal.Days = append(cal.Days, day)
	}

	return cal
}
