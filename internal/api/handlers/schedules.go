package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/loadshedding-tracker/backend/internal/analytics"
	"github.com/loadshedding-tracker/backend/internal/api/middleware"
	"github.com/loadshedding-tracker/backend/internal/calendar"
	"github.com/loadshedding-tracker/backend/internal/storage/models"
	"github.com/loadshedding-tracker/backend/internal/store"
)

// CreateScheduleRequest is the body of POST /api/schedules. An empty status means scheduled.
type CreateScheduleRequest struct {
	AreaID string                `json:"area_id"`
	Start  time.Time             `json:"start"`
	End    time.Time             `json:"end"`
	Stage  int                   `json:"stage"`
	Status models.ScheduleStatus `json:"status,omitempty"`
}

// ListSchedules returns every schedule event, or those starting on ?date=YYYY-MM-DD in loc.
func ListSchedules(st *store.Store, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		schedules := st.Schedules()

		if raw := r.URL.Query().Get("date"); raw != "" {
			day, err := time.ParseInLocation(analytics.DateLayout, raw, loc)
			if err != nil {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "date must be YYYY-MM-DD")
				return
			}
			schedules = analytics.SchedulesForDate(schedules, day, loc)
		}

		writeJSON(w, http.StatusOK, schedules)
	}
}

// UpcomingSchedules returns the next scheduled outages, earliest first.
func UpcomingSchedules(st *store.Store, now Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _, err := queryInt(r, "limit")
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, analytics.Upcoming(st.Snapshot(), now(), limit))
	}
}

// ScheduleOverlaps lists pending or active events of the same area whose windows intersect.
func ScheduleOverlaps(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, analytics.Overlaps(st.Schedules()))
	}
}

// GetSchedule returns one schedule event.
func GetSchedule(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := st.Schedule(mux.Vars(r)["id"])
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

// CreateSchedule adds a new schedule event.
func CreateSchedule(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateScheduleRequest
		if err := decodeJSON(r, &req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		e, err := st.AddSchedule(models.ScheduleEvent{
			AreaID: req.AreaID,
			Start:  req.Start,
			End:    req.End,
			Stage:  req.Stage,
			Status: req.Status,
		})
		if err != nil {
			writeStoreError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, e)
	}
}

// UpdateSchedule merges a partial update into a schedule event.
func UpdateSchedule(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch models.SchedulePatch
		if err := decodeJSON(r, &patch); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		e, err := st.UpdateSchedule(mux.Vars(r)["id"], patch)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, e)
	}
}

// CancelSchedule withdraws a scheduled outage.
func CancelSchedule(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := st.CancelSchedule(mux.Vars(r)["id"])
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

// DeleteSchedule removes a schedule event.
func DeleteSchedule(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.DeleteSchedule(mux.Vars(r)["id"]); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ExportSchedulesICS renders schedule events as an iCalendar file, optionally
// restricted to ?area_id=.
func ExportSchedulesICS(st *store.Store, now Clock, loc *time.Location, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := st.Snapshot()
		schedules := snap.Schedules
		name := "Load shedding schedule"

		if areaID := r.URL.Query().Get("area_id"); areaID != "" {
			area, err := st.Area(areaID)
			if err != nil {
				writeStoreError(w, err)
				return
			}
			schedules = analytics.SchedulesForArea(schedules, areaID)
			name = fmt.Sprintf("Load shedding - %s", area.Name)
		}

		feed := calendar.Feed{
			Name:     name,
			Timezone: loc.String(),
			Outages:  analytics.WithAreas(schedules, snap.Areas),
			Stamp:    now(),
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", "inline; filename=loadshedding.ics")
		if err := calendar.WriteICS(w, feed); err != nil {
			log.Error("write calendar export", "error", err)
		}
	}
}
