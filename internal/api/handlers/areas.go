package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/loadshedding-tracker/backend/internal/analytics"
	"github.com/loadshedding-tracker/backend/internal/api/middleware"
	"github.com/loadshedding-tracker/backend/internal/storage/models"
	"github.com/loadshedding-tracker/backend/internal/store"
)

// CreateAreaRequest is the body of POST /api/areas. is_active is derived and cannot be set.
type CreateAreaRequest struct {
	Name          string     `json:"name"`
	Stage         int        `json:"stage"`
	NextScheduled *time.Time `json:"next_scheduled,omitempty"`
	Duration      float64    `json:"duration"`
}

// ListAreas returns every area.
func ListAreas(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, st.Areas())
	}
}

// GetArea returns one area.
func GetArea(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		area, err := st.Area(mux.Vars(r)["id"])
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, area)
	}
}

// CreateArea adds a new area.
func CreateArea(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAreaRequest
		if err := decodeJSON(r, &req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		area, err := st.AddArea(models.Area{
			Name:          req.Name,
			Stage:         req.Stage,
			NextScheduled: req.NextScheduled,
			Duration:      req.Duration,
		})
		if err != nil {
			writeStoreError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, area)
	}
}

// UpdateArea merges a partial update into an area.
func UpdateArea(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch models.AreaPatch
		if err := decodeJSON(r, &patch); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		area, err := st.UpdateArea(mux.Vars(r)["id"], patch)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, area)
	}
}

// DeleteArea removes an area and its schedule events.
func DeleteArea(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.DeleteArea(mux.Vars(r)["id"]); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ListAreaSchedules returns the schedule events of one area.
func ListAreaSchedules(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		snap := st.Snapshot()

		found := false
		for _, a := range snap.Areas {
			if a.ID == id {
				found = true
				break
			}
		}
		if !found {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Area not found")
			return
		}

		writeJSON(w, http.StatusOK, analytics.SchedulesForArea(snap.Schedules, id))
	}
}
