package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/loadshedding-tracker/backend/internal/analytics"
	"github.com/loadshedding-tracker/backend/internal/api/middleware"
	"github.com/loadshedding-tracker/backend/internal/store"
)

// CalendarMonth returns the month grid for /api/calendar/{year}/{month}.
func CalendarMonth(st *store.Store, now Clock, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)

		year, err := strconv.Atoi(vars["year"])
		if err != nil || year < 1970 || year > 9999 {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid year")
			return
		}
		month, err := strconv.Atoi(vars["month"])
		if err != nil || month < 1 || month > 12 {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Month must be between 1 and 12")
			return
		}

		writeJSON(w, http.StatusOK, analytics.Month(st.Snapshot(), year, time.Month(month), now(), loc))
	}
}
