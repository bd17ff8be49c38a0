package handlers

import (
	"net/http"

	"github.com/loadshedding-tracker/backend/internal/api/middleware"
	"github.com/loadshedding-tracker/backend/internal/feed"
)

// ListUpdates returns the live updates feed, newest first.
func ListUpdates(rec *feed.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _, err := queryInt(r, "limit")
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, err.Error())
			return
		}

		updates, err := rec.Recent(r.Context(), limit)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query live updates")
			return
		}

		writeJSON(w, http.StatusOK, updates)
	}
}
