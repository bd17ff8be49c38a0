package handlers

import (
	"net/http"

	"github.com/loadshedding-tracker/backend/internal/analytics"
	"github.com/loadshedding-tracker/backend/internal/store"
)

// Dashboard returns the status cards, current outages and next outage.
func Dashboard(st *store.Store, now Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, analytics.Summarize(st.Snapshot(), now()))
	}
}
