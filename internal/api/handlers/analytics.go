package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/loadshedding-tracker/backend/internal/analytics"
	"github.com/loadshedding-tracker/backend/internal/api/middleware"
	"github.com/loadshedding-tracker/backend/internal/cache"
	"github.com/loadshedding-tracker/backend/internal/store"
)

// DefaultTimeRange is used when ?range= is absent.
const DefaultTimeRange = "7d"

// AnalyticsResponse is the body of GET /api/analytics.
type AnalyticsResponse struct {
	Range       string               `json:"range"`
	Stats       analytics.Stats      `json:"stats"`
	Daily       []analytics.DayPoint `json:"daily"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// Analytics returns windowed statistics and the daily series for ?range=7d|30d|90d.
// Responses are cached per store version, so a result computed before a
// mutation is never served after it.
func Analytics(st *store.Store, c cache.Cache, now Clock, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rng, days, ok := parseRange(w, r)
		if !ok {
			return
		}

		snap := st.Snapshot()
		key := fmt.Sprintf("analytics:%s:%d", rng, snap.Version)
		resp, _ := cache.Remember(c, key, func() (AnalyticsResponse, error) {
			t := now()
			return AnalyticsResponse{
				Range:       rng,
				Stats:       analytics.WindowStats(snap.Schedules, t, days),
				Daily:       analytics.DailySeries(snap.Schedules, t, days, loc),
				GeneratedAt: t,
			}, nil
		})

		writeJSON(w, http.StatusOK, resp)
	}
}

// ExportAnalytics renders the daily series for ?range= as CSV.
func ExportAnalytics(st *store.Store, now Clock, loc *time.Location, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rng, days, ok := parseRange(w, r)
		if !ok {
			return
		}

		points := analytics.DailySeries(st.Schedules(), now(), days, loc)

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=loadshedding_%s.csv", rng))
		if err := analytics.WriteCSV(w, points); err != nil {
			log.Error("write analytics export", "range", rng, "error", err)
		}
	}
}

func parseRange(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	rng := r.URL.Query().Get("range")
	if rng == "" {
		rng = DefaultTimeRange
	}
	days, err := analytics.ParseTimeRange(rng)
	if errors.Is(err, analytics.ErrUnknownTimeRange) {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "range must be one of 7d, 30d, 90d")
		return "", 0, false
	}
	return rng, days, true
}
