// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/loadshedding-tracker/backend/internal/api/handlers"
	"github.com/loadshedding-tracker/backend/internal/api/middleware"
	"github.com/loadshedding-tracker/backend/internal/cache"
	"github.com/loadshedding-tracker/backend/internal/feed"
	"github.com/loadshedding-tracker/backend/internal/schedule"
	"github.com/loadshedding-tracker/backend/internal/storage"
	"github.com/loadshedding-tracker/backend/internal/store"
	"github.com/loadshedding-tracker/backend/internal/websocket"
)

// Services bundles what the routes depend on. Hub, Reconciler and StaticDir are optional.
type Services struct {
	Store      *store.Store
	DB         *storage.DB
	Feed       *feed.Recorder
	Cache      cache.Cache
	Hub        *websocket.Hub
	Reconciler *schedule.Reconciler
	Location   *time.Location
	Clock      handlers.Clock
	Logger     *slog.Logger
	StaticDir  string
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(s Services) *mux.Router {
	if s.Clock == nil {
		s.Clock = time.Now
	}
	if s.Location == nil {
		s.Location = time.Local
	}
	if s.Cache == nil {
		s.Cache = cache.New(0)
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}

	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging(s.Logger))
	r.Use(middleware.ErrorRecovery(s.Logger))

	// API subrouter
	api := r.PathPrefix("/api").Subrouter()

	// Health and dashboard endpoints
	api.HandleFunc("/health", handlers.HealthCheck(s.DB, s.Hub, s.Reconciler)).Methods("GET")
	api.HandleFunc("/dashboard", handlers.Dashboard(s.Store, s.Clock)).Methods("GET")

	// WebSocket endpoint
	if s.Hub != nil {
		api.HandleFunc("/ws", handlers.WebSocketUpgrade(s.Hub, s.Logger)).Methods("GET")
	}

	// Area endpoints
	api.HandleFunc("/areas", handlers.ListAreas(s.Store)).Methods("GET")
	api.HandleFunc("/areas", handlers.CreateArea(s.Store)).Methods("POST")
	api.HandleFunc("/areas/{id}", handlers.GetArea(s.Store)).Methods("GET")
	api.HandleFunc("/areas/{id}", handlers.UpdateArea(s.Store)).Methods("PATCH")
	api.HandleFunc("/areas/{id}", handlers.DeleteArea(s.Store)).Methods("DELETE")
	api.HandleFunc("/areas/{id}/schedules", handlers.ListAreaSchedules(s.Store)).Methods("GET")

	// Schedule endpoints. Fixed paths are registered before /schedules/{id}.
	api.HandleFunc("/schedules", handlers.ListSchedules(s.Store, s.Location)).Methods("GET")
	api.HandleFunc("/schedules", handlers.CreateSchedule(s.Store)).Methods("POST")
	api.HandleFunc("/schedules.ics", handlers.ExportSchedulesICS(s.Store, s.Clock, s.Location, s.Logger)).Methods("GET")
	api.HandleFunc("/schedules/upcoming", handlers.UpcomingSchedules(s.Store, s.Clock)).Methods("GET")
	api.HandleFunc("/schedules/overlaps", handlers.ScheduleOverlaps(s.Store)).Methods("GET")
	api.HandleFunc("/schedules/{id}", handlers.GetSchedule(s.Store)).Methods("GET")
	api.HandleFunc("/schedules/{id}", handlers.UpdateSchedule(s.Store)).Methods("PATCH")
	api.HandleFunc("/schedules/{id}", handlers.DeleteSchedule(s.Store)).Methods("DELETE")
	api.HandleFunc("/schedules/{id}/cancel", handlers.CancelSchedule(s.Store)).Methods("POST")

	// Calendar and analytics endpoints
	api.HandleFunc("/calendar/{year:[0-9]{4}}/{month:[0-9]{1,2}}", handlers.CalendarMonth(s.Store, s.Clock, s.Location)).Methods("GET")
	api.HandleFunc("/analytics", handlers.Analytics(s.Store, s.Cache, s.Clock, s.Location)).Methods("GET")
	api.HandleFunc("/analytics/export", handlers.ExportAnalytics(s.Store, s.Clock, s.Location, s.Logger)).Methods("GET")

	// Live updates feed
	api.HandleFunc("/updates", handlers.ListUpdates(s.Feed)).Methods("GET")

	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Unknown API endpoint")
	})

	// Serve static frontend files
	if s.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.StaticDir)))
	}

	return r
}
