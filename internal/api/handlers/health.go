package handlers

import (
	"net/http"
	"time"

	"github.com/loadshedding-tracker/backend/internal/schedule"
	"github.com/loadshedding-tracker/backend/internal/storage"
	"github.com/loadshedding-tracker/backend/internal/websocket"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status           string     `json:"status"`
	DBConnected      bool       `json:"db_connected"`
	WebSocketClients int        `json:"websocket_clients"`
	LastReconcileAt  *time.Time `json:"last_reconcile_at,omitempty"`
	NextReconcileAt  *time.Time `json:"next_reconcile_at,omitempty"`
}

// HealthCheck returns a handler that performs a health check.
// hub and reconciler may be nil.
func HealthCheck(db *storage.DB, hub *websocket.Hub, reconciler *schedule.Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Check journal connection
		dbConnected := db.PingContext(r.Context()) == nil

		response := HealthResponse{
			Status:      "healthy",
			DBConnected: dbConnected,
		}
		if !dbConnected {
			response.Status = "degraded"
		}
		if hub != nil {
			response.WebSocketClients = hub.ClientCount()
		}
		if reconciler != nil {
			if last := reconciler.LastRun(); !last.IsZero() {
				response.LastReconcileAt = &last
			}
			response.NextReconcileAt = reconciler.NextRun()
		}

		status := http.StatusOK
		if response.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, response)
	}
}
