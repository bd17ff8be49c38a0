package websocket

import (
	"fmt"
	"log/slog"

	"github.com/loadshedding-tracker/backend/internal/storage/models"
	"github.com/loadshedding-tracker/backend/internal/store"
)

// EventBroadcaster handles broadcasting WebSocket events.
type EventBroadcaster struct {
	hub *Hub
	log *slog.Logger
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub, log *slog.Logger) *EventBroadcaster {
	return &EventBroadcaster{hub: hub, log: log}
}

// HandleChange translates a committed store change into a client event.
// It has the store.Listener signature so it can be passed to Subscribe.
func (b *EventBroadcaster) HandleChange(c store.Change) {
	switch c.Kind {
	case store.ScheduleStatusChanged:
		b.BroadcastScheduleStatusChanged(*c.Schedule, c.PreviousStatus, c.Area)
	case store.AreaActivityChanged:
		b.BroadcastAreaStatusChanged(*c.Area)
	case store.AreaCreated:
		b.BroadcastAreaChanged(ActionCreated, c.Area, nil)
	case store.AreaUpdated:
		b.BroadcastAreaChanged(ActionUpdated, c.Area, nil)
	case store.AreaDeleted:
		b.BroadcastAreaChanged(ActionDeleted, c.Area, c.RemovedSchedules)
	case store.ScheduleCreated:
		b.BroadcastScheduleChanged(ActionCreated, *c.Schedule)
	case store.ScheduleUpdated:
		b.BroadcastScheduleChanged(ActionUpdated, *c.Schedule)
	case store.ScheduleCancelled:
		b.BroadcastScheduleChanged(ActionCancelled, *c.Schedule)
	case store.ScheduleDeleted:
		b.BroadcastScheduleChanged(ActionDeleted, *c.Schedule)
	case store.StoreReset:
		b.broadcast(NewMessage(TypeAreaChanged, AreaChangedPayload{Action: ActionReset}))
	}
}

// BroadcastScheduleStatusChanged sends a schedule status changed event.
func (b *EventBroadcaster) BroadcastScheduleStatusChanged(e models.ScheduleEvent, previous models.ScheduleStatus, area *models.Area) {
	payload := ScheduleStatusPayload{
		ScheduleID:     e.ID,
		AreaID:         e.AreaID,
		Stage:          e.Stage,
		PreviousStatus: previous,
		NewStatus:      e.Status,
	}
	if area != nil {
		payload.AreaName = area.Name
	}

	b.broadcast(NewMessage(TypeScheduleStatusChanged, payload))

	switch e.Status {
	case models.StatusActive:
		b.BroadcastNotification("warning", "Load shedding started",
			fmt.Sprintf("%s - Stage %d", payload.AreaName, e.Stage))
	case models.StatusCompleted:
		b.BroadcastNotification("success", "Power restored", payload.AreaName)
	}
}

// BroadcastAreaStatusChanged sends an area status changed event.
func (b *EventBroadcaster) BroadcastAreaStatusChanged(area models.Area) {
	payload := AreaStatusPayload{
		AreaID:   area.ID,
		AreaName: area.Name,
		IsActive: area.IsActive,
	}

	b.broadcast(NewMessage(TypeAreaStatusChanged, payload))
}

// BroadcastAreaChanged sends an area changed event.
func (b *EventBroadcaster) BroadcastAreaChanged(action string, area *models.Area, removedSchedules []string) {
	payload := AreaChangedPayload{
		Action:           action,
		Area:             area,
		RemovedSchedules: removedSchedules,
	}
	if area != nil {
		payload.AreaID = area.ID
	}

	b.broadcast(NewMessage(TypeAreaChanged, payload))
}

// BroadcastScheduleChanged sends a schedule changed event.
func (b *EventBroadcaster) BroadcastScheduleChanged(action string, e models.ScheduleEvent) {
	payload := ScheduleChangedPayload{
		Action:     action,
		ScheduleID: e.ID,
		Schedule:   &e,
	}

	b.broadcast(NewMessage(TypeScheduleChanged, payload))
}

// BroadcastFeedUpdate sends a newly recorded live update.
func (b *EventBroadcaster) BroadcastFeedUpdate(update models.LiveUpdate) {
	b.broadcast(NewMessage(TypeFeedUpdate, update))
}

// BroadcastNotification sends a notification to all connected clients.
func (b *EventBroadcaster) BroadcastNotification(level, title, message string) {
	payload := NotificationPayload{
		Level:       level,
		Title:       title,
		Message:     message,
		Dismissible: true,
	}

	b.broadcast(NewMessage(TypeNotification, payload))
}

// broadcast sends a message to all connected clients.
func (b *EventBroadcaster) broadcast(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		b.log.Error("encode websocket message", "type", string(msg.Type), "error", err)
		return
	}

	b.hub.Broadcast(data)
}
