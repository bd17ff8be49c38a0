package websocket

import (
	"encoding/json"
	"time"

	"github.com/loadshedding-tracker/backend/internal/storage/models"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeScheduleStatusChanged MessageType = "schedule.status_changed"
	TypeAreaStatusChanged     MessageType = "area.status_changed"
	TypeAreaChanged           MessageType = "area.changed"
	TypeScheduleChanged       MessageType = "schedule.changed"
	TypeFeedUpdate            MessageType = "feed.update"
	TypeNotification          MessageType = "notification"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Change actions carried by area.changed and schedule.changed.
const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionCancelled = "cancelled"
	ActionDeleted   = "deleted"
	ActionReset     = "reset"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// ScheduleStatusPayload is the payload for schedule.status_changed events.
type ScheduleStatusPayload struct {
	ScheduleID     string                `json:"schedule_id"`
	AreaID         string                `json:"area_id"`
	AreaName       string                `json:"area_name,omitempty"`
	Stage          int                   `json:"stage"`
	PreviousStatus models.ScheduleStatus `json:"previous_status"`
	NewStatus      models.ScheduleStatus `json:"new_status"`
}

// AreaStatusPayload is the payload for area.status_changed events.
type AreaStatusPayload struct {
	AreaID   string `json:"area_id"`
	AreaName string `json:"area_name"`
	IsActive bool   `json:"is_active"`
}

// AreaChangedPayload is the payload for area.changed events.
type AreaChangedPayload struct {
	Action           string       `json:"action"`
	AreaID           string       `json:"area_id,omitempty"`
	Area             *models.Area `json:"area,omitempty"`
	RemovedSchedules []string     `json:"removed_schedules,omitempty"`
}

// ScheduleChangedPayload is the payload for schedule.changed events.
type ScheduleChangedPayload struct {
	Action     string                `json:"action"`
	ScheduleID string                `json:"schedule_id"`
	Schedule   *models.ScheduleEvent `json:"schedule,omitempty"`
}

// NotificationPayload is the payload for notification events.
type NotificationPayload struct {
	Level       string `json:"level"` // info, warning, error, success
	Title       string `json:"title"`
	Message     string `json:"message"`
	Dismissible bool   `json:"dismissible"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	OriginalType string `json:"original_type,omitempty"`
}
