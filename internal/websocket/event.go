package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/llevateloexpress/financing-backend/internal/domain"
)

// EventType represents what happened to the entity
type EventType string

const (
	EventTypeStatusChanged EventType = "status_changed"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypeCreditApplication EntityType = "credit_application"
)

// Event represents a WebSocket event message sent to clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`      // Combined type e.g. "credit_application.status_changed"
	Entity    EntityType  `json:"entity"`    // Entity type e.g. "credit_application"
	Payload   interface{} `json:"payload"`   // Entity data
	Timestamp time.Time   `json:"timestamp"` // Event timestamp
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// StatusChangedPayload is what the owner's browser receives for a status change
type StatusChangedPayload struct {
	EventID        uuid.UUID                 `json:"eventId"`
	ApplicationID  int32                     `json:"applicationId"`
	PreviousStatus *domain.ApplicationStatus `json:"previousStatus,omitempty"`
	Status         domain.ApplicationStatus  `json:"status"`
	StatusLabel    string                    `json:"statusLabel"`
	Note           string                    `json:"note,omitempty"`
	ChangedAt      time.Time                 `json:"changedAt"`
}

// ApplicationStatusChanged creates a credit_application.status_changed event
func ApplicationStatusChanged(event *domain.StatusEvent) Event {
	evt := NewEvent(EventTypeStatusChanged, EntityTypeCreditApplication, StatusChangedPayload{
		EventID:        event.ID,
		ApplicationID:  event.ApplicationID,
		PreviousStatus: event.Record.PreviousStatus,
		Status:         event.Record.Status,
		StatusLabel:    event.Record.Status.Label(),
		Note:           event.Record.Note,
		ChangedAt:      event.Record.CreatedAt,
	})
	evt.Timestamp = event.CreatedAt.UTC()
	return evt
}
