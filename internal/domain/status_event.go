package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StatusEvent is the outbound notification for one history record. It is
// written to the outbox in the same transaction as the record.
type StatusEvent struct {
	ID            uuid.UUID               `json:"id"`
	ApplicationID int32                   `json:"applicationId"`
	OwnerID       uuid.UUID               `json:"ownerId"`
	Record        ApplicationStatusRecord `json:"record"`
	CreatedAt     time.Time               `json:"createdAt"`
}

// NewStatusEvent wraps a persisted history record for publication
func NewStatusEvent(app *CreditApplication, record *ApplicationStatusRecord) *StatusEvent {
	return &StatusEvent{
		ID:            uuid.New(),
		ApplicationID: app.ID,
		OwnerID:       app.UserID,
		Record:        *record,
		CreatedAt:     record.CreatedAt,
	}
}

// StatusEventPublisher delivers status events to subscribers
type StatusEventPublisher interface {
	PublishStatusEvent(ctx context.Context, event *StatusEvent) error
}

// StatusEventHandler processes one pending outbox event. A nil return marks
// the event published.
type StatusEventHandler func(ctx context.Context, event *StatusEvent) error

// OutboxRepository reads pending status events
type OutboxRepository interface {
	// ProcessPending locks up to limit unpublished events, hands each to fn in
	// creation order and marks the successful ones published. It returns the
	// number of events marked.
	ProcessPending(ctx context.Context, limit int, fn StatusEventHandler) (int, error)
}
