package websocket

import (
	"context"

	"github.com/google/uuid"
	"github.com/llevateloexpress/financing-backend/internal/domain"
)

// EventPublisher defines the interface for publishing events to WebSocket clients
type EventPublisher interface {
	// Publish sends an event to all connections of the specified user
	Publish(userID uuid.UUID, event Event)
}

// Ensure Hub implements EventPublisher
var _ EventPublisher = (*Hub)(nil)

// Publish implements EventPublisher by broadcasting the event to the user
func (h *Hub) Publish(userID uuid.UUID, event Event) {
	h.Broadcast(userID, event)
}

// NoOpPublisher is a publisher that does nothing (for testing or when WebSocket is disabled)
type NoOpPublisher struct{}

// Publish does nothing
func (n *NoOpPublisher) Publish(userID uuid.UUID, event Event) {}

// StatusPublisher pushes outbox status events to the owner's open
// connections. Push is best effort: an owner with no connection is not an
// error, so the outbox never retries on its account.
type StatusPublisher struct {
	publisher EventPublisher
}

var _ domain.StatusEventPublisher = (*StatusPublisher)(nil)

// NewStatusPublisher creates a StatusPublisher over the given publisher
func NewStatusPublisher(publisher EventPublisher) *StatusPublisher {
	return &StatusPublisher{publisher: publisher}
}

// PublishStatusEvent implements domain.StatusEventPublisher
func (p *StatusPublisher) PublishStatusEvent(ctx context.Context, event *domain.StatusEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.publisher.Publish(event.OwnerID, ApplicationStatusChanged(event))
	return nil
}
