package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/llevateloexpress/financing-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_Publish(t *testing.T) {
	hub := NewHub()
	user := uuid.New()

	client := newMockClient("client-1", user)
	hub.Register(client)

	var publisher EventPublisher = hub
	publisher.Publish(user, testStatusEvent())

	assert.Len(t, client.GetMessages(), 1)
}

func TestNoOpPublisher_Publish(t *testing.T) {
	publisher := &NoOpPublisher{}

	assert.NotPanics(t, func() {
		publisher.Publish(uuid.New(), testStatusEvent())
	})
}

func TestStatusPublisher_DeliversToOwner(t *testing.T) {
	hub := NewHub()
	owner, stranger := uuid.New(), uuid.New()
	ownerClient := newMockClient("owner", owner)
	strangerClient := newMockClient("stranger", stranger)
	hub.Register(ownerClient)
	hub.Register(strangerClient)

	prev := domain.StatusDraft
	event := &domain.StatusEvent{
		ID:            uuid.New(),
		ApplicationID: 5,
		OwnerID:       owner,
		Record: domain.ApplicationStatusRecord{
			ApplicationID:  5,
			PreviousStatus: &prev,
			Status:         domain.StatusSubmitted,
			CreatedAt:      time.Now().UTC(),
		},
		CreatedAt: time.Now().UTC(),
	}

	require.NoError(t, NewStatusPublisher(hub).PublishStatusEvent(context.Background(), event))

	messages := ownerClient.GetMessages()
	require.Len(t, messages, 1)
	assert.Empty(t, strangerClient.GetMessages())

	var decoded Event
	require.NoError(t, json.Unmarshal(messages[0], &decoded))
	assert.Equal(t, "credit_application.status_changed", decoded.Type)
}

func TestStatusPublisher_NoConnectionsIsNotAnError(t *testing.T) {
	err := NewStatusPublisher(NewHub()).PublishStatusEvent(context.Background(), &domain.StatusEvent{
		ID:      uuid.New(),
		OwnerID: uuid.New(),
		Record:  domain.ApplicationStatusRecord{Status: domain.StatusDraft},
	})
	assert.NoError(t, err)
}

func TestStatusPublisher_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewStatusPublisher(&NoOpPublisher{}).PublishStatusEvent(ctx, &domain.StatusEvent{})
	assert.ErrorIs(t, err, context.Canceled)
}
