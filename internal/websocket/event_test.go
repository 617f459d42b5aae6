package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/llevateloexpress/financing-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	payload := map[string]interface{}{"applicationId": 1}

	before := time.Now()
	evt := NewEvent(EventTypeStatusChanged, EntityTypeCreditApplication, payload)
	after := time.Now()

	assert.Equal(t, "credit_application.status_changed", evt.Type)
	assert.Equal(t, EntityTypeCreditApplication, evt.Entity)
	assert.Equal(t, payload, evt.Payload)
	assert.True(t, !evt.Timestamp.Before(before) && !evt.Timestamp.After(after))
}

func TestEvent_ToJSON(t *testing.T) {
	evt := NewEvent(EventTypeStatusChanged, EntityTypeCreditApplication, map[string]interface{}{"applicationId": float64(42)})

	data, err := evt.ToJSON()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "credit_application.status_changed", decoded["type"])
	assert.Equal(t, "credit_application", decoded["entity"])
	assert.NotNil(t, decoded["payload"])
	assert.NotNil(t, decoded["timestamp"])
}

func TestApplicationStatusChanged(t *testing.T) {
	changedAt := time.Date(2026, 2, 10, 15, 4, 5, 0, time.UTC)
	prev := domain.StatusInReview
	source := &domain.StatusEvent{
		ID:            uuid.New(),
		ApplicationID: 9,
		OwnerID:       uuid.New(),
		Record: domain.ApplicationStatusRecord{
			ID:             3,
			ApplicationID:  9,
			PreviousStatus: &prev,
			Status:         domain.StatusApproved,
			Note:           "Documentos verificados",
			CreatedAt:      changedAt,
		},
		CreatedAt: changedAt,
	}

	evt := ApplicationStatusChanged(source)
	assert.Equal(t, "credit_application.status_changed", evt.Type)
	assert.Equal(t, changedAt, evt.Timestamp)

	data, err := evt.ToJSON()
	require.NoError(t, err)

	var decoded struct {
		Payload map[string]interface{} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(9), decoded.Payload["applicationId"])
	assert.Equal(t, "in_review", decoded.Payload["previousStatus"])
	assert.Equal(t, "approved", decoded.Payload["status"])
	assert.Equal(t, domain.StatusApproved.Label(), decoded.Payload["statusLabel"])
	assert.Equal(t, source.ID.String(), decoded.Payload["eventId"])
	assert.Equal(t, "Documentos verificados", decoded.Payload["note"])
}

func TestApplicationStatusChanged_CreationRecordHasNoPrevious(t *testing.T) {
	now := time.Now().UTC()
	evt := ApplicationStatusChanged(&domain.StatusEvent{
		ID:            uuid.New(),
		ApplicationID: 1,
		Record:        domain.ApplicationStatusRecord{Status: domain.StatusDraft, CreatedAt: now},
		CreatedAt:     now,
	})

	data, err := evt.ToJSON()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "previousStatus")
}
