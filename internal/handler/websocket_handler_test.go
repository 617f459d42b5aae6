package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/llevateloexpress/financing-backend/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockJWTValidator is a test double for JWT validation
type mockJWTValidator struct {
	userID uuid.UUID
	err    error
}

func (m *mockJWTValidator) ValidateToken(ctx context.Context, token string) (uuid.UUID, error) {
	return m.userID, m.err
}

var testAllowedOrigins = []string{"http://localhost:3000", "https://llevateloexpress.com"}

func TestWebSocketHandler_HandleWS_MissingToken(t *testing.T) {
	e := echo.New()
	h := NewWebSocketHandler(websocket.NewHub(), &mockJWTValidator{userID: uuid.New()}, testAllowedOrigins)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := h.HandleWS(c)

	var httpErr *echo.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestWebSocketHandler_HandleWS_InvalidToken(t *testing.T) {
	e := echo.New()
	h := NewWebSocketHandler(websocket.NewHub(), &mockJWTValidator{err: errors.New("token expired")}, testAllowedOrigins)

	req := httptest.NewRequest(http.MethodGet, "/ws?token=invalid-jwt", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := h.HandleWS(c)

	var httpErr *echo.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestWebSocketHandler_HandleWS_ValidToken_NoUpgrade(t *testing.T) {
	e := echo.New()
	h := NewWebSocketHandler(websocket.NewHub(), &mockJWTValidator{userID: uuid.New()}, testAllowedOrigins)

	req := httptest.NewRequest(http.MethodGet, "/ws?token=valid-jwt", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	// Auth passes, the plain GET then fails the upgrade handshake
	err := h.HandleWS(c)
	require.Error(t, err)
	var httpErr *echo.HTTPError
	assert.False(t, errors.As(err, &httpErr))
}

func TestWebSocketHandler_HandleWS_RegistersClient(t *testing.T) {
	userID := uuid.New()
	hub := websocket.NewHub()
	h := NewWebSocketHandler(hub, &mockJWTValidator{userID: userID}, testAllowedOrigins)

	e := echo.New()
	e.GET("/ws", h.HandleWS)
	server := httptest.NewServer(e)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=valid-jwt"
	conn, resp, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	assert.Eventually(t, func() bool { return hub.ClientCount(userID) == 1 }, time.Second, 10*time.Millisecond)
}

func TestWebSocketHandler_CheckOrigin(t *testing.T) {
	h := NewWebSocketHandler(websocket.NewHub(), &mockJWTValidator{userID: uuid.New()}, testAllowedOrigins)

	tests := []struct {
		name     string
		origin   string
		expected bool
	}{
		{"allowed origin", "http://localhost:3000", true},
		{"allowed origin https", "https://llevateloexpress.com", true},
		{"disallowed origin", "https://evil.com", false},
		{"empty origin", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.expected, h.checkOrigin(req))
		})
	}
}
