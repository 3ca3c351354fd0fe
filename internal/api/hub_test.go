package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/numa1979/edge-room-monitor/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHubBroadcastsAlertToConnectedClient(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(20 * time.Millisecond)

	hub.Notify(models.Alert{
		SlotID:  1,
		Kind:    models.AlertFall,
		Message: "fall detected",
		Timestamp: time.Unix(1700000000, 0),
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg alertWireMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	require.Equal(t, 1, msg.SlotID)
	require.Equal(t, "fall", msg.Kind)
}
