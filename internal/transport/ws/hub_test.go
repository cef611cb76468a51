package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roms-labs/ingest-svc/internal/service/models/event"
)

func TestHub_BroadcastsOrderUpdates(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	defer func() { _ = resp.Body.Close() }()

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	hub.Notify(event.OrderUpdate{
		Type:        event.TypeOrderUpdate,
		OrderNumber: "BBY01-1001",
		Product:     "Widget",
		Status:      "shipped",
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got event.OrderUpdate
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "BBY01-1001", got.OrderNumber)
	assert.Equal(t, "shipped", got.Status)
}

func TestHub_NotifyNeverBlocksWithoutClients(t *testing.T) {
	hub := NewHub()

	// No Run loop is draining the broadcast buffer; Notify must still return.
	for i := 0; i < 200; i++ {
		hub.Notify(event.OrderUpdate{OrderNumber: "BBY01-1"})
	}
}

func TestHub_ShutdownDisconnectsClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	defer func() { _ = resp.Body.Close() }()

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	cancel()

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, time.Second, 10*time.Millisecond)
}
