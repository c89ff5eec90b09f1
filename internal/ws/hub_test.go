package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"busticket/internal/ws"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startHub(t *testing.T) (*ws.Hub, *httptest.Server) {
	t.Helper()
	hub := ws.NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, 3)
	}))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, srv
}

func TestPublishReachesSubscriber(t *testing.T) {
	hub, srv := startHub(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount(3) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, hub.ClientCount(4))

	hub.Publish(4, ws.Event{Type: ws.EventTicketPromoted})
	hub.Publish(3, ws.Event{Type: ws.EventTicketWaitlisted, Data: map[string]int{"ticket_id": 9}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var got struct {
		Type  string         `json:"event_type"`
		BusID uint           `json:"bus_id"`
		Data  map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, ws.EventTicketWaitlisted, got.Type)
	assert.Equal(t, uint(3), got.BusID)
	assert.Equal(t, 9, got.Data["ticket_id"])
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, srv := startHub(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.ClientCount(3) == 1 }, 2*time.Second, 10*time.Millisecond)
	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount(3) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestPublishNeverBlocks(t *testing.T) {
	hub := ws.NewHub(zap.NewNop())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Publish(1, ws.Event{Type: ws.EventTicketCancelled})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked without a running hub")
	}
}
