package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polyarb/internal/bus"
	"github.com/alanyoungcy/polyarb/internal/domain"
)

type envelope struct {
	Type     string          `json:"type"`
	Channel  string          `json:"channel"`
	StreamID string          `json:"stream_id"`
	Payload  json.RawMessage `json:"payload"`
	Event    string          `json:"event"`
}

func startHub(t *testing.T) (*bus.MemoryBus, *websocket.Conn) {
	t.Helper()
	b := bus.NewMemoryBus(0)
	hub := NewHub(b, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{Mode: "Paper"})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = hub.Run(ctx) }()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1 && b.Subscribers(domain.ChannelOpportunities) == 1
	}, time.Second, 5*time.Millisecond)
	return b, conn
}

func read(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var e envelope
	require.NoError(t, json.Unmarshal(data, &e))
	return e
}

func TestHub_SendsStatusThenEvents(t *testing.T) {
	b, conn := startHub(t)

	status := read(t, conn)
	assert.Equal(t, "status", status.Type)
	assert.Contains(t, string(status.Payload), `"mode":"paper"`)

	require.NoError(t, b.Publish(context.Background(), domain.ChannelOpportunities, []byte(`{"event":"opportunity_detected"}`)))
	evt := read(t, conn)
	assert.Equal(t, "opportunity_detected", evt.Event)
}

func TestHub_Replay(t *testing.T) {
	b, conn := startHub(t)
	read(t, conn) // status

	ctx := context.Background()
	require.NoError(t, b.StreamAppend(ctx, domain.ChannelExecutions, []byte(`{"event":"trade_executed","n":1}`)))
	require.NoError(t, b.StreamAppend(ctx, domain.ChannelExecutions, []byte(`{"event":"trade_executed","n":2}`)))

	require.NoError(t, conn.WriteJSON(map[string]any{
		"action":   "replay",
		"channels": []string{domain.ChannelExecutions, "unknown"},
	}))

	first := read(t, conn)
	assert.Equal(t, "replay", first.Type)
	assert.Equal(t, domain.ChannelExecutions, first.Channel)
	assert.JSONEq(t, `{"event":"trade_executed","n":1}`, string(first.Payload))

	second := read(t, conn)
	assert.JSONEq(t, `{"event":"trade_executed","n":2}`, string(second.Payload))
}
