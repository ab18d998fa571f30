package socket

import (
	"context"
	"encoding/json"
	"event-bridge/domain"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type inboundFunc func(source string, env domain.Envelope)

func (f inboundFunc) HandleInbound(source string, env domain.Envelope) { f(source, env) }

// newGateway upgrades every request, reports the first frame it reads and
// then pushes the given frames to the client.
func newGateway(t *testing.T, firstFrame chan<- []byte, frames ...[]byte) *httptest.Server {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		firstFrame <- data
		for _, frame := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		}
		// Hold the connection until the client leaves
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestWebsocketDialer_Against_Gateway(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	env, err := domain.NewEventEnvelope("", 1, time.UnixMilli(1700000000000), domain.ContentCreated{
		Content: domain.Content{ContentID: "c1", Version: 1},
	})
	req.NoError(err)
	raw, err := env.Encode()
	req.NoError(err)

	firstFrame := make(chan []byte, 1)
	server := newGateway(t, firstFrame, raw)

	received := make(chan domain.Envelope, 1)
	adapter := NewAdapter(log, clock.New(), NewWebsocketDialer(time.Second), Options{
		URL:          "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/events",
		SessionScope: "room-1",
	}, inboundFunc(func(_ string, env domain.Envelope) { received <- env }), nil,
		func() string { return "me" }, nil)

	adapter.Start()
	defer adapter.Stop()

	// Then the scope is the first frame the gateway reads
	select {
	case data := <-firstFrame:
		var msg scopeMessage
		req.NoError(json.Unmarshal(data, &msg))
		req.Equal(scopeMessage{Type: "subscribe", SessionScope: "room-1"}, msg)
	case <-time.After(5 * time.Second):
		req.Fail("gateway never received the scope message")
	}

	// And the envelope pushed by the gateway is forwarded
	select {
	case got := <-received:
		req.Equal(env, got)
	case <-time.After(5 * time.Second):
		req.Fail("envelope never forwarded")
	}
	req.True(adapter.IsOpen())
}

func TestWebsocketDialer_Unreachable(t *testing.T) {
	dialer := NewWebsocketDialer(100 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := dialer.DialContext(ctx, "ws://127.0.0.1:1/ws/events")
	require.Error(t, err)
}
