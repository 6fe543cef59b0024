package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faceconsole/internal/dto"
	"faceconsole/internal/logger"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsURL rewrites an httptest server URL into a websocket one.
func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestEventStream_HandshakeAndDelivery(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		// The client announces itself before anything else.
		var hello readyHandshake
		require.NoError(t, conn.ReadJSON(&hello))
		assert.Equal(t, "ready", hello.Type)
		assert.NotEmpty(t, hello.ClientID)

		// Echo of the handshake must be suppressed client-side.
		require.NoError(t, conn.WriteJSON(map[string]any{"type": "ready", "echo": true}))
		require.NoError(t, conn.WriteJSON(map[string]any{
			"type": "success", "student": "S1", "location": "gate",
		}))

		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	srv := httptest.NewServer(handler)
	defer srv.Close()

	stream := NewEventStream(wsURL(srv, "/ws"), FixedDelay(10*time.Millisecond), logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go stream.Run(ctx)

	select {
	case ev := <-stream.Events():
		assert.Equal(t, dto.EventSuccess, ev.Type)
		assert.Equal(t, "S1", ev.Student)
		assert.False(t, ev.Echo)
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}

	assert.Eventually(t, stream.Connected, time.Second, 10*time.Millisecond)
}

func TestEventStream_ReconnectsAfterDrop(t *testing.T) {
	var dials atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		n := dials.Add(1)
		var hello readyHandshake
		require.NoError(t, conn.ReadJSON(&hello))

		if n == 1 {
			// Drop the first connection right after the handshake.
			conn.Close()
			return
		}

		require.NoError(t, conn.WriteJSON(map[string]any{"type": "warning", "location": "lab"}))
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	srv := httptest.NewServer(handler)
	defer srv.Close()

	stream := NewEventStream(wsURL(srv, "/ws"), FixedDelay(10*time.Millisecond), logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go stream.Run(ctx)

	select {
	case ev := <-stream.Events():
		assert.Equal(t, dto.EventWarning, ev.Type)
	case <-time.After(3 * time.Second):
		t.Fatal("no event after reconnect")
	}
	assert.GreaterOrEqual(t, dials.Load(), int32(2))
}

func TestEventStream_RunStopsOnCancel(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	srv := httptest.NewServer(handler)
	defer srv.Close()

	stream := NewEventStream(wsURL(srv, "/ws"), FixedDelay(10*time.Millisecond), logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- stream.Run(ctx) }()

	assert.Eventually(t, stream.Connected, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, stream.Connected())
}

func TestFixedDelay(t *testing.T) {
	policy := FixedDelay(time.Second)
	assert.Equal(t, time.Second, policy.NextDelay(1))
	assert.Equal(t, time.Second, policy.NextDelay(10))
}
