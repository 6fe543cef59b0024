package live

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"faceconsole/internal/dto"
	"faceconsole/internal/logger"
)

const (
	readDeadline = 60 * time.Second
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// readyHandshake is the JSON message announcing this client on the general
// notification channel. The server may echo it back flagged with "echo".
type readyHandshake struct {
	Type     string `json:"type"`
	ClientID string `json:"client_id,omitempty"`
}

// EventStream maintains the general event-notification channel (/ws). It is
// always-on while its Run context lives: a dropped connection is reopened
// after the retry policy's delay. Parsed events are delivered on Events(),
// in arrival order, with echoes of our own handshake suppressed.
type EventStream struct {
	url      string
	policy   RetryPolicy
	log      *logger.Logger
	clientID string

	connected atomic.Bool
	events    chan dto.Event
}

// NewEventStream creates a stream for the given websocket URL.
func NewEventStream(url string, policy RetryPolicy, log *logger.Logger) *EventStream {
	return &EventStream{
		url:      url,
		policy:   policy,
		log:      log,
		clientID: uuid.NewString(),
		events:   make(chan dto.Event, 64),
	}
}

// Connected reports whether the channel is currently open.
func (s *EventStream) Connected() bool {
	return s.connected.Load()
}

// Events yields inbound events. The channel is never closed by the stream;
// consumers select against their own context.
func (s *EventStream) Events() <-chan dto.Event {
	return s.events
}

// Run dials and services the channel until ctx is cancelled. Errors are
// transient by policy: the connection is torn down and redialed after the
// retry delay.
func (s *EventStream) Run(ctx context.Context) error {
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
		if err != nil {
			attempt++
			s.log.Warning("notification channel dial failed (attempt %d): %v", attempt, err)
			if err := sleep(ctx, s.policy.NextDelay(attempt)); err != nil {
				return err
			}
			continue
		}

		attempt = 0
		err = s.serve(ctx, conn)
		s.connected.Store(false)
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Warning("notification channel closed, retrying: %v", err)
		attempt++
		if err := sleep(ctx, s.policy.NextDelay(attempt)); err != nil {
			return err
		}
	}
}

// serve runs one connection: handshake, keepalive pings, read loop. Returns
// when the connection breaks or ctx is cancelled.
func (s *EventStream) serve(ctx context.Context, conn *websocket.Conn) error {
	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	var writeMu sync.Mutex
	writeJSON := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return conn.WriteJSON(v)
	}

	if err := writeJSON(readyHandshake{Type: "ready", ClientID: s.clientID}); err != nil {
		return err
	}
	s.connected.Store(true)
	s.log.Info("notification channel connected")

	// Keepalive and cancellation watcher. Closing the connection unblocks
	// the read loop below.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				writeMu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
				writeMu.Unlock()
				if err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(readDeadline))

		var ev dto.Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			s.log.Warning("notification channel: bad payload: %v", err)
			continue
		}
		if ev.Echo {
			continue
		}

		select {
		case s.events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
