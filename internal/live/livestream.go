package live

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"faceconsole/internal/dto"
)

// ErrChannelClosed is returned when a frame is sent on a closed live channel.
var ErrChannelClosed = errors.New("live: frame channel closed")

// frameChannel is one connection to the live-frame endpoint
// (/ws/live?mode=...). Frames go out as binary messages; recognition
// results come back as JSON. Unlike the notification channel it has no
// internal retry: its lifetime is bound to "live mode and streaming", and
// the controller redials while that holds.
type frameChannel struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	open    atomic.Bool
}

// dialFrameChannel opens the live-frame connection.
func dialFrameChannel(ctx context.Context, url string) (*frameChannel, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	fc := &frameChannel{conn: conn}
	fc.open.Store(true)
	return fc, nil
}

// Open reports whether frames may currently be sent.
func (fc *frameChannel) Open() bool {
	return fc.open.Load()
}

// SendFrame transmits one encoded frame. Checked against channel readiness
// so the frame loop never enqueues faster than the connection accepts.
func (fc *frameChannel) SendFrame(data []byte) error {
	if !fc.open.Load() {
		return ErrChannelClosed
	}
	fc.writeMu.Lock()
	defer fc.writeMu.Unlock()
	fc.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return fc.conn.WriteMessage(websocket.BinaryMessage, data)
}

// readResults consumes recognition results into the event log until the
// connection breaks or ctx ends.
func (fc *frameChannel) readResults(ctx context.Context, events *EventLog) error {
	fc.conn.SetReadDeadline(time.Now().Add(readDeadline))
	fc.conn.SetPongHandler(func(string) error {
		fc.conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, msg, err := fc.conn.ReadMessage()
		if err != nil {
			return err
		}
		fc.conn.SetReadDeadline(time.Now().Add(readDeadline))

		var ev dto.Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			continue
		}
		events.Push(ev)
	}
}

// Close marks the channel unusable and closes the connection. Idempotent.
func (fc *frameChannel) Close() {
	if fc.open.Swap(false) {
		fc.conn.Close()
	}
}
