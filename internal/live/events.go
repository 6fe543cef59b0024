package live

import (
	"sync"

	"faceconsole/internal/dto"
)

// EventLog is the reconciled, newest-first list of recognition events shown
// to the user. It lives in memory for the session only.
type EventLog struct {
	mu     sync.Mutex
	events []dto.Event
}

// NewEventLog returns an empty log.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// Push prepends the event unless it duplicates the current head (same kind
// and same subject), which bounds flicker from rapid repeated detections of
// one person. Returns whether the event was kept.
func (l *EventLog) Push(e dto.Event) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.events) > 0 && l.events[0].SameSubject(e) {
		return false
	}
	l.events = append([]dto.Event{e}, l.events...)
	return true
}

// Snapshot returns a copy of the list, newest first.
func (l *EventLog) Snapshot() []dto.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]dto.Event, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of events held.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Clear drops all events. Called on view teardown.
func (l *EventLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}
