package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventUnmarshal_KnownAndExtraFields(t *testing.T) {
	payload := `{
		"type": "success",
		"student": "S12345",
		"location": "main gate",
		"time": "2026-08-29T10:15:00",
		"confidence": 0.97,
		"camera_id": "cam-2"
	}`

	var e Event
	require.NoError(t, json.Unmarshal([]byte(payload), &e))

	assert.Equal(t, EventSuccess, e.Type)
	assert.Equal(t, "S12345", e.Student)
	assert.Equal(t, "main gate", e.Location)
	assert.False(t, e.Echo)

	// Unknown keys survive in Extra instead of being dropped.
	assert.Equal(t, 0.97, e.Extra["confidence"])
	assert.Equal(t, "cam-2", e.Extra["camera_id"])
	assert.NotContains(t, e.Extra, "type")
}

func TestEventUnmarshal_Echo(t *testing.T) {
	var e Event
	require.NoError(t, json.Unmarshal([]byte(`{"echo": true, "type": "ready"}`), &e))
	assert.True(t, e.Echo)
	assert.Empty(t, e.Extra)
}

func TestEventMarshalRoundtrip(t *testing.T) {
	in := Event{
		Type:    EventWarning,
		Student: "",
		Time:    "10:15",
		Extra:   map[string]any{"frame": "f-9"},
	}
	in.Location = "lab entrance"

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Event
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in.Type, out.Type)
	assert.Equal(t, in.Location, out.Location)
	assert.Equal(t, "f-9", out.Extra["frame"])
}

func TestEventHeadline(t *testing.T) {
	recognized := Event{Type: EventSuccess, Student: "S12345"}
	assert.True(t, recognized.Recognized())
	assert.Equal(t, "Recognized S12345", recognized.Headline())

	unrecognized := Event{Type: EventWarning, Location: "main gate"}
	assert.False(t, unrecognized.Recognized())
	assert.Equal(t, "Unrecognized at main gate", unrecognized.Headline())
}

func TestEventSameSubject(t *testing.T) {
	a := Event{Type: EventSuccess, Student: "S1"}
	assert.True(t, a.SameSubject(Event{Type: EventSuccess, Student: "S1"}))
	assert.False(t, a.SameSubject(Event{Type: EventWarning, Student: "S1"}))
	assert.False(t, a.SameSubject(Event{Type: EventSuccess, Student: "S2"}))
}
