package dto

import "encoding/json"

// Event kinds pushed over the notification and live channels.
const (
	EventSuccess = "success" // face recognized
	EventWarning = "warning" // face not recognized
)

// Event is a recognition event from the backend. The fixed fields cover the
// known kinds; anything else the server attaches survives in Extra so it can
// still be displayed.
type Event struct {
	Type     string
	Student  string
	Location string
	Time     string
	Echo     bool // server echo of our own handshake

	Extra map[string]any
}

// fixed field names consumed into the typed part of Event.
var eventFields = map[string]bool{
	"type": true, "student": true, "location": true, "time": true, "echo": true,
}

// UnmarshalJSON fills the typed fields and collects unknown keys into Extra.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	str := func(key string) string {
		var s string
		if v, ok := raw[key]; ok {
			_ = json.Unmarshal(v, &s)
		}
		return s
	}

	e.Type = str("type")
	e.Student = str("student")
	e.Location = str("location")
	e.Time = str("time")
	if v, ok := raw["echo"]; ok {
		_ = json.Unmarshal(v, &e.Echo)
	}

	for key, v := range raw {
		if eventFields[key] {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			continue
		}
		if e.Extra == nil {
			e.Extra = make(map[string]any)
		}
		e.Extra[key] = val
	}
	return nil
}

// MarshalJSON flattens the typed fields and Extra back into one object.
func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Extra)+5)
	for k, v := range e.Extra {
		out[k] = v
	}
	if e.Type != "" {
		out["type"] = e.Type
	}
	if e.Student != "" {
		out["student"] = e.Student
	}
	if e.Location != "" {
		out["location"] = e.Location
	}
	if e.Time != "" {
		out["time"] = e.Time
	}
	if e.Echo {
		out["echo"] = true
	}
	return json.Marshal(out)
}

// Recognized reports whether the event is a successful match.
func (e Event) Recognized() bool {
	return e.Type == EventSuccess
}

// SameSubject reports whether two events would read as duplicates: same
// kind and same student. Used to suppress rapid repeated detections.
func (e Event) SameSubject(other Event) bool {
	return e.Type == other.Type && e.Student == other.Student
}

// Headline renders the one-line description shown in the event list.
func (e Event) Headline() string {
	if e.Recognized() {
		return "Recognized " + e.Student
	}
	return "Unrecognized at " + e.Location
}
