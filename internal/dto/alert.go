package dto

// SecurityAlert is a stored alert from the backend. Beyond the fixed fields
// the backend attaches arbitrary context, kept in Details for display.
type SecurityAlert struct {
	ID       int               `json:"id"`
	Severity string            `json:"severity,omitempty"`
	Message  string            `json:"message,omitempty"`
	Location string            `json:"location,omitempty"`
	Time     string            `json:"time,omitempty"`
	Details  map[string]string `json:"details,omitempty"`
}
