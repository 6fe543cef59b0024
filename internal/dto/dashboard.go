package dto

// DashboardStats is the aggregate counters panel of the dashboard.
type DashboardStats struct {
	TotalStudents     int     `json:"total_students"`
	RecognizedToday   int     `json:"recognized_today"`
	UnrecognizedToday int     `json:"unrecognized_today"`
	ActiveAlerts      int     `json:"active_alerts"`
	RecognitionRate   float64 `json:"recognition_rate"`
}

// TrendPoint is one day of recognition activity.
type TrendPoint struct {
	Day          string `json:"day"`
	Recognized   int    `json:"recognized"`
	Unrecognized int    `json:"unrecognized"`
}
