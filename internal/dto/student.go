package dto

// FaceRecord is one enrolled face-data entry for a student.
type FaceRecord struct {
	FaceID       string `json:"face_id"`
	StudentID    string `json:"student_id"`
	CreatedAt    string `json:"created_at"`
	LastDetected string `json:"last_detected,omitempty"`
	Status       string `json:"status,omitempty"`
}
