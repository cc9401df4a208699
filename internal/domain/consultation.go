package domain

import "time"

type ConsultationRequest struct {
	UserID   string
	Name     string
	Age      int
	Gender   string
	Symptoms string
	Severity string
	Details  string
}

// HealthLog is a previously recorded symptom entry supplied by the client.
type HealthLog struct {
	CreatedAt time.Time
	Severity  string
	Symptoms  string
}
