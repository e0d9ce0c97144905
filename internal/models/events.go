package models

import "time"

// SubmissionEvent is appended to the submissions stream after an application
// is stored.
type SubmissionEvent struct {
	ApplicationID string    `json:"application_id"`
	WizardID      string    `json:"wizard_id"`
	University    string    `json:"university"`
	SubmittedAt   time.Time `json:"submitted_at"`
}
