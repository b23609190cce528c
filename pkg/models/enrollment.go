package models

import "time"

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentStopped   EnrollmentStatus = "stopped"
	EnrollmentOptedOut  EnrollmentStatus = "opted_out"
)

// Enrollment tracks one contact's participation in one sequence. At most one
// active enrollment exists per (sequence, contact) pair; the store enforces
// it. Terminal enrollments accumulate as history.
type Enrollment struct {
	ID          string           `json:"id"`
	SequenceID  string           `json:"sequence_id"`
	ContactID   string           `json:"contact_id"`
	WorkspaceID string           `json:"workspace_id"`
	Status      EnrollmentStatus `json:"status"`
	CurrentStep int              `json:"current_step"`
	NextStepAt  *time.Time       `json:"next_step_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// CanTransition reports whether the enrollment may move to the target status.
// Only active has outgoing transitions; completed, stopped and opted_out are
// terminal and never re-enter active.
func (e *Enrollment) CanTransition(to EnrollmentStatus) bool {
	if e.Status != EnrollmentActive {
		return false
	}

	switch to {
	case EnrollmentCompleted, EnrollmentStopped, EnrollmentOptedOut:
		return true
	case EnrollmentActive:
		return false
	default:
		return false
	}
}
