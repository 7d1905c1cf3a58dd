package registration

import (
	"strings"
	"time"

	"clubhouse/internal/domain/failure"
)

// Status constants
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

// Actions
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionCancel  = "cancel"
)

// Registration is an athlete's request to take part in a gated activity.
type Registration struct {
	ID              string
	ActivityID      string
	AthleteID       string
	Status          string
	ReviewerID      string
	RejectionReason string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate checks if the Registration has valid data.
// PRE: Registration struct is populated
// POST: Returns nil if valid, error otherwise
func (r *Registration) Validate() error {
	if r.ActivityID == "" {
		return failure.MissingField("activity_id")
	}
	if r.AthleteID == "" {
		return failure.MissingField("athlete_id")
	}
	switch r.Status {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return nil
	}
	return failure.Validation("invalid registration status %q", r.Status)
}

// Transition returns the status reached by applying action to current.
// Only pending registrations move; every other status is terminal.
// PRE: ownership and club scope were already checked by the caller
// POST: AlreadyProcessed for non-pending registrations
func Transition(current, action, reason string) (string, error) {
	var next string
	switch action {
	case ActionApprove:
		next = StatusApproved
	case ActionReject:
		next = StatusRejected
	case ActionCancel:
		next = StatusCancelled
	default:
		return "", failure.Validation("unknown registration action %q", action)
	}
	if current != StatusPending {
		return "", failure.AlreadyProcessed("registration")
	}
	if action == ActionReject && strings.TrimSpace(reason) == "" {
		return "", failure.MissingField("reason")
	}
	return next, nil
}

// InitialStatus is the status a new registration starts in.
func InitialStatus(requiresApproval bool) string {
	if requiresApproval {
		return StatusPending
	}
	return StatusApproved
}
