package application

import (
	"strings"
	"time"

	"clubhouse/internal/domain/account"
	"clubhouse/internal/domain/failure"
)

// Status constants
const (
	StatusPending       = "pending"
	StatusInfoRequested = "info_requested"
	StatusApproved      = "approved"
	StatusRejected      = "rejected"
)

// Review actions
const (
	ActionApprove     = "approve"
	ActionReject      = "reject"
	ActionRequestInfo = "request_info"
)

// ActiveStatuses are the statuses counted by the one-active-application rule.
var ActiveStatuses = []string{StatusPending, StatusInfoRequested}

// PersonalInfo is the free-form applicant payload keyed by field name.
type PersonalInfo map[string]string

// Get returns the trimmed value for key.
func (p PersonalInfo) Get(key string) string {
	return strings.TrimSpace(p[key])
}

// Document is an opaque reference to an uploaded file.
type Document struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Application is a user's request to join a club.
type Application struct {
	ID              string
	UserID          string
	ClubID          string
	Status          string
	PersonalInfo    PersonalInfo
	Documents       []Document
	ReviewerID      string
	RejectionReason string
	InfoRequestNote string
	ProfileID       string // athlete created on approval
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ReviewedAt      time.Time
}

// Validate checks if the Application has valid data.
// PRE: Application struct is populated
// POST: Returns nil if valid, error otherwise
func (a *Application) Validate() error {
	if a.UserID == "" {
		return failure.MissingField("user_id")
	}
	if a.ClubID == "" {
		return failure.MissingField("club_id")
	}
	if !IsValidStatus(a.Status) {
		return failure.Validation("invalid application status %q", a.Status)
	}
	return nil
}

// IsActive reports whether the application still awaits a decision.
func (a *Application) IsActive() bool {
	return IsActive(a.Status)
}

// IsActive reports whether status is non-terminal.
func IsActive(status string) bool {
	return status == StatusPending || status == StatusInfoRequested
}

// IsValidStatus reports whether status is a known application status.
func IsValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusInfoRequested, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// IsValidAction reports whether action is a known review action.
func IsValidAction(action string) bool {
	switch action {
	case ActionApprove, ActionReject, ActionRequestInfo:
		return true
	}
	return false
}

// Transition returns the status reached by applying action to current.
// PRE: action is a valid review action
// POST: an AlreadyProcessed error for terminal applications; a validation
// error for a rejection without a reason
// INVARIANT: approved and rejected are terminal
func Transition(current, action, reason string) (string, error) {
	if !IsValidAction(action) {
		return "", failure.Validation("unknown review action %q", action)
	}
	if !IsActive(current) {
		return "", failure.AlreadyProcessed("application")
	}
	switch action {
	case ActionApprove:
		return StatusApproved, nil
	case ActionReject:
		if strings.TrimSpace(reason) == "" {
			return "", failure.MissingField("reason")
		}
		return StatusRejected, nil
	default:
		if current != StatusPending {
			return "", failure.AlreadyProcessed("application")
		}
		return StatusInfoRequested, nil
	}
}

// MembershipStatusFor maps an application status to the account membership status.
func MembershipStatusFor(status string) string {
	switch status {
	case StatusPending, StatusInfoRequested:
		return account.MembershipPending
	case StatusApproved:
		return account.MembershipActive
	case StatusRejected:
		return account.MembershipRejected
	}
	return account.MembershipNone
}
