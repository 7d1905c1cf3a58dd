package audit

import (
	"encoding/json"
	"time"
)

// Category groups audit events by the workflow they belong to.
type Category string

const (
	CategoryApplication  Category = "application"
	CategoryRegistration Category = "registration"
	CategoryCheckIn      Category = "checkin"
	CategoryAccount      Category = "account"
	CategoryClub         Category = "club"
	CategoryActivity     Category = "activity"
)

// Action names the transition that occurred.
type Action string

const (
	ActionSubmitted       Action = "submitted"
	ActionApproved        Action = "approved"
	ActionRejected        Action = "rejected"
	ActionInfoRequested   Action = "info_requested"
	ActionResubmitted     Action = "resubmitted"
	ActionProfileCreated  Action = "profile_created"
	ActionDeleted         Action = "deleted"
	ActionRequested       Action = "requested"
	ActionCancelled       Action = "cancelled"
	ActionRemoved         Action = "removed"
	ActionCheckedIn       Action = "checked_in"
	ActionCreated         Action = "created"
	ActionTokenRotated    Action = "token_rotated"
	ActionCoachAssigned   Action = "coach_assigned"
	ActionLogin           Action = "login"
	ActionLoginFailed     Action = "login_failed"
	ActionPasswordChanged Action = "password_changed"
)

// Severity represents the severity level of an audit event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event is a single append-only audit log entry.
type Event struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Category     Category  `json:"category"`
	Action       Action    `json:"action"`
	Severity     Severity  `json:"severity"`
	ActorID      string    `json:"actor_id"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Description  string    `json:"description"`
	Metadata     string    `json:"metadata"`
}

// NewEvent creates an audit event.
// PRE: id is unique, actorID and action are non-empty
// POST: Returns an info-severity Event stamped at now
func NewEvent(id string, now time.Time, actorID string, category Category, action Action) Event {
	return Event{
		ID:        id,
		Timestamp: now,
		Category:  category,
		Action:    action,
		Severity:  SeverityInfo,
		ActorID:   actorID,
	}
}

// WithSeverity sets the severity level.
func (e Event) WithSeverity(s Severity) Event {
	e.Severity = s
	return e
}

// WithResource sets resource information.
// PRE: resourceType and resourceID are non-empty
// POST: Event resource fields are populated
func (e Event) WithResource(resourceType, resourceID string) Event {
	e.ResourceType = resourceType
	e.ResourceID = resourceID
	return e
}

// WithDescription sets the event description.
func (e Event) WithDescription(desc string) Event {
	e.Description = desc
	return e
}

// WithMetadata encodes fields as the event's JSON metadata.
// POST: Metadata is empty when fields is empty
func (e Event) WithMetadata(fields map[string]string) Event {
	if len(fields) == 0 {
		return e
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return e
	}
	e.Metadata = string(b)
	return e
}

// MetadataMap decodes the JSON metadata.
func (e Event) MetadataMap() map[string]string {
	m := map[string]string{}
	if e.Metadata == "" {
		return m
	}
	_ = json.Unmarshal([]byte(e.Metadata), &m)
	return m
}
