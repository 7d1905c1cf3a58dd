package outbox

import (
	"encoding/json"
	"errors"
	"time"
)

// Status constants for outbox entry lifecycle.
const (
	StatusPending   = "pending"
	StatusRetrying  = "retrying"
	StatusDone      = "done"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
)

// ActionTypeEmail is the only external integration: notification email.
const ActionTypeEmail = "email"

// DefaultMaxAttempts caps delivery retries.
const DefaultMaxAttempts = 5

// Domain errors.
var (
	ErrEmptyActionType  = errors.New("action type is required")
	ErrEmptyPayload     = errors.New("payload is required")
	ErrEmptyRecipient   = errors.New("email recipient is required")
	ErrNotRequeueable   = errors.New("only failed entries can be requeued")
	ErrAlreadyDelivered = errors.New("entry was already delivered")
)

// Entry is a queued external notification awaiting delivery.
type Entry struct {
	ID              string
	ActionType      string
	Payload         string // JSON, see EmailPayload
	Status          string
	Attempts        int
	MaxAttempts     int
	LastAttemptedAt time.Time
	CreatedAt       time.Time
	ExternalID      string // provider message id
	ErrorMessage    string
}

// EmailPayload is the replayable body of an email entry.
type EmailPayload struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Markdown string `json:"markdown"`
	Kind     string `json:"kind"` // notification event kind
}

// NewEmail builds a pending email entry.
// PRE: payload.To is non-empty
// POST: Entry is pending with DefaultMaxAttempts
func NewEmail(id string, now time.Time, payload EmailPayload) (Entry, error) {
	if payload.To == "" {
		return Entry{}, ErrEmptyRecipient
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:          id,
		ActionType:  ActionTypeEmail,
		Payload:     string(b),
		Status:      StatusPending,
		MaxAttempts: DefaultMaxAttempts,
		CreatedAt:   now,
	}, nil
}

// Email decodes the entry payload.
func (e *Entry) Email() (EmailPayload, error) {
	var p EmailPayload
	err := json.Unmarshal([]byte(e.Payload), &p)
	return p, err
}

// Validate checks that the Entry has valid data.
// PRE: Entry struct is populated
// POST: Returns nil if valid, error otherwise
func (e *Entry) Validate() error {
	if e.ActionType == "" {
		return ErrEmptyActionType
	}
	if e.Payload == "" {
		return ErrEmptyPayload
	}
	if e.CreatedAt.IsZero() {
		return errors.New("created_at must be set")
	}
	if e.MaxAttempts <= 0 {
		e.MaxAttempts = DefaultMaxAttempts
	}
	return nil
}

// CanRetry returns true if the entry can be retried.
// POST: Returns true for pending/retrying/failed with attempts < max
func (e *Entry) CanRetry() bool {
	return (e.Status == StatusPending || e.Status == StatusRetrying || e.Status == StatusFailed) &&
		e.Attempts < e.MaxAttempts
}

// IsTerminal returns true if the entry has reached a terminal state.
func (e *Entry) IsTerminal() bool {
	if e.Status == StatusDone || e.Status == StatusAbandoned {
		return true
	}
	return e.Status == StatusFailed && e.Attempts >= e.MaxAttempts
}

// MarkAttempt records a delivery attempt at now.
// POST: Attempts incremented, status set to retrying
func (e *Entry) MarkAttempt(now time.Time) {
	e.Attempts++
	e.LastAttemptedAt = now
	e.Status = StatusRetrying
}

// MarkSuccess marks the entry as delivered.
func (e *Entry) MarkSuccess(externalID string) {
	e.Status = StatusDone
	e.ExternalID = externalID
	e.ErrorMessage = ""
}

// MarkFailed records a failed attempt.
// POST: Status becomes failed once attempts are exhausted, otherwise stays retrying
func (e *Entry) MarkFailed(err error) {
	e.ErrorMessage = err.Error()
	if e.Attempts >= e.MaxAttempts {
		e.Status = StatusFailed
	}
}

// NextRetryDelay uses exponential backoff: 2^attempts * baseDelay, capped at maxDelay.
func (e *Entry) NextRetryDelay(baseDelay time.Duration, maxDelay time.Duration) time.Duration {
	delay := baseDelay * (1 << e.Attempts)
	if delay > maxDelay || delay <= 0 {
		return maxDelay
	}
	return delay
}

// IsDue reports whether a retrying entry's backoff has elapsed at now.
func (e *Entry) IsDue(now time.Time, baseDelay, maxDelay time.Duration) bool {
	if e.Status == StatusPending || e.LastAttemptedAt.IsZero() {
		return true
	}
	return !now.Before(e.LastAttemptedAt.Add(e.NextRetryDelay(baseDelay, maxDelay)))
}

// Requeue gives a permanently failed entry a fresh set of attempts.
// PRE: Status is failed
// POST: Status is pending with zero attempts; the last error is kept
func (e *Entry) Requeue() error {
	if e.Status != StatusFailed {
		return ErrNotRequeueable
	}
	e.Status = StatusPending
	e.Attempts = 0
	e.LastAttemptedAt = time.Time{}
	return nil
}

// MarkAbandoned stops any further delivery attempts.
// POST: Status is abandoned unless the entry was already delivered
func (e *Entry) MarkAbandoned() error {
	if e.Status == StatusDone {
		return ErrAlreadyDelivered
	}
	e.Status = StatusAbandoned
	return nil
}
