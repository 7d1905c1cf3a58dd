// Package email delivers club notification emails.
package email

import (
	"context"
	"strings"
	"time"
)

// SendRequest is one rendered notification addressed to a single member.
type SendRequest struct {
	To      string
	Subject string
	HTML    string
	Text    string // plain-text alternative
	Kind    string // notification event kind, e.g. application.approved
}

// SendResult is the provider's acknowledgement.
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Sender hands a notification to an email provider.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}

// tagValue maps an event kind onto the provider's tag alphabet (letters, digits, _ and -).
func tagValue(kind string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, kind)
}
