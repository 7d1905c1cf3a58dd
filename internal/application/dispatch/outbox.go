package dispatch

import (
	"context"
	"fmt"
	"time"

	"clubhouse/internal/domain/account"
	"clubhouse/internal/domain/athlete"
	"clubhouse/internal/domain/outbox"
)

// AccountLookup resolves the recipient account.
type AccountLookup interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
}

// AthleteLookup resolves the account behind an athlete.
type AthleteLookup interface {
	GetByID(ctx context.Context, id string) (athlete.Athlete, error)
}

// OutboxWriter queues notification emails.
type OutboxWriter interface {
	Save(ctx context.Context, e outbox.Entry) error
}

// OutboxSink queues an email to the affected applicant or athlete.
// Delivery happens later in the outbox worker.
type OutboxSink struct {
	Accounts   AccountLookup
	Athletes   AthleteLookup
	Outbox     OutboxWriter
	GenerateID func() string
	Now        func() time.Time
}

// Name implements Sink.
func (s *OutboxSink) Name() string { return "outbox" }

// Handle implements Sink.
// POST: events without a mail template are ignored
func (s *OutboxSink) Handle(ctx context.Context, e Event) error {
	subject, body, ok := Compose(e)
	if !ok {
		return nil
	}
	userID := e.Payload[KeyUserID]
	if userID == "" && e.Payload[KeyAthleteID] != "" {
		ath, err := s.Athletes.GetByID(ctx, e.Payload[KeyAthleteID])
		if err != nil {
			return fmt.Errorf("resolve athlete: %w", err)
		}
		userID = ath.UserID
	}
	if userID == "" {
		return nil
	}
	acct, err := s.Accounts.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}
	entry, err := outbox.NewEmail(s.GenerateID(), s.Now(), outbox.EmailPayload{
		To:       acct.Email,
		Subject:  subject,
		Markdown: body,
		Kind:     e.Kind,
	})
	if err != nil {
		return err
	}
	return s.Outbox.Save(ctx, entry)
}

// Compose returns the Markdown email for an event kind.
// POST: ok is false for kinds that send no email
func Compose(e Event) (subject, body string, ok bool) {
	p := e.Payload
	switch e.Kind {
	case ApplicationSubmitted:
		return "We received your membership application",
			"Thanks for applying. A coach will review your application soon.", true
	case ApplicationApproved:
		return "Your membership application was approved",
			"**Welcome to the club!** Your athlete profile is ready.", true
	case ApplicationRejected:
		return "Your membership application was not approved",
			"Your application was not approved.\n\n**Reason:** " + p[KeyReason], true
	case ApplicationInfoRequested:
		body := "A coach needs more information before reviewing your application."
		if p[KeyNote] != "" {
			body += "\n\n> " + p[KeyNote]
		}
		return "More information needed for your application", body, true
	case RegistrationApproved:
		return "Your activity registration was approved", "You're in. See you there!", true
	case RegistrationRejected:
		return "Your activity registration was not approved",
			"Your registration was not approved.\n\n**Reason:** " + p[KeyReason], true
	case RegistrationRemoved:
		return "You were removed from an activity",
			"A coach removed you from an activity you had registered for.", true
	}
	return "", "", false
}
