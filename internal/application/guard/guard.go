// Package guard enforces the "at most one active record" rules.
//
// The storage unique indexes are authoritative. AssertNoActiveConflict is the
// fast path that gives a friendly error before the insert, and MapConstraint
// turns the index violation of a lost race into the same error.
package guard

import (
	"context"
	"fmt"

	"clubhouse/internal/adapters/storage"
	"clubhouse/internal/domain/failure"
)

// Kind names a uniqueness rule.
type Kind string

const (
	KindActiveApplication  Kind = "active_application"  // one pending/info_requested application per user
	KindActiveRegistration Kind = "active_registration" // one non-cancelled registration per (activity, athlete)
	KindCheckIn            Kind = "check_in"            // one check-in per (activity, athlete)
)

// Key identifies the record a rule applies to. Only the fields a Kind uses are read.
type Key struct {
	UserID     string
	ActivityID string
	AthleteID  string
}

// Checker reports whether an active record of kind exists for key.
// Implementations must read through the transaction bound to ctx.
type Checker interface {
	Exists(ctx context.Context, kind Kind, key Key) (bool, error)
}

// AssertNoActiveConflict fails when an active record of kind already exists for key.
// PRE: ctx carries the transaction the subsequent insert will use
// POST: nil, a Conflict or AlreadyCheckedIn error, or a storage error
func AssertNoActiveConflict(ctx context.Context, c Checker, kind Kind, key Key) error {
	exists, err := c.Exists(ctx, kind, key)
	if err != nil {
		return fmt.Errorf("check %s: %w", kind, err)
	}
	if exists {
		return conflictFor(kind)
	}
	return nil
}

// MapConstraint maps a unique-index violation to the error AssertNoActiveConflict would return.
// POST: other errors are returned unchanged
func MapConstraint(kind Kind, err error) error {
	if err == nil || !storage.IsUniqueViolation(err) {
		return err
	}
	return conflictFor(kind)
}

func conflictFor(kind Kind) error {
	switch kind {
	case KindActiveApplication:
		return failure.Conflict("an application is already under review for this user")
	case KindActiveRegistration:
		return failure.Conflict("athlete is already registered for this activity")
	case KindCheckIn:
		return failure.New(failure.ErrAlreadyCheckedIn, "athlete has already checked in")
	}
	return failure.Conflict("%s already exists", kind)
}
