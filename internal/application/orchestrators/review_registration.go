package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"clubhouse/internal/application/dispatch"
	"clubhouse/internal/domain/activity"
	"clubhouse/internal/domain/athlete"
	"clubhouse/internal/domain/audit"
	"clubhouse/internal/domain/failure"
	"clubhouse/internal/domain/registration"
	"clubhouse/internal/domain/scope"
)

// RegistrationStoreForTransition reads and transitions registrations.
type RegistrationStoreForTransition interface {
	GetByID(ctx context.Context, id string) (registration.Registration, error)
	CountApproved(ctx context.Context, activityID string) (int, error)
	Transition(ctx context.Context, id, from, to, reviewerID, reason string, at time.Time) (bool, error)
}

// AthleteReader loads athletes.
type AthleteReader interface {
	GetByID(ctx context.Context, id string) (athlete.Athlete, error)
}

// RegistrationTransitionInput carries input for approve, reject and cancel.
type RegistrationTransitionInput struct {
	ActorID        string
	RegistrationID string
	Action         string // approve or reject; ignored by cancel
	Reason         string // required for reject
}

// RegistrationTransitionDeps holds dependencies for the registration transitions.
type RegistrationTransitionDeps struct {
	Scopes            ScopeResolver
	Tx                TxRunner
	ActivityStore     ActivityReader
	AthleteStore      AthleteReader
	RegistrationStore RegistrationStoreForTransition
	AuditStore        AuditAppender
	Notifier          dispatch.Notifier
	Now               func() time.Time
	GenerateID        func() string
}

// ExecuteReviewRegistration approves or rejects a pending registration.
// PRE: actor is a coach or admin of the activity's club
// POST: registration moved out of pending, audited, notified
// INVARIANT: approval never exceeds activity capacity
func ExecuteReviewRegistration(ctx context.Context, input RegistrationTransitionInput, deps RegistrationTransitionDeps) (registration.Registration, error) {
	if input.Action != registration.ActionApprove && input.Action != registration.ActionReject {
		return registration.Registration{}, failure.Validation("unknown review action %q", input.Action)
	}
	actor, err := deps.Scopes.Resolve(ctx, input.ActorID)
	if err != nil {
		return registration.Registration{}, err
	}
	reg, act, err := loadRegistration(ctx, input.RegistrationID, deps)
	if err != nil {
		return registration.Registration{}, err
	}
	if err := actor.RequireStaff(act.ClubID); err != nil {
		return registration.Registration{}, err
	}
	return applyRegistrationTransition(ctx, actor, reg, act, input.Action, input.Reason, deps)
}

// ExecuteCancelRegistration withdraws the actor's own pending registration.
// PRE: actor owns the registered athlete
// POST: registration is cancelled; a new one may be created afterwards
func ExecuteCancelRegistration(ctx context.Context, input RegistrationTransitionInput, deps RegistrationTransitionDeps) (registration.Registration, error) {
	actor, err := deps.Scopes.Resolve(ctx, input.ActorID)
	if err != nil {
		return registration.Registration{}, err
	}
	reg, act, err := loadRegistration(ctx, input.RegistrationID, deps)
	if err != nil {
		return registration.Registration{}, err
	}
	ath, err := deps.AthleteStore.GetByID(ctx, reg.AthleteID)
	if err != nil {
		return registration.Registration{}, err
	}
	if ath.UserID != actor.ActorID {
		return registration.Registration{}, failure.Unauthorized("only the registered athlete may cancel")
	}
	return applyRegistrationTransition(ctx, actor, reg, act, registration.ActionCancel, "", deps)
}

func loadRegistration(ctx context.Context, id string, deps RegistrationTransitionDeps) (registration.Registration, activity.Activity, error) {
	reg, err := deps.RegistrationStore.GetByID(ctx, id)
	if err != nil {
		return registration.Registration{}, activity.Activity{}, err
	}
	act, err := deps.ActivityStore.GetByID(ctx, reg.ActivityID)
	if err != nil {
		return registration.Registration{}, activity.Activity{}, err
	}
	return reg, act, nil
}

func applyRegistrationTransition(ctx context.Context, actor scope.Scope, reg registration.Registration, act activity.Activity, action, reason string, deps RegistrationTransitionDeps) (registration.Registration, error) {
	next, err := registration.Transition(reg.Status, action, reason)
	if err != nil {
		return registration.Registration{}, err
	}
	reason = strings.TrimSpace(reason)
	now := deps.Now()

	err = deps.Tx.InTx(ctx, func(ctx context.Context) error {
		if next == registration.StatusApproved {
			if err := checkCapacity(ctx, act, deps.RegistrationStore); err != nil {
				return err
			}
		}
		moved, err := deps.RegistrationStore.Transition(ctx, reg.ID, registration.StatusPending, next, actor.ActorID, reason, now)
		if err != nil {
			return fmt.Errorf("transition registration: %w", err)
		}
		if !moved {
			return failure.AlreadyProcessed("registration")
		}
		meta := map[string]string{"activity_id": act.ID, "athlete_id": reg.AthleteID}
		if reason != "" {
			meta["reason"] = reason
		}
		event := audit.NewEvent(deps.GenerateID(), now, actor.ActorID, audit.CategoryRegistration, registrationAuditAction(next)).
			WithResource("registration", reg.ID).
			WithMetadata(meta)
		return deps.AuditStore.Save(ctx, event)
	})
	if err != nil {
		return registration.Registration{}, err
	}

	reg.Status = next
	reg.ReviewerID = actor.ActorID
	reg.RejectionReason = reason
	reg.UpdatedAt = now

	slog.Info("registration_event", "event", "registration_"+next, "registration_id", reg.ID, "actor_id", actor.ActorID)
	payload := dispatch.Payload{
		dispatch.KeyRegistrationID: reg.ID,
		dispatch.KeyActivityID:     act.ID,
		dispatch.KeyAthleteID:      reg.AthleteID,
		dispatch.KeyStatus:         next,
	}
	if reason != "" {
		payload[dispatch.KeyReason] = reason
	}
	notify(ctx, deps.Notifier, registrationEventKind(next), payload)
	return reg, nil
}

func registrationAuditAction(status string) audit.Action {
	switch status {
	case registration.StatusApproved:
		return audit.ActionApproved
	case registration.StatusRejected:
		return audit.ActionRejected
	}
	return audit.ActionCancelled
}

func registrationEventKind(status string) string {
	switch status {
	case registration.StatusApproved:
		return dispatch.RegistrationApproved
	case registration.StatusRejected:
		return dispatch.RegistrationRejected
	}
	return dispatch.RegistrationCancelled
}
