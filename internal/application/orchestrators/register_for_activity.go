package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clubhouse/internal/application/dispatch"
	"clubhouse/internal/application/guard"
	"clubhouse/internal/domain/activity"
	"clubhouse/internal/domain/athlete"
	"clubhouse/internal/domain/audit"
	"clubhouse/internal/domain/failure"
	"clubhouse/internal/domain/registration"
)

// ActivityReader loads activities.
type ActivityReader interface {
	GetByID(ctx context.Context, id string) (activity.Activity, error)
}

// AthleteStoreForRegistration resolves the actor's athlete profile.
type AthleteStoreForRegistration interface {
	GetByID(ctx context.Context, id string) (athlete.Athlete, error)
	GetByUserAndClub(ctx context.Context, userID, clubID string) (athlete.Athlete, error)
}

// RegistrationStoreForRegister persists registrations.
type RegistrationStoreForRegister interface {
	Create(ctx context.Context, r registration.Registration) error
	CountApproved(ctx context.Context, activityID string) (int, error)
}

// RegisterForActivityInput carries input for the orchestrator.
type RegisterForActivityInput struct {
	ActorID    string
	ActivityID string
}

// RegisterForActivityDeps holds dependencies for RegisterForActivity.
type RegisterForActivityDeps struct {
	Scopes            ScopeResolver
	Tx                TxRunner
	ActivityStore     ActivityReader
	AthleteStore      AthleteStoreForRegistration
	RegistrationStore RegistrationStoreForRegister
	Guard             guard.Checker
	AuditStore        AuditAppender
	Notifier          dispatch.Notifier
	Now               func() time.Time
	GenerateID        func() string
}

// ExecuteRegisterForActivity registers the actor's athlete for an activity.
// PRE: actor owns an athlete in the activity's club
// POST: a pending registration, or an approved one when the activity needs no approval
// INVARIANT: at most one non-cancelled registration per (activity, athlete); approved
// registrations never exceed capacity
func ExecuteRegisterForActivity(ctx context.Context, input RegisterForActivityInput, deps RegisterForActivityDeps) (registration.Registration, error) {
	actor, err := deps.Scopes.Resolve(ctx, input.ActorID)
	if err != nil {
		return registration.Registration{}, err
	}
	act, err := deps.ActivityStore.GetByID(ctx, input.ActivityID)
	if err != nil {
		return registration.Registration{}, err
	}
	ath, err := deps.AthleteStore.GetByUserAndClub(ctx, actor.ActorID, act.ClubID)
	if err != nil {
		if isNotFound(err) {
			return registration.Registration{}, failure.Unauthorized("actor is not an athlete of this club")
		}
		return registration.Registration{}, fmt.Errorf("lookup athlete: %w", err)
	}

	now := deps.Now()
	reg := registration.Registration{
		ID:         deps.GenerateID(),
		ActivityID: act.ID,
		AthleteID:  ath.ID,
		Status:     registration.InitialStatus(act.RequiresApproval),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := reg.Validate(); err != nil {
		return registration.Registration{}, err
	}

	err = deps.Tx.InTx(ctx, func(ctx context.Context) error {
		key := guard.Key{ActivityID: act.ID, AthleteID: ath.ID}
		if err := guard.AssertNoActiveConflict(ctx, deps.Guard, guard.KindActiveRegistration, key); err != nil {
			return err
		}
		if err := checkCapacity(ctx, act, deps.RegistrationStore); err != nil {
			return err
		}
		if err := deps.RegistrationStore.Create(ctx, reg); err != nil {
			return guard.MapConstraint(guard.KindActiveRegistration, err)
		}
		event := audit.NewEvent(deps.GenerateID(), now, actor.ActorID, audit.CategoryRegistration, audit.ActionRequested).
			WithResource("registration", reg.ID).
			WithMetadata(map[string]string{"activity_id": act.ID, "athlete_id": ath.ID, "status": reg.Status})
		return deps.AuditStore.Save(ctx, event)
	})
	if err != nil {
		return registration.Registration{}, err
	}

	slog.Info("registration_event", "event", "registration_created", "registration_id", reg.ID, "activity_id", act.ID, "status", reg.Status)
	kind := dispatch.RegistrationRequested
	if reg.Status == registration.StatusApproved {
		kind = dispatch.RegistrationApproved
	}
	notify(ctx, deps.Notifier, kind, dispatch.Payload{
		dispatch.KeyRegistrationID: reg.ID,
		dispatch.KeyActivityID:     act.ID,
		dispatch.KeyAthleteID:      ath.ID,
		dispatch.KeyUserID:         ath.UserID,
		dispatch.KeyStatus:         reg.Status,
	})
	return reg, nil
}

// ApprovedCounter counts approved registrations of an activity.
type ApprovedCounter interface {
	CountApproved(ctx context.Context, activityID string) (int, error)
}

// checkCapacity fails with a conflict when another approval would overflow the activity.
func checkCapacity(ctx context.Context, act activity.Activity, counter ApprovedCounter) error {
	if act.Capacity == 0 {
		return nil
	}
	approved, err := counter.CountApproved(ctx, act.ID)
	if err != nil {
		return fmt.Errorf("count approved registrations: %w", err)
	}
	if !act.HasCapacityFor(approved) {
		return failure.Conflict("activity is full")
	}
	return nil
}
