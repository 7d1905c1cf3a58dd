package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clubhouse/internal/application/dispatch"
	"clubhouse/internal/domain/audit"
	"clubhouse/internal/domain/registration"
)

// RegistrationStoreForRemove reads and deletes registrations.
type RegistrationStoreForRemove interface {
	GetByID(ctx context.Context, id string) (registration.Registration, error)
	Delete(ctx context.Context, id string) error
}

// RemoveAthleteInput carries input for the orchestrator.
type RemoveAthleteInput struct {
	ActorID        string
	RegistrationID string
}

// RemoveAthleteDeps holds dependencies for RemoveAthlete.
type RemoveAthleteDeps struct {
	Scopes            ScopeResolver
	Tx                TxRunner
	ActivityStore     ActivityReader
	RegistrationStore RegistrationStoreForRemove
	AuditStore        AuditAppender
	Notifier          dispatch.Notifier
	Now               func() time.Time
	GenerateID        func() string
}

// ExecuteRemoveAthlete hard-deletes a registration regardless of its status.
// PRE: actor is a coach or admin of the activity's club
// POST: the registration row is gone and the removal is audited
func ExecuteRemoveAthlete(ctx context.Context, input RemoveAthleteInput, deps RemoveAthleteDeps) error {
	actor, err := deps.Scopes.Resolve(ctx, input.ActorID)
	if err != nil {
		return err
	}
	reg, err := deps.RegistrationStore.GetByID(ctx, input.RegistrationID)
	if err != nil {
		return err
	}
	act, err := deps.ActivityStore.GetByID(ctx, reg.ActivityID)
	if err != nil {
		return err
	}
	if err := actor.RequireStaff(act.ClubID); err != nil {
		return err
	}

	now := deps.Now()
	err = deps.Tx.InTx(ctx, func(ctx context.Context) error {
		if err := deps.RegistrationStore.Delete(ctx, reg.ID); err != nil {
			return err
		}
		event := audit.NewEvent(deps.GenerateID(), now, actor.ActorID, audit.CategoryRegistration, audit.ActionRemoved).
			WithSeverity(audit.SeverityWarning).
			WithResource("registration", reg.ID).
			WithMetadata(map[string]string{"activity_id": act.ID, "athlete_id": reg.AthleteID, "status": reg.Status})
		if err := deps.AuditStore.Save(ctx, event); err != nil {
			return fmt.Errorf("audit removal: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Warn("registration_event", "event", "athlete_removed", "registration_id", reg.ID, "activity_id", act.ID, "actor_id", actor.ActorID)
	notify(ctx, deps.Notifier, dispatch.RegistrationRemoved, dispatch.Payload{
		dispatch.KeyRegistrationID: reg.ID,
		dispatch.KeyActivityID:     act.ID,
		dispatch.KeyAthleteID:      reg.AthleteID,
	})
	return nil
}
