package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clubhouse/internal/application/dispatch"
	"clubhouse/internal/domain/application"
	"clubhouse/internal/domain/audit"
	"clubhouse/internal/domain/failure"
)

// ApplicationStoreForDelete reads and removes applications.
type ApplicationStoreForDelete interface {
	GetByID(ctx context.Context, id string) (application.Application, error)
	LatestByUser(ctx context.Context, userID string) (application.Application, error)
	Delete(ctx context.Context, id string) error
}

// DeleteApplicationInput carries input for the orchestrator.
type DeleteApplicationInput struct {
	ActorID       string
	ApplicationID string
}

// DeleteApplicationDeps holds dependencies for DeleteApplication.
type DeleteApplicationDeps struct {
	Scopes           ScopeResolver
	Tx               TxRunner
	ApplicationStore ApplicationStoreForDelete
	AthleteStore     AthleteLister
	AccountStore     MembershipStatusStore
	AuditStore       AuditAppender
	Notifier         dispatch.Notifier
	Now              func() time.Time
	GenerateID       func() string
}

// ExecuteDeleteApplication hard-deletes an application.
// PRE: actor is an admin
// POST: the row is gone, membership_status follows the user's remaining applications
// INVARIANT: an athlete profile created by the application is kept
func ExecuteDeleteApplication(ctx context.Context, input DeleteApplicationInput, deps DeleteApplicationDeps) error {
	actor, err := deps.Scopes.Resolve(ctx, input.ActorID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return failure.Unauthorized("only admins may delete applications")
	}
	app, err := deps.ApplicationStore.GetByID(ctx, input.ApplicationID)
	if err != nil {
		return err
	}

	now := deps.Now()
	err = deps.Tx.InTx(ctx, func(ctx context.Context) error {
		if err := deps.ApplicationStore.Delete(ctx, app.ID); err != nil {
			return err
		}
		event := audit.NewEvent(deps.GenerateID(), now, actor.ActorID, audit.CategoryApplication, audit.ActionDeleted).
			WithSeverity(audit.SeverityWarning).
			WithResource("application", app.ID).
			WithMetadata(map[string]string{"user_id": app.UserID, "club_id": app.ClubID, "status": app.Status})
		if err := deps.AuditStore.Save(ctx, event); err != nil {
			return fmt.Errorf("audit deletion: %w", err)
		}
		return syncMembershipStatus(ctx, app.UserID, deps.AthleteStore, deps.ApplicationStore, deps.AccountStore)
	})
	if err != nil {
		return err
	}

	slog.Warn("application_event", "event", "application_deleted", "application_id", app.ID, "actor_id", actor.ActorID)
	notify(ctx, deps.Notifier, dispatch.ApplicationDeleted, dispatch.Payload{
		dispatch.KeyApplicationID: app.ID,
		dispatch.KeyUserID:        app.UserID,
		dispatch.KeyClubID:        app.ClubID,
	})
	return nil
}
