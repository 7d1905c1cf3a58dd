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

// ApplicationStoreForUpdate reads and resubmits applications.
type ApplicationStoreForUpdate interface {
	GetByID(ctx context.Context, id string) (application.Application, error)
	LatestByUser(ctx context.Context, userID string) (application.Application, error)
	Resubmit(ctx context.Context, id string, info application.PersonalInfo, docs []application.Document, now time.Time) (bool, error)
}

// UpdateApplicationInput carries input for the orchestrator.
type UpdateApplicationInput struct {
	ActorID       string
	ApplicationID string
	PersonalInfo  application.PersonalInfo
	Documents     []application.Document
}

// UpdateApplicationDeps holds dependencies for UpdateApplication.
type UpdateApplicationDeps struct {
	Scopes           ScopeResolver
	Tx               TxRunner
	ApplicationStore ApplicationStoreForUpdate
	AthleteStore     AthleteLister
	AccountStore     MembershipStatusStore
	AuditStore       AuditAppender
	Notifier         dispatch.Notifier
	Now              func() time.Time
	GenerateID       func() string
}

// ExecuteUpdateApplication lets an applicant answer an information request.
// PRE: actor owns the application and it is info_requested
// POST: payload replaced and status back to pending
func ExecuteUpdateApplication(ctx context.Context, input UpdateApplicationInput, deps UpdateApplicationDeps) (application.Application, error) {
	actor, err := deps.Scopes.Resolve(ctx, input.ActorID)
	if err != nil {
		return application.Application{}, err
	}
	app, err := deps.ApplicationStore.GetByID(ctx, input.ApplicationID)
	if err != nil {
		return application.Application{}, err
	}
	if app.UserID != actor.ActorID {
		return application.Application{}, failure.Unauthorized("only the applicant may update an application")
	}
	switch app.Status {
	case application.StatusInfoRequested:
	case application.StatusPending:
		return application.Application{}, failure.Conflict("application is not awaiting more information")
	default:
		return application.Application{}, failure.AlreadyProcessed("application")
	}

	now := deps.Now()
	if input.PersonalInfo == nil {
		input.PersonalInfo = application.PersonalInfo{}
	}

	err = deps.Tx.InTx(ctx, func(ctx context.Context) error {
		moved, err := deps.ApplicationStore.Resubmit(ctx, app.ID, input.PersonalInfo, input.Documents, now)
		if err != nil {
			return fmt.Errorf("resubmit application: %w", err)
		}
		if !moved {
			return failure.AlreadyProcessed("application")
		}
		event := audit.NewEvent(deps.GenerateID(), now, actor.ActorID, audit.CategoryApplication, audit.ActionResubmitted).
			WithResource("application", app.ID)
		if err := deps.AuditStore.Save(ctx, event); err != nil {
			return fmt.Errorf("audit resubmission: %w", err)
		}
		return syncMembershipStatus(ctx, app.UserID, deps.AthleteStore, deps.ApplicationStore, deps.AccountStore)
	})
	if err != nil {
		return application.Application{}, err
	}

	app.Status = application.StatusPending
	app.PersonalInfo = input.PersonalInfo
	app.Documents = input.Documents
	app.UpdatedAt = now

	slog.Info("application_event", "event", "application_resubmitted", "application_id", app.ID)
	notify(ctx, deps.Notifier, dispatch.ApplicationResubmitted, dispatch.Payload{
		dispatch.KeyApplicationID: app.ID,
		dispatch.KeyUserID:        app.UserID,
		dispatch.KeyClubID:        app.ClubID,
	})
	return app, nil
}
