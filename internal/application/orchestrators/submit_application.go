package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clubhouse/internal/application/dispatch"
	"clubhouse/internal/application/guard"
	"clubhouse/internal/domain/account"
	"clubhouse/internal/domain/application"
	"clubhouse/internal/domain/athlete"
	"clubhouse/internal/domain/audit"
	"clubhouse/internal/domain/club"
	"clubhouse/internal/domain/failure"
)

// ClubStoreForSubmit reads the target club.
type ClubStoreForSubmit interface {
	GetByID(ctx context.Context, id string) (club.Club, error)
	CountCoaches(ctx context.Context, clubID string) (int, error)
}

// AthleteStoreForSubmit detects existing memberships.
type AthleteStoreForSubmit interface {
	GetByUserAndClub(ctx context.Context, userID, clubID string) (athlete.Athlete, error)
	AthleteLister
}

// ApplicationStoreForSubmit persists new applications.
type ApplicationStoreForSubmit interface {
	Create(ctx context.Context, a application.Application) error
}

// MembershipStatusStore rewrites the account membership projection.
type MembershipStatusStore interface {
	SetMembershipStatus(ctx context.Context, id, status string) error
}

// SubmitApplicationInput carries input for the orchestrator.
type SubmitApplicationInput struct {
	ActorID      string
	ClubID       string
	PersonalInfo application.PersonalInfo
	Documents    []application.Document
}

// SubmitApplicationDeps holds dependencies for SubmitApplication.
type SubmitApplicationDeps struct {
	Scopes           ScopeResolver
	Tx               TxRunner
	ClubStore        ClubStoreForSubmit
	AthleteStore     AthleteStoreForSubmit
	ApplicationStore ApplicationStoreForSubmit
	AccountStore     MembershipStatusStore
	Guard            guard.Checker
	AuditStore       AuditAppender
	Notifier         dispatch.Notifier
	Now              func() time.Time
	GenerateID       func() string
}

// ExecuteSubmitApplication files a membership application for the actor.
// PRE: actor is an athlete account; club exists and has at least one coach
// POST: a pending application exists, membership_status is pending unless the
// user already holds an athlete profile, the submission is audited
// INVARIANT: at most one active application per user across all clubs
func ExecuteSubmitApplication(ctx context.Context, input SubmitApplicationInput, deps SubmitApplicationDeps) (application.Application, error) {
	actor, err := deps.Scopes.Resolve(ctx, input.ActorID)
	if err != nil {
		return application.Application{}, err
	}
	if actor.Role != account.RoleAthlete {
		return application.Application{}, failure.Unauthorized("only athlete accounts may apply for membership")
	}
	if input.ClubID == "" {
		return application.Application{}, failure.MissingField("club_id")
	}

	now := deps.Now()
	app := application.Application{
		ID:           deps.GenerateID(),
		UserID:       actor.ActorID,
		ClubID:       input.ClubID,
		Status:       application.StatusPending,
		PersonalInfo: input.PersonalInfo,
		Documents:    input.Documents,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if app.PersonalInfo == nil {
		app.PersonalInfo = application.PersonalInfo{}
	}
	if err := app.Validate(); err != nil {
		return application.Application{}, err
	}

	err = deps.Tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := deps.ClubStore.GetByID(ctx, app.ClubID); err != nil {
			return err
		}
		coaches, err := deps.ClubStore.CountCoaches(ctx, app.ClubID)
		if err != nil {
			return fmt.Errorf("count coaches: %w", err)
		}
		if !club.AcceptsApplications(coaches) {
			return failure.Validation("club has no coach to review applications")
		}

		_, err = deps.AthleteStore.GetByUserAndClub(ctx, app.UserID, app.ClubID)
		switch {
		case err == nil:
			return failure.Conflict("user is already an athlete of this club")
		case !isNotFound(err):
			return fmt.Errorf("lookup athlete: %w", err)
		}

		key := guard.Key{UserID: app.UserID}
		if err := guard.AssertNoActiveConflict(ctx, deps.Guard, guard.KindActiveApplication, key); err != nil {
			return err
		}
		if err := deps.ApplicationStore.Create(ctx, app); err != nil {
			return guard.MapConstraint(guard.KindActiveApplication, err)
		}
		profiles, err := deps.AthleteStore.ListByUser(ctx, app.UserID)
		if err != nil {
			return fmt.Errorf("list athlete profiles: %w", err)
		}
		status := account.MembershipPending
		if len(profiles) > 0 {
			status = account.MembershipActive
		}
		if err := deps.AccountStore.SetMembershipStatus(ctx, app.UserID, status); err != nil {
			return fmt.Errorf("set membership status: %w", err)
		}

		event := audit.NewEvent(deps.GenerateID(), now, actor.ActorID, audit.CategoryApplication, audit.ActionSubmitted).
			WithResource("application", app.ID).
			WithMetadata(map[string]string{"club_id": app.ClubID})
		return deps.AuditStore.Save(ctx, event)
	})
	if err != nil {
		return application.Application{}, err
	}

	slog.Info("application_event", "event", "application_submitted", "application_id", app.ID, "user_id", app.UserID, "club_id", app.ClubID)
	notify(ctx, deps.Notifier, dispatch.ApplicationSubmitted, dispatch.Payload{
		dispatch.KeyApplicationID: app.ID,
		dispatch.KeyUserID:        app.UserID,
		dispatch.KeyClubID:        app.ClubID,
	})
	return app, nil
}
