package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	appstore "clubhouse/internal/adapters/storage/application"
	"clubhouse/internal/application/dispatch"
	"clubhouse/internal/domain/account"
	"clubhouse/internal/domain/application"
	"clubhouse/internal/domain/athlete"
	"clubhouse/internal/domain/audit"
	"clubhouse/internal/domain/failure"
)

// ApplicationStoreForReview reads and transitions applications.
type ApplicationStoreForReview interface {
	GetByID(ctx context.Context, id string) (application.Application, error)
	LatestByUser(ctx context.Context, userID string) (application.Application, error)
	Transition(ctx context.Context, change appstore.StatusChange) (bool, error)
	LinkProfile(ctx context.Context, id, profileID string, now time.Time) error
}

// ReviewApplicationInput carries input for the orchestrator.
type ReviewApplicationInput struct {
	ActorID       string
	ApplicationID string
	Action        string // approve, reject or request_info
	Reason        string // required for reject
	Note          string // optional message for request_info
}

// ReviewApplicationResult carries the reviewed application and, on approval, its athlete.
type ReviewApplicationResult struct {
	Application application.Application
	Athlete     *athlete.Athlete
}

// ReviewApplicationDeps holds dependencies for ReviewApplication.
type ReviewApplicationDeps struct {
	Scopes           ScopeResolver
	Tx               TxRunner
	ApplicationStore ApplicationStoreForReview
	AthleteStore     AthleteStoreForReview
	AccountStore     MembershipStatusStore
	AuditStore       AuditAppender
	Notifier         dispatch.Notifier
	Now              func() time.Time
	GenerateID       func() string
}

// ExecuteReviewApplication applies a coach or admin decision to an application.
// PRE: actor's scope includes the application's club
// POST: on success the status change, its audit entries, the athlete profile
// (approve only) and the membership status commit together
// INVARIANT: a lost race or a terminal application yields AlreadyProcessed and changes nothing
func ExecuteReviewApplication(ctx context.Context, input ReviewApplicationInput, deps ReviewApplicationDeps) (ReviewApplicationResult, error) {
	if !application.IsValidAction(input.Action) {
		return ReviewApplicationResult{}, failure.Validation("unknown review action %q", input.Action)
	}
	actor, err := deps.Scopes.Resolve(ctx, input.ActorID)
	if err != nil {
		return ReviewApplicationResult{}, err
	}
	app, err := deps.ApplicationStore.GetByID(ctx, input.ApplicationID)
	if err != nil {
		return ReviewApplicationResult{}, err
	}
	if err := actor.RequireClub(app.ClubID); err != nil {
		return ReviewApplicationResult{}, err
	}
	next, err := application.Transition(app.Status, input.Action, input.Reason)
	if err != nil {
		return ReviewApplicationResult{}, err
	}

	now := deps.Now()
	reason := strings.TrimSpace(input.Reason)
	note := strings.TrimSpace(input.Note)
	var result ReviewApplicationResult

	err = deps.Tx.InTx(ctx, func(ctx context.Context) error {
		change := appstore.StatusChange{
			ID:         app.ID,
			From:       application.ActiveStatuses,
			To:         next,
			ReviewerID: actor.ActorID,
			At:         now,
		}
		switch next {
		case application.StatusRejected:
			change.RejectionReason = reason
		case application.StatusInfoRequested:
			change.From = []string{application.StatusPending}
			change.InfoRequestNote = note
		}
		moved, err := deps.ApplicationStore.Transition(ctx, change)
		if err != nil {
			return fmt.Errorf("transition application: %w", err)
		}
		if !moved {
			return failure.AlreadyProcessed("application")
		}

		app.Status = next
		app.ReviewerID = actor.ActorID
		app.RejectionReason = change.RejectionReason
		app.InfoRequestNote = change.InfoRequestNote
		app.ReviewedAt = now
		app.UpdatedAt = now

		event := audit.NewEvent(deps.GenerateID(), now, actor.ActorID, audit.CategoryApplication, auditActionFor(next)).
			WithResource("application", app.ID)
		if reason != "" && next == application.StatusRejected {
			event = event.WithMetadata(map[string]string{"reason": reason})
		}
		if err := deps.AuditStore.Save(ctx, event); err != nil {
			return fmt.Errorf("audit review: %w", err)
		}

		if next == application.StatusApproved {
			mat, err := ExecuteMaterializeAthlete(ctx, app, MaterializeAthleteDeps{
				AthleteStore:     deps.AthleteStore,
				ApplicationStore: deps.ApplicationStore,
				Now:              deps.Now,
				GenerateID:       deps.GenerateID,
			})
			if err != nil {
				return err
			}
			app.ProfileID = mat.Athlete.ID
			result.Athlete = &mat.Athlete
			profile := audit.NewEvent(deps.GenerateID(), now, actor.ActorID, audit.CategoryApplication, audit.ActionProfileCreated).
				WithResource("athlete", mat.Athlete.ID).
				WithMetadata(map[string]string{"profile_id": mat.Athlete.ID, "application_id": app.ID})
			if err := deps.AuditStore.Save(ctx, profile); err != nil {
				return fmt.Errorf("audit profile: %w", err)
			}
		}

		return syncMembershipStatus(ctx, app.UserID, deps.AthleteStore, deps.ApplicationStore, deps.AccountStore)
	})
	if err != nil {
		return ReviewApplicationResult{}, err
	}

	slog.Info("application_event", "event", "application_reviewed", "application_id", app.ID, "status", next, "reviewer_id", actor.ActorID)
	payload := dispatch.Payload{
		dispatch.KeyApplicationID: app.ID,
		dispatch.KeyUserID:        app.UserID,
		dispatch.KeyClubID:        app.ClubID,
		dispatch.KeyStatus:        next,
	}
	var kind string
	switch next {
	case application.StatusApproved:
		kind = dispatch.ApplicationApproved
		payload[dispatch.KeyProfileID] = app.ProfileID
	case application.StatusRejected:
		kind = dispatch.ApplicationRejected
		payload[dispatch.KeyReason] = reason
	default:
		kind = dispatch.ApplicationInfoRequested
		payload[dispatch.KeyNote] = note
	}
	notify(ctx, deps.Notifier, kind, payload)

	result.Application = app
	return result, nil
}

func auditActionFor(status string) audit.Action {
	switch status {
	case application.StatusApproved:
		return audit.ActionApproved
	case application.StatusRejected:
		return audit.ActionRejected
	}
	return audit.ActionInfoRequested
}

// AthleteStoreForReview materializes athletes and lists a user's existing profiles.
type AthleteStoreForReview interface {
	AthleteStoreForMaterialize
	AthleteLister
}

// AthleteLister lists the athlete profiles owned by a user.
type AthleteLister interface {
	ListByUser(ctx context.Context, userID string) ([]athlete.Athlete, error)
}

// LatestApplicationReader finds the application that drives the membership status.
type LatestApplicationReader interface {
	LatestByUser(ctx context.Context, userID string) (application.Application, error)
}

// syncMembershipStatus rewrites membership_status for userID.
// POST: active while the user has any athlete profile; otherwise follows the
// latest application, and none when no application is left
func syncMembershipStatus(ctx context.Context, userID string, athletes AthleteLister, apps LatestApplicationReader, accounts MembershipStatusStore) error {
	status, err := membershipStatusOf(ctx, userID, athletes, apps)
	if err != nil {
		return err
	}
	if err := accounts.SetMembershipStatus(ctx, userID, status); err != nil {
		return fmt.Errorf("set membership status: %w", err)
	}
	return nil
}

func membershipStatusOf(ctx context.Context, userID string, athletes AthleteLister, apps LatestApplicationReader) (string, error) {
	profiles, err := athletes.ListByUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("list athlete profiles: %w", err)
	}
	if len(profiles) > 0 {
		return account.MembershipActive, nil
	}
	latest, err := apps.LatestByUser(ctx, userID)
	if isNotFound(err) {
		return application.MembershipStatusFor(""), nil
	}
	if err != nil {
		return "", fmt.Errorf("load latest application: %w", err)
	}
	return application.MembershipStatusFor(latest.Status), nil
}
