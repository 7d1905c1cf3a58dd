package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"clubhouse/internal/domain/activity"
	"clubhouse/internal/domain/audit"
)

// ActivityStoreForCreate persists activities.
type ActivityStoreForCreate interface {
	Create(ctx context.Context, a activity.Activity) error
}

// CreateActivityInput carries input for the orchestrator.
type CreateActivityInput struct {
	ActorID          string
	ClubID           string
	Kind             string
	Title            string
	Date             string
	StartTime        string
	EndTime          string
	Token            string
	GenerateToken    bool // ignored when Token is set
	Capacity         int
	RequiresApproval bool
}

// CreateActivityDeps holds dependencies for CreateActivity.
type CreateActivityDeps struct {
	Scopes        ScopeResolver
	Tx            TxRunner
	ActivityStore ActivityStoreForCreate
	AuditStore    AuditAppender
	Now           func() time.Time
	GenerateID    func() string
}

// ExecuteCreateActivity schedules an activity or training session for a club.
// PRE: actor is a coach or admin of the club
// POST: activity persisted and audited
func ExecuteCreateActivity(ctx context.Context, input CreateActivityInput, deps CreateActivityDeps) (activity.Activity, error) {
	actor, err := deps.Scopes.Resolve(ctx, input.ActorID)
	if err != nil {
		return activity.Activity{}, err
	}
	if err := actor.RequireStaff(input.ClubID); err != nil {
		return activity.Activity{}, err
	}

	act := activity.Activity{
		ID:               deps.GenerateID(),
		ClubID:           input.ClubID,
		Kind:             input.Kind,
		Title:            strings.TrimSpace(input.Title),
		Date:             input.Date,
		StartTime:        input.StartTime,
		EndTime:          input.EndTime,
		Token:            strings.TrimSpace(input.Token),
		Capacity:         input.Capacity,
		RequiresApproval: input.RequiresApproval,
		CreatedBy:        actor.ActorID,
		CreatedAt:        deps.Now(),
	}
	if act.Token == "" && input.GenerateToken {
		token, err := activity.GenerateToken()
		if err != nil {
			return activity.Activity{}, fmt.Errorf("generate token: %w", err)
		}
		act.Token = token
	}
	if err := act.Validate(); err != nil {
		return activity.Activity{}, err
	}

	err = deps.Tx.InTx(ctx, func(ctx context.Context) error {
		if err := deps.ActivityStore.Create(ctx, act); err != nil {
			return fmt.Errorf("create activity: %w", err)
		}
		event := audit.NewEvent(deps.GenerateID(), act.CreatedAt, actor.ActorID, audit.CategoryActivity, audit.ActionCreated).
			WithResource("activity", act.ID).
			WithDescription(act.Title)
		return deps.AuditStore.Save(ctx, event)
	})
	if err != nil {
		return activity.Activity{}, err
	}

	slog.Info("activity_event", "event", "activity_created", "activity_id", act.ID, "club_id", act.ClubID, "kind", act.Kind)
	return act, nil
}
