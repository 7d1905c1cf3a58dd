package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clubhouse/internal/domain/activity"
	"clubhouse/internal/domain/audit"
)

// ActivityStoreForToken reads activities and replaces their token.
type ActivityStoreForToken interface {
	GetByID(ctx context.Context, id string) (activity.Activity, error)
	SetToken(ctx context.Context, id, token string) error
}

// RotateTokenInput carries input for the orchestrator.
type RotateTokenInput struct {
	ActorID    string
	ActivityID string
}

// RotateTokenDeps holds dependencies for RotateToken.
type RotateTokenDeps struct {
	Scopes        ScopeResolver
	Tx            TxRunner
	ActivityStore ActivityStoreForToken
	AuditStore    AuditAppender
	Now           func() time.Time
	GenerateID    func() string
}

// ExecuteRotateToken replaces an activity's verification token with a fresh random one.
// PRE: actor is a coach or admin of the activity's club
// POST: the old token no longer verifies
func ExecuteRotateToken(ctx context.Context, input RotateTokenInput, deps RotateTokenDeps) (activity.Activity, error) {
	actor, err := deps.Scopes.Resolve(ctx, input.ActorID)
	if err != nil {
		return activity.Activity{}, err
	}
	act, err := deps.ActivityStore.GetByID(ctx, input.ActivityID)
	if err != nil {
		return activity.Activity{}, err
	}
	if err := actor.RequireStaff(act.ClubID); err != nil {
		return activity.Activity{}, err
	}

	token, err := activity.GenerateToken()
	if err != nil {
		return activity.Activity{}, fmt.Errorf("generate token: %w", err)
	}
	err = deps.Tx.InTx(ctx, func(ctx context.Context) error {
		if err := deps.ActivityStore.SetToken(ctx, act.ID, token); err != nil {
			return err
		}
		event := audit.NewEvent(deps.GenerateID(), deps.Now(), actor.ActorID, audit.CategoryActivity, audit.ActionTokenRotated).
			WithResource("activity", act.ID)
		return deps.AuditStore.Save(ctx, event)
	})
	if err != nil {
		return activity.Activity{}, err
	}

	slog.Info("activity_event", "event", "token_rotated", "activity_id", act.ID, "actor_id", actor.ActorID)
	act.Token = token
	return act, nil
}
