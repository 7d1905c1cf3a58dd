package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"clubhouse/internal/domain/account"
	"clubhouse/internal/domain/club"
	"clubhouse/internal/domain/failure"
	"clubhouse/internal/domain/scope"
)

// AccountStoreForScope resolves actors.
type AccountStoreForScope interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
}

// CoachStoreForScope resolves a coach's club assignment.
type CoachStoreForScope interface {
	GetCoachByAccount(ctx context.Context, accountID string) (club.Coach, error)
}

// ResolveScopeDeps holds dependencies for ResolveScope.
type ResolveScopeDeps struct {
	AccountStore AccountStoreForScope
	CoachStore   CoachStoreForScope
}

// ScopeResolver turns an authenticated actor id into a Scope.
type ScopeResolver interface {
	Resolve(ctx context.Context, actorID string) (scope.Scope, error)
}

// Resolve implements ScopeResolver.
func (d ResolveScopeDeps) Resolve(ctx context.Context, actorID string) (scope.Scope, error) {
	return ExecuteResolveScope(ctx, actorID, d)
}

// ExecuteResolveScope resolves the authorization reach of actorID.
// PRE: actorID comes from an authenticated session
// POST: admin gets the wildcard, coach gets their club, athlete gets ownership only
// INVARIANT: unknown actors and unassigned coaches fail with an authorization error
func ExecuteResolveScope(ctx context.Context, actorID string, deps ResolveScopeDeps) (scope.Scope, error) {
	if actorID == "" {
		return scope.Scope{}, failure.Unauthorized("no authenticated actor")
	}
	acct, err := deps.AccountStore.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, failure.ErrNotFound) {
			return scope.Scope{}, failure.Unauthorized("unknown actor")
		}
		return scope.Scope{}, fmt.Errorf("load actor: %w", err)
	}

	switch acct.Role {
	case account.RoleAdmin:
		return scope.ForAdmin(acct.ID), nil
	case account.RoleCoach:
		coach, err := deps.CoachStore.GetCoachByAccount(ctx, acct.ID)
		if err != nil {
			if errors.Is(err, failure.ErrNotFound) {
				slog.Warn("scope_event", "event", "coach_unassigned", "actor_id", acct.ID)
				return scope.Scope{}, failure.Unauthorized("coach is not assigned to a club")
			}
			return scope.Scope{}, fmt.Errorf("load coach assignment: %w", err)
		}
		return scope.ForCoach(acct.ID, coach.ClubID), nil
	case account.RoleAthlete:
		return scope.ForAthlete(acct.ID), nil
	}
	return scope.Scope{}, failure.Unauthorized("unknown role %q", acct.Role)
}
