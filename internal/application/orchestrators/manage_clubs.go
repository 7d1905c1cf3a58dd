package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"clubhouse/internal/adapters/storage"
	"clubhouse/internal/domain/account"
	"clubhouse/internal/domain/audit"
	"clubhouse/internal/domain/club"
	"clubhouse/internal/domain/failure"
)

// ClubStoreForManage creates clubs and assigns coaches.
type ClubStoreForManage interface {
	Create(ctx context.Context, c club.Club) error
	GetByID(ctx context.Context, id string) (club.Club, error)
	AddCoach(ctx context.Context, c club.Coach) error
}

// AccountReader loads accounts.
type AccountReader interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
}

// ManageClubsDeps holds dependencies for club administration.
type ManageClubsDeps struct {
	Scopes       ScopeResolver
	Tx           TxRunner
	ClubStore    ClubStoreForManage
	AccountStore AccountReader
	AuditStore   AuditAppender
	Now          func() time.Time
	GenerateID   func() string
}

// CreateClubInput carries input for CreateClub.
type CreateClubInput struct {
	ActorID   string
	Name      string
	SportType string
}

// ExecuteCreateClub creates a club.
// PRE: actor is an admin
// POST: club persisted and audited
func ExecuteCreateClub(ctx context.Context, input CreateClubInput, deps ManageClubsDeps) (club.Club, error) {
	actor, err := deps.Scopes.Resolve(ctx, input.ActorID)
	if err != nil {
		return club.Club{}, err
	}
	if !actor.IsAdmin() {
		return club.Club{}, failure.Unauthorized("only admins may create clubs")
	}
	c := club.Club{
		ID:        deps.GenerateID(),
		Name:      strings.TrimSpace(input.Name),
		SportType: strings.TrimSpace(input.SportType),
		CreatedAt: deps.Now(),
	}
	if err := c.Validate(); err != nil {
		return club.Club{}, failure.Validation("%s", err.Error())
	}

	err = deps.Tx.InTx(ctx, func(ctx context.Context) error {
		if err := deps.ClubStore.Create(ctx, c); err != nil {
			return fmt.Errorf("create club: %w", err)
		}
		event := audit.NewEvent(deps.GenerateID(), c.CreatedAt, actor.ActorID, audit.CategoryClub, audit.ActionCreated).
			WithResource("club", c.ID).
			WithDescription(c.Name)
		return deps.AuditStore.Save(ctx, event)
	})
	if err != nil {
		return club.Club{}, err
	}
	slog.Info("club_event", "event", "club_created", "club_id", c.ID, "name", c.Name)
	return c, nil
}

// AssignCoachInput carries input for AssignCoach.
type AssignCoachInput struct {
	ActorID   string
	ClubID    string
	AccountID string
}

// ExecuteAssignCoach makes a coach account the coach of a club.
// PRE: actor is an admin; the target account has the coach role
// INVARIANT: a coach account belongs to exactly one club
func ExecuteAssignCoach(ctx context.Context, input AssignCoachInput, deps ManageClubsDeps) (club.Coach, error) {
	actor, err := deps.Scopes.Resolve(ctx, input.ActorID)
	if err != nil {
		return club.Coach{}, err
	}
	if !actor.IsAdmin() {
		return club.Coach{}, failure.Unauthorized("only admins may assign coaches")
	}
	if input.AccountID == "" {
		return club.Coach{}, failure.MissingField("account_id")
	}
	acct, err := deps.AccountStore.GetByID(ctx, input.AccountID)
	if err != nil {
		return club.Coach{}, err
	}
	if !acct.IsCoach() {
		return club.Coach{}, failure.Validation("account %s does not have the coach role", acct.ID)
	}

	coach := club.Coach{
		ID:        deps.GenerateID(),
		AccountID: acct.ID,
		ClubID:    input.ClubID,
		CreatedAt: deps.Now(),
	}
	err = deps.Tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := deps.ClubStore.GetByID(ctx, input.ClubID); err != nil {
			return err
		}
		if err := deps.ClubStore.AddCoach(ctx, coach); err != nil {
			if storage.IsUniqueViolation(err) {
				return failure.Conflict("account already coaches a club")
			}
			return fmt.Errorf("add coach: %w", err)
		}
		event := audit.NewEvent(deps.GenerateID(), coach.CreatedAt, actor.ActorID, audit.CategoryClub, audit.ActionCoachAssigned).
			WithResource("club", coach.ClubID).
			WithMetadata(map[string]string{"account_id": coach.AccountID})
		return deps.AuditStore.Save(ctx, event)
	})
	if err != nil {
		return club.Coach{}, err
	}
	slog.Info("club_event", "event", "coach_assigned", "club_id", coach.ClubID, "account_id", coach.AccountID)
	return coach, nil
}
