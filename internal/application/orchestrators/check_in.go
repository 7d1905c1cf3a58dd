package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"clubhouse/internal/adapters/storage"
	"clubhouse/internal/application/dispatch"
	"clubhouse/internal/application/guard"
	"clubhouse/internal/domain/audit"
	"clubhouse/internal/domain/checkin"
	"clubhouse/internal/domain/failure"
)

// CheckInStore records attendance.
type CheckInStore interface {
	Create(ctx context.Context, c checkin.CheckIn) error
	Get(ctx context.Context, activityID, athleteID string) (checkin.CheckIn, error)
}

// CheckInInput carries input for the check-in orchestrator.
type CheckInInput struct {
	ActorID    string
	ActivityID string
	AthleteID  string
	Token      string // as presented by the athlete
}

// CheckInResult carries the recorded check-in.
// AlreadyCheckedIn is set when CheckIn is the earlier record.
type CheckInResult struct {
	CheckIn          checkin.CheckIn
	AlreadyCheckedIn bool
}

// CheckInDeps holds dependencies for CheckIn.
type CheckInDeps struct {
	Scopes        ScopeResolver
	Tx            TxRunner
	ActivityStore ActivityReader
	AthleteStore  AthleteReader
	CheckInStore  CheckInStore
	Guard         guard.Checker
	AuditStore    AuditAppender
	Notifier      dispatch.Notifier
	Location      *time.Location // club clock used for on-time classification
	Now           func() time.Time
	GenerateID    func() string
}

// ExecuteCheckIn verifies and records an athlete's arrival at an activity.
// PRE: activity and athlete exist and belong to the same club
// POST: one check-in classified on_time or late; a repeat returns the original
// record together with an AlreadyCheckedIn error
// INVARIANT: the club scope is checked before the token, so a cross-club
// attempt never learns whether its token was right
func ExecuteCheckIn(ctx context.Context, input CheckInInput, deps CheckInDeps) (CheckInResult, error) {
	act, err := deps.ActivityStore.GetByID(ctx, input.ActivityID)
	if err != nil {
		return CheckInResult{}, err
	}
	ath, err := deps.AthleteStore.GetByID(ctx, input.AthleteID)
	if err != nil {
		return CheckInResult{}, err
	}
	if ath.ClubID != act.ClubID {
		slog.Warn("checkin_event", "event", "scope_mismatch", "activity_id", act.ID, "athlete_id", ath.ID)
		return CheckInResult{}, failure.New(failure.ErrScopeMismatch, "athlete does not belong to the activity's club")
	}

	actor, err := deps.Scopes.Resolve(ctx, input.ActorID)
	if err != nil {
		return CheckInResult{}, err
	}
	method := checkin.MethodToken
	if ath.UserID != actor.ActorID {
		if err := actor.RequireStaff(act.ClubID); err != nil {
			return CheckInResult{}, err
		}
		method = checkin.MethodCoach
	}

	if err := act.VerifyToken(input.Token); err != nil {
		slog.Info("checkin_event", "event", "invalid_token", "activity_id", act.ID, "athlete_id", ath.ID)
		return CheckInResult{}, err
	}

	start, err := act.EffectiveStart(deps.Location)
	if err != nil {
		return CheckInResult{}, err
	}
	now := deps.Now()
	record := checkin.CheckIn{
		ID:          deps.GenerateID(),
		ActivityID:  act.ID,
		AthleteID:   ath.ID,
		Status:      checkin.Classify(start, now),
		Method:      method,
		CheckedInAt: now,
	}

	var existing checkin.CheckIn
	// loadExisting returns conflict once the earlier record is read, or the read error.
	loadExisting := func(ctx context.Context, conflict error) error {
		prior, err := deps.CheckInStore.Get(ctx, act.ID, ath.ID)
		if err != nil {
			return fmt.Errorf("load existing check-in: %w", err)
		}
		existing = prior
		return conflict
	}
	err = deps.Tx.InTx(ctx, func(ctx context.Context) error {
		key := guard.Key{ActivityID: act.ID, AthleteID: ath.ID}
		if err := guard.AssertNoActiveConflict(ctx, deps.Guard, guard.KindCheckIn, key); err != nil {
			if errors.Is(err, failure.ErrAlreadyCheckedIn) {
				return loadExisting(ctx, err)
			}
			return err
		}
		if err := deps.CheckInStore.Create(ctx, record); err != nil {
			if storage.IsUniqueViolation(err) {
				return loadExisting(ctx, guard.MapConstraint(guard.KindCheckIn, err))
			}
			return err
		}
		event := audit.NewEvent(deps.GenerateID(), now, actor.ActorID, audit.CategoryCheckIn, audit.ActionCheckedIn).
			WithResource("check_in", record.ID).
			WithMetadata(map[string]string{"activity_id": act.ID, "athlete_id": ath.ID, "status": record.Status, "method": method})
		if err := deps.AuditStore.Save(ctx, event); err != nil {
			return fmt.Errorf("audit check-in: %w", err)
		}
		return nil
	})
	if errors.Is(err, failure.ErrAlreadyCheckedIn) {
		slog.Info("checkin_event", "event", "already_checked_in", "activity_id", act.ID, "athlete_id", ath.ID)
		return CheckInResult{CheckIn: existing, AlreadyCheckedIn: true}, err
	}
	if err != nil {
		return CheckInResult{}, err
	}

	slog.Info("checkin_event", "event", "athlete_checked_in", "activity_id", act.ID, "athlete_id", ath.ID, "status", record.Status, "method", method)
	notify(ctx, deps.Notifier, dispatch.CheckInRecorded, dispatch.Payload{
		dispatch.KeyActivityID: act.ID,
		dispatch.KeyAthleteID:  ath.ID,
		dispatch.KeyStatus:     record.Status,
		dispatch.KeyTimestamp:  now.UTC().Format(time.RFC3339),
	})
	return CheckInResult{CheckIn: record}, nil
}
