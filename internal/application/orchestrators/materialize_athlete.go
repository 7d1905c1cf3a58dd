package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clubhouse/internal/adapters/storage"
	"clubhouse/internal/domain/application"
	"clubhouse/internal/domain/athlete"
	"clubhouse/internal/domain/failure"
)

// AthleteStoreForMaterialize creates and finds athlete profiles.
type AthleteStoreForMaterialize interface {
	Create(ctx context.Context, a athlete.Athlete) error
	GetByUserAndClub(ctx context.Context, userID, clubID string) (athlete.Athlete, error)
}

// ProfileLinker records the athlete on its application.
type ProfileLinker interface {
	LinkProfile(ctx context.Context, id, profileID string, now time.Time) error
}

// MaterializeAthleteDeps holds dependencies for MaterializeAthlete.
type MaterializeAthleteDeps struct {
	AthleteStore     AthleteStoreForMaterialize
	ApplicationStore ProfileLinker
	Now              func() time.Time
	GenerateID       func() string
}

// MaterializeAthleteResult reports the profile an approval produced.
type MaterializeAthleteResult struct {
	Athlete athlete.Athlete
	Created bool
}

// ExecuteMaterializeAthlete creates the athlete profile for an approved application.
// PRE: app is approved; ctx carries the approving transaction
// POST: exactly one athlete exists for (app.UserID, app.ClubID) and app.ProfileID points to it
// INVARIANT: idempotent; a second call links the existing athlete and creates nothing
func ExecuteMaterializeAthlete(ctx context.Context, app application.Application, deps MaterializeAthleteDeps) (MaterializeAthleteResult, error) {
	existing, err := deps.AthleteStore.GetByUserAndClub(ctx, app.UserID, app.ClubID)
	if err == nil {
		return MaterializeAthleteResult{Athlete: existing}, link(ctx, app, existing, deps)
	}
	if !isNotFound(err) {
		return MaterializeAthleteResult{}, fmt.Errorf("lookup athlete: %w", err)
	}

	for _, field := range athlete.RequiredFields {
		if app.PersonalInfo.Get(field) == "" {
			return MaterializeAthleteResult{}, failure.MissingField(field)
		}
	}

	first, last := athlete.SplitFullName(app.PersonalInfo.Get(athlete.FieldFullName))
	ath := athlete.Athlete{
		ID:          deps.GenerateID(),
		UserID:      app.UserID,
		ClubID:      app.ClubID,
		FirstName:   first,
		LastName:    last,
		Gender:      app.PersonalInfo.Get(athlete.FieldGender),
		DateOfBirth: app.PersonalInfo.Get(athlete.FieldDateOfBirth),
		PhoneNumber: app.PersonalInfo.Get(athlete.FieldPhoneNumber),
		CreatedAt:   deps.Now(),
	}
	if err := ath.Validate(); err != nil {
		return MaterializeAthleteResult{}, err
	}

	if err := deps.AthleteStore.Create(ctx, ath); err != nil {
		if !storage.IsUniqueViolation(err) {
			return MaterializeAthleteResult{}, fmt.Errorf("create athlete: %w", err)
		}
		winner, getErr := deps.AthleteStore.GetByUserAndClub(ctx, app.UserID, app.ClubID)
		if getErr != nil {
			return MaterializeAthleteResult{}, fmt.Errorf("reload athlete: %w", getErr)
		}
		return MaterializeAthleteResult{Athlete: winner}, link(ctx, app, winner, deps)
	}

	slog.Info("application_event", "event", "athlete_materialized", "application_id", app.ID, "athlete_id", ath.ID)
	return MaterializeAthleteResult{Athlete: ath, Created: true}, link(ctx, app, ath, deps)
}

func link(ctx context.Context, app application.Application, ath athlete.Athlete, deps MaterializeAthleteDeps) error {
	if app.ProfileID == ath.ID {
		return nil
	}
	if err := deps.ApplicationStore.LinkProfile(ctx, app.ID, ath.ID, deps.Now()); err != nil {
		return fmt.Errorf("link profile: %w", err)
	}
	return nil
}
