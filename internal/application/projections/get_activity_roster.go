package projections

import (
	"context"

	"clubhouse/internal/application/dispatch"
	domainActivity "clubhouse/internal/domain/activity"
	domainCheckIn "clubhouse/internal/domain/checkin"
	"clubhouse/internal/domain/failure"
	domainRegistration "clubhouse/internal/domain/registration"
)

// GetCheckInsQuery carries query parameters.
type GetCheckInsQuery struct {
	ActorID    string
	ActivityID string
}

// GetCheckInsResult carries the check-ins of one activity.
type GetCheckInsResult struct {
	Activity domainActivity.Activity
	CheckIns []domainCheckIn.CheckIn
	OnTime   int
	Late     int
	Tags     []string
}

// GetCheckInsDeps holds dependencies for GetCheckIns.
type GetCheckInsDeps struct {
	Scopes        ScopeResolver
	ActivityStore ActivityStore
	CheckInStore  CheckInStore
}

// QueryGetCheckIns lists an activity's check-ins in arrival order.
// PRE: actor's scope includes the activity's club
// POST: OnTime + Late == len(CheckIns)
func QueryGetCheckIns(ctx context.Context, query GetCheckInsQuery, deps GetCheckInsDeps) (GetCheckInsResult, error) {
	actor, err := deps.Scopes.Resolve(ctx, query.ActorID)
	if err != nil {
		return GetCheckInsResult{}, err
	}
	act, err := deps.ActivityStore.GetByID(ctx, query.ActivityID)
	if err != nil {
		return GetCheckInsResult{}, err
	}
	if err := actor.RequireClub(act.ClubID); err != nil {
		return GetCheckInsResult{}, err
	}

	records, err := deps.CheckInStore.ListByActivity(ctx, act.ID)
	if err != nil {
		return GetCheckInsResult{}, err
	}
	result := GetCheckInsResult{
		Activity: act,
		CheckIns: make([]domainCheckIn.CheckIn, 0, len(records)),
		Tags:     []string{dispatch.ActivityCheckInsTag(act.ID)},
	}
	for _, c := range records {
		if c.IsLate() {
			result.Late++
		} else {
			result.OnTime++
		}
		result.CheckIns = append(result.CheckIns, c)
	}
	return result, nil
}

// GetRegistrationsQuery carries query parameters.
type GetRegistrationsQuery struct {
	ActorID    string
	ActivityID string
}

// GetRegistrationsResult carries the registrations of one activity.
type GetRegistrationsResult struct {
	Activity      domainActivity.Activity
	Registrations []domainRegistration.Registration
	Approved      int
	Tags          []string
}

// GetRegistrationsDeps holds dependencies for GetRegistrations.
type GetRegistrationsDeps struct {
	Scopes            ScopeResolver
	ActivityStore     ActivityStore
	RegistrationStore RegistrationStore
}

// QueryGetRegistrations lists an activity's registrations for staff.
// PRE: actor is a coach or admin of the activity's club
func QueryGetRegistrations(ctx context.Context, query GetRegistrationsQuery, deps GetRegistrationsDeps) (GetRegistrationsResult, error) {
	actor, err := deps.Scopes.Resolve(ctx, query.ActorID)
	if err != nil {
		return GetRegistrationsResult{}, err
	}
	act, err := deps.ActivityStore.GetByID(ctx, query.ActivityID)
	if err != nil {
		return GetRegistrationsResult{}, err
	}
	if err := actor.RequireStaff(act.ClubID); err != nil {
		return GetRegistrationsResult{}, err
	}
	regs, err := deps.RegistrationStore.ListByActivity(ctx, act.ID)
	if err != nil {
		return GetRegistrationsResult{}, err
	}
	result := GetRegistrationsResult{
		Activity:      act,
		Registrations: make([]domainRegistration.Registration, 0, len(regs)),
		Tags:          []string{dispatch.ActivityRegistrationsTag(act.ID)},
	}
	for _, r := range regs {
		if r.Status == domainRegistration.StatusApproved {
			result.Approved++
		}
		result.Registrations = append(result.Registrations, r)
	}
	return result, nil
}

// GetActivitiesQuery carries query parameters.
type GetActivitiesQuery struct {
	ActorID  string
	ClubID   string
	FromDate string // YYYY-MM-DD, optional
}

// GetActivitiesDeps holds dependencies for GetActivities.
type GetActivitiesDeps struct {
	Scopes        ScopeResolver
	ActivityStore ActivityStore
	AthleteStore  AthleteStore
}

// QueryGetActivities lists a club's activities for its staff and athletes.
// Tokens are blanked for athletes.
func QueryGetActivities(ctx context.Context, query GetActivitiesQuery, deps GetActivitiesDeps) ([]domainActivity.Activity, error) {
	actor, err := deps.Scopes.Resolve(ctx, query.ActorID)
	if err != nil {
		return nil, err
	}
	if query.ClubID == "" {
		return nil, failure.MissingField("club_id")
	}
	staff := actor.IncludesClub(query.ClubID)
	if !staff {
		if _, err := deps.AthleteStore.GetByUserAndClub(ctx, actor.ActorID, query.ClubID); err != nil {
			return nil, failure.Unauthorized("actor is not a member of club %s", query.ClubID)
		}
	}
	acts, err := deps.ActivityStore.ListByClub(ctx, query.ClubID, query.FromDate)
	if err != nil {
		return nil, err
	}
	out := make([]domainActivity.Activity, 0, len(acts))
	for _, a := range acts {
		if !staff {
			a.Token = ""
		}
		out = append(out, a)
	}
	return out, nil
}
