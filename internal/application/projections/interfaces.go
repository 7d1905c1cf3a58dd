package projections

import (
	"context"

	appstore "clubhouse/internal/adapters/storage/application"
	domainActivity "clubhouse/internal/domain/activity"
	domainApplication "clubhouse/internal/domain/application"
	domainAthlete "clubhouse/internal/domain/athlete"
	domainCheckIn "clubhouse/internal/domain/checkin"
	domainRegistration "clubhouse/internal/domain/registration"
	"clubhouse/internal/domain/scope"
)

// ScopeResolver turns an actor id into its authorization scope.
type ScopeResolver interface {
	Resolve(ctx context.Context, actorID string) (scope.Scope, error)
}

// ApplicationStore interface for application queries.
type ApplicationStore interface {
	GetByID(ctx context.Context, id string) (domainApplication.Application, error)
	List(ctx context.Context, filter appstore.ListFilter) ([]domainApplication.Application, error)
}

// ActivityStore interface for activity queries.
type ActivityStore interface {
	GetByID(ctx context.Context, id string) (domainActivity.Activity, error)
	ListByClub(ctx context.Context, clubID, fromDate string) ([]domainActivity.Activity, error)
}

// AthleteStore interface for athlete queries.
type AthleteStore interface {
	GetByID(ctx context.Context, id string) (domainAthlete.Athlete, error)
	GetByUserAndClub(ctx context.Context, userID, clubID string) (domainAthlete.Athlete, error)
}

// CheckInStore interface for check-in queries.
type CheckInStore interface {
	ListByActivity(ctx context.Context, activityID string) ([]domainCheckIn.CheckIn, error)
}

// RegistrationStore interface for registration queries.
type RegistrationStore interface {
	ListByActivity(ctx context.Context, activityID string) ([]domainRegistration.Registration, error)
}
