package projections

import (
	"context"

	appstore "clubhouse/internal/adapters/storage/application"
	"clubhouse/internal/application/dispatch"
	domainApplication "clubhouse/internal/domain/application"
	"clubhouse/internal/domain/failure"
)

// GetApplicationsQuery carries query parameters.
type GetApplicationsQuery struct {
	ActorID string
	ClubID  string // optional for admins and athletes; coaches default to their club
	Status  string
}

// GetApplicationsResult carries the query result and the cache tags it depends on.
type GetApplicationsResult struct {
	Applications []domainApplication.Application
	Tags         []string
}

// GetApplicationsDeps holds dependencies for GetApplications.
type GetApplicationsDeps struct {
	Scopes           ScopeResolver
	ApplicationStore ApplicationStore
}

// QueryGetApplications lists the applications visible to the actor.
// PRE: actor resolves to a scope
// POST: admins see every club, coaches their own club, athletes only their own applications
func QueryGetApplications(ctx context.Context, query GetApplicationsQuery, deps GetApplicationsDeps) (GetApplicationsResult, error) {
	actor, err := deps.Scopes.Resolve(ctx, query.ActorID)
	if err != nil {
		return GetApplicationsResult{}, err
	}
	if query.Status != "" && !domainApplication.IsValidStatus(query.Status) {
		return GetApplicationsResult{}, failure.Validation("unknown application status %q", query.Status)
	}

	filter := appstore.ListFilter{ClubID: query.ClubID, Status: query.Status}
	var tags []string
	switch {
	case actor.IsAdmin():
		// the unfiltered admin view has no single tag and is never cached
		if filter.ClubID != "" {
			tags = append(tags, dispatch.ClubApplicationsTag(filter.ClubID))
		}
	case actor.IncludesClub(query.ClubID) || (query.ClubID == "" && len(actor.ClubIDs) == 1):
		if filter.ClubID == "" {
			filter.ClubID = actor.ClubIDs[0]
		}
		tags = append(tags, dispatch.ClubApplicationsTag(filter.ClubID))
	case len(actor.ClubIDs) > 0:
		return GetApplicationsResult{}, failure.Unauthorized("actor is not authorized for club %s", query.ClubID)
	default:
		filter.UserID = actor.ActorID
		tags = append(tags, dispatch.UserApplicationsTag(actor.ActorID))
	}

	apps, err := deps.ApplicationStore.List(ctx, filter)
	if err != nil {
		return GetApplicationsResult{}, err
	}
	if apps == nil {
		apps = []domainApplication.Application{}
	}
	return GetApplicationsResult{Applications: apps, Tags: tags}, nil
}

// GetApplicationQuery carries query parameters.
type GetApplicationQuery struct {
	ActorID       string
	ApplicationID string
}

// QueryGetApplication returns one application to its owner or to staff of its club.
// POST: authorization error for anyone else
func QueryGetApplication(ctx context.Context, query GetApplicationQuery, deps GetApplicationsDeps) (domainApplication.Application, error) {
	actor, err := deps.Scopes.Resolve(ctx, query.ActorID)
	if err != nil {
		return domainApplication.Application{}, err
	}
	app, err := deps.ApplicationStore.GetByID(ctx, query.ApplicationID)
	if err != nil {
		return domainApplication.Application{}, err
	}
	if app.UserID == actor.ActorID || actor.IncludesClub(app.ClubID) {
		return app, nil
	}
	return domainApplication.Application{}, failure.Unauthorized("actor may not view this application")
}
