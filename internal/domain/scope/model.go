package scope

import (
	"clubhouse/internal/domain/account"
	"clubhouse/internal/domain/failure"
)

// Scope is the resolved authorization reach of an actor.
// Admins reach every club, coaches reach exactly their own club, and
// athletes reach no club at all, only records they own.
type Scope struct {
	ActorID  string
	Role     string
	ClubIDs  []string
	AllClubs bool
}

// ForAdmin returns the wildcard scope.
func ForAdmin(actorID string) Scope {
	return Scope{ActorID: actorID, Role: account.RoleAdmin, AllClubs: true}
}

// ForCoach returns a scope limited to the coach's club.
func ForCoach(actorID, clubID string) Scope {
	return Scope{ActorID: actorID, Role: account.RoleCoach, ClubIDs: []string{clubID}}
}

// ForAthlete returns an ownership-only scope.
func ForAthlete(actorID string) Scope {
	return Scope{ActorID: actorID, Role: account.RoleAthlete}
}

// IsAdmin reports whether the scope is the admin wildcard.
func (s Scope) IsAdmin() bool {
	return s.AllClubs && s.Role == account.RoleAdmin
}

// IncludesClub reports whether the actor may act club-wide on clubID.
// INVARIANT: always false for athletes
func (s Scope) IncludesClub(clubID string) bool {
	if s.Role == account.RoleAthlete {
		return false
	}
	if s.AllClubs {
		return true
	}
	for _, id := range s.ClubIDs {
		if id == clubID {
			return true
		}
	}
	return false
}

// RequireClub fails with an authorization error unless clubID is in scope.
// PRE: clubID is the owning club of the target record
// POST: nil iff IncludesClub(clubID)
func (s Scope) RequireClub(clubID string) error {
	if !s.IncludesClub(clubID) {
		return failure.Unauthorized("actor is not authorized for club %s", clubID)
	}
	return nil
}

// RequireOwner fails unless the actor owns the record. Admins always pass.
func (s Scope) RequireOwner(ownerID string) error {
	if s.IsAdmin() || (ownerID != "" && s.ActorID == ownerID) {
		return nil
	}
	return failure.Unauthorized("actor does not own this record")
}

// RequireStaff fails unless the actor is a coach or admin of clubID.
func (s Scope) RequireStaff(clubID string) error {
	if s.Role != account.RoleCoach && s.Role != account.RoleAdmin {
		return failure.Unauthorized("only coaches or admins may do this")
	}
	return s.RequireClub(clubID)
}
