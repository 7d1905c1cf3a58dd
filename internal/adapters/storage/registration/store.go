package registration

import (
	"context"
	"time"

	domain "clubhouse/internal/domain/registration"
)

// Store persists activity registrations.
type Store interface {
	Create(ctx context.Context, r domain.Registration) error
	GetByID(ctx context.Context, id string) (domain.Registration, error)
	GetActive(ctx context.Context, activityID, athleteID string) (domain.Registration, error)
	CountApproved(ctx context.Context, activityID string) (int, error)
	ListByActivity(ctx context.Context, activityID string) ([]domain.Registration, error)
	Transition(ctx context.Context, id, from, to, reviewerID, reason string, at time.Time) (bool, error)
	Delete(ctx context.Context, id string) error
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
