package checkin

import (
	"context"

	domain "clubhouse/internal/domain/checkin"
)

// Store persists check-ins. Check-ins are never updated or deleted.
type Store interface {
	Create(ctx context.Context, c domain.CheckIn) error
	Get(ctx context.Context, activityID, athleteID string) (domain.CheckIn, error)
	ListByActivity(ctx context.Context, activityID string) ([]domain.CheckIn, error)
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
