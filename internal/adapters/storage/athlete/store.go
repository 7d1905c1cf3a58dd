package athlete

import (
	"context"

	domain "clubhouse/internal/domain/athlete"
)

// Store persists athlete profiles.
type Store interface {
	Create(ctx context.Context, a domain.Athlete) error
	GetByID(ctx context.Context, id string) (domain.Athlete, error)
	GetByUserAndClub(ctx context.Context, userID, clubID string) (domain.Athlete, error)
	ListByClub(ctx context.Context, clubID string) ([]domain.Athlete, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Athlete, error)
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
