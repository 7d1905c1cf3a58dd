package activity

import (
	"context"

	domain "clubhouse/internal/domain/activity"
)

// Store persists activities and training sessions.
type Store interface {
	Create(ctx context.Context, a domain.Activity) error
	GetByID(ctx context.Context, id string) (domain.Activity, error)
	ListByClub(ctx context.Context, clubID, fromDate string) ([]domain.Activity, error)
	SetToken(ctx context.Context, id, token string) error
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
