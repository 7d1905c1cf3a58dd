package club

import (
	"context"

	domain "clubhouse/internal/domain/club"
)

// Store persists clubs and their coach roster.
type Store interface {
	Create(ctx context.Context, c domain.Club) error
	GetByID(ctx context.Context, id string) (domain.Club, error)
	List(ctx context.Context) ([]domain.Club, error)
	AddCoach(ctx context.Context, c domain.Coach) error
	GetCoachByAccount(ctx context.Context, accountID string) (domain.Coach, error)
	ListCoaches(ctx context.Context, clubID string) ([]domain.Coach, error)
	CountCoaches(ctx context.Context, clubID string) (int, error)
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
