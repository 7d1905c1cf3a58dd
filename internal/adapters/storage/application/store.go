package application

import (
	"context"
	"time"

	domain "clubhouse/internal/domain/application"
)

// Store persists membership applications.
type Store interface {
	Create(ctx context.Context, a domain.Application) error
	GetByID(ctx context.Context, id string) (domain.Application, error)
	GetActiveByUser(ctx context.Context, userID string) (domain.Application, error)
	LatestByUser(ctx context.Context, userID string) (domain.Application, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Application, error)
	Transition(ctx context.Context, change StatusChange) (bool, error)
	Resubmit(ctx context.Context, id string, info domain.PersonalInfo, docs []domain.Document, now time.Time) (bool, error)
	LinkProfile(ctx context.Context, id, profileID string, now time.Time) error
	Delete(ctx context.Context, id string) error
}

// ListFilter narrows List. Empty fields do not filter.
type ListFilter struct {
	ClubID string
	UserID string
	Status string
	Limit  int
}

// StatusChange is a conditional status update.
// It applies only while the row's status is one of From.
type StatusChange struct {
	ID              string
	From            []string
	To              string
	ReviewerID      string
	RejectionReason string
	InfoRequestNote string
	At              time.Time
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
