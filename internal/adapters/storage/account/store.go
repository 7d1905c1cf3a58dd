package account

import (
	"context"

	domain "clubhouse/internal/domain/account"
)

// Store persists Account state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	Create(ctx context.Context, value domain.Account) error
	Save(ctx context.Context, value domain.Account) error
	SetMembershipStatus(ctx context.Context, id, status string) error
	List(ctx context.Context, filter ListFilter) ([]domain.Account, error)
	CountMatching(ctx context.Context, filter ListFilter) (int, error)
	Count(ctx context.Context) (int, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Limit  int
	Offset int
	Role   string
	Search string // case-insensitive substring of email or display name
	Sort   string // email or created_at
	Desc   bool
}

// SortColumns are the columns List accepts in ListFilter.Sort.
var SortColumns = []string{"email", "created_at"}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
