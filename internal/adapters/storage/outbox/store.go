package outbox

import (
	"context"

	domain "clubhouse/internal/domain/outbox"
)

// Store holds queued notification emails until the worker delivers them.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Entry, error)

	// Save inserts e or updates its delivery state. Payload and creation time are immutable.
	Save(ctx context.Context, e domain.Entry) error

	// ListPending returns the oldest entries still awaiting delivery.
	// PRE: limit > 0
	// POST: every entry is pending or retrying, oldest first
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)

	// ListFailed returns entries that exhausted their attempts, most recently tried first.
	// PRE: limit > 0
	ListFailed(ctx context.Context, limit int) ([]domain.Entry, error)

	// CountByStatus reports how many entries sit in each status. Absent statuses are omitted.
	CountByStatus(ctx context.Context) (map[string]int, error)
}

var _ Store = (*SQLiteStore)(nil)
