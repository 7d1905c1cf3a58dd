package audit

import (
	"context"
	"strings"
	"time"

	"clubhouse/internal/adapters/storage"
	domain "clubhouse/internal/domain/audit"
)

// Store appends and reads the club audit trail.
// INVARIANT: events are never updated or deleted once saved
type Store interface {
	// Save appends an event, joining the caller's transaction when ctx carries one.
	Save(ctx context.Context, event domain.Event) error

	// List returns the newest events matching filter.
	// PRE: limit > 0
	// POST: ordered by timestamp desc, then insertion order desc
	List(ctx context.Context, filter Filter, limit int) ([]domain.Event, error)
}

// Filter narrows List. Zero-valued fields match every event.
type Filter struct {
	Category     domain.Category
	Action       domain.Action
	ActorID      string
	ResourceType string
	ResourceID   string
	Since        time.Time // inclusive lower bound on timestamp
}

func (f Filter) where() (string, []any) {
	var clauses []string
	var args []any
	add := func(clause string, v any) {
		clauses = append(clauses, clause)
		args = append(args, v)
	}
	if f.Category != "" {
		add("category = ?", string(f.Category))
	}
	if f.Action != "" {
		add("action = ?", string(f.Action))
	}
	if f.ActorID != "" {
		add("actor_id = ?", f.ActorID)
	}
	if f.ResourceType != "" {
		add("resource_type = ?", f.ResourceType)
	}
	if f.ResourceID != "" {
		add("resource_id = ?", f.ResourceID)
	}
	if !f.Since.IsZero() {
		add("timestamp >= ?", storage.FormatTime(f.Since))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

var _ Store = (*SQLiteStore)(nil)
