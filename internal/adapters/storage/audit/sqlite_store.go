package audit

import (
	"context"

	"github.com/jmoiron/sqlx"

	"clubhouse/internal/adapters/storage"
	domain "clubhouse/internal/domain/audit"
)

// SQLiteStore implements the audit Store interface using SQLite.
type SQLiteStore struct {
	db storage.DB
}

// NewSQLiteStore creates a new audit event store.
func NewSQLiteStore(db storage.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type eventRow struct {
	ID           string `db:"id"`
	Timestamp    string `db:"timestamp"`
	Category     string `db:"category"`
	Action       string `db:"action"`
	Severity     string `db:"severity"`
	ActorID      string `db:"actor_id"`
	ResourceType string `db:"resource_type"`
	ResourceID   string `db:"resource_id"`
	Description  string `db:"description"`
	Metadata     string `db:"metadata"`
}

// Save appends e on the caller's transaction when there is one.
func (s *SQLiteStore) Save(ctx context.Context, e domain.Event) error {
	_, err := storage.Conn(ctx, s.db).ExecContext(ctx,
		`INSERT INTO audit_event (id, timestamp, category, action, severity, actor_id, resource_type, resource_id, description, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, storage.FormatTime(e.Timestamp), string(e.Category), string(e.Action), string(e.Severity),
		e.ActorID, e.ResourceType, e.ResourceID, e.Description, e.Metadata)
	return err
}

// List returns the newest events matching filter.
func (s *SQLiteStore) List(ctx context.Context, filter Filter, limit int) ([]domain.Event, error) {
	where, args := filter.where()
	query := `SELECT id, timestamp, category, action, severity, actor_id, resource_type, resource_id, description, metadata
		FROM audit_event` + where + ` ORDER BY timestamp DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	var rows []eventRow
	if err := sqlx.SelectContext(ctx, storage.Conn(ctx, s.db), &rows, query, args...); err != nil {
		return nil, err
	}
	events := make([]domain.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, domain.Event{
			ID:           r.ID,
			Timestamp:    storage.ParseTime(r.Timestamp),
			Category:     domain.Category(r.Category),
			Action:       domain.Action(r.Action),
			Severity:     domain.Severity(r.Severity),
			ActorID:      r.ActorID,
			ResourceType: r.ResourceType,
			ResourceID:   r.ResourceID,
			Description:  r.Description,
			Metadata:     r.Metadata,
		})
	}
	return events, nil
}
