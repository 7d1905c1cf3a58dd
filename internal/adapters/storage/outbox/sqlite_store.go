package outbox

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"clubhouse/internal/adapters/storage"
	"clubhouse/internal/domain/failure"
	domain "clubhouse/internal/domain/outbox"
)

const selectColumns = `SELECT id, action_type, payload, status, attempts, max_attempts, last_attempted_at, created_at,
	external_id, error_message FROM outbox`

// SQLiteStore implements the outbox Store interface using SQLite.
type SQLiteStore struct {
	db storage.DB
}

// NewSQLiteStore creates a new outbox store.
func NewSQLiteStore(db storage.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type entryRow struct {
	ID              string `db:"id"`
	ActionType      string `db:"action_type"`
	Payload         string `db:"payload"`
	Status          string `db:"status"`
	Attempts        int    `db:"attempts"`
	MaxAttempts     int    `db:"max_attempts"`
	LastAttemptedAt string `db:"last_attempted_at"`
	CreatedAt       string `db:"created_at"`
	ExternalID      string `db:"external_id"`
	ErrorMessage    string `db:"error_message"`
}

func (r entryRow) toDomain() domain.Entry {
	return domain.Entry{
		ID:              r.ID,
		ActionType:      r.ActionType,
		Payload:         r.Payload,
		Status:          r.Status,
		Attempts:        r.Attempts,
		MaxAttempts:     r.MaxAttempts,
		LastAttemptedAt: storage.ParseTime(r.LastAttemptedAt),
		CreatedAt:       storage.ParseTime(r.CreatedAt),
		ExternalID:      r.ExternalID,
		ErrorMessage:    r.ErrorMessage,
	}
}

// GetByID loads one entry.
// POST: failure.ErrNotFound when no entry has id
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Entry, error) {
	var row entryRow
	err := sqlx.GetContext(ctx, storage.Conn(ctx, s.db), &row, selectColumns+" WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Entry{}, failure.NotFound("outbox entry")
	}
	if err != nil {
		return domain.Entry{}, err
	}
	return row.toDomain(), nil
}

// Save upserts e; an existing row keeps its payload and created_at.
func (s *SQLiteStore) Save(ctx context.Context, e domain.Entry) error {
	_, err := storage.Conn(ctx, s.db).ExecContext(ctx,
		`INSERT INTO outbox (id, action_type, payload, status, attempts, max_attempts, last_attempted_at, created_at, external_id, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   status=excluded.status, attempts=excluded.attempts, max_attempts=excluded.max_attempts,
		   last_attempted_at=excluded.last_attempted_at, external_id=excluded.external_id,
		   error_message=excluded.error_message`,
		e.ID, e.ActionType, e.Payload, e.Status, e.Attempts, e.MaxAttempts,
		storage.FormatTime(e.LastAttemptedAt), storage.FormatTime(e.CreatedAt), e.ExternalID, e.ErrorMessage)
	return err
}

// ListPending returns up to limit pending or retrying entries, oldest first.
func (s *SQLiteStore) ListPending(ctx context.Context, limit int) ([]domain.Entry, error) {
	return s.list(ctx, selectColumns+" WHERE status IN (?, ?) ORDER BY created_at ASC LIMIT ?",
		domain.StatusPending, domain.StatusRetrying, limit)
}

// ListFailed returns up to limit exhausted entries, most recently tried first.
func (s *SQLiteStore) ListFailed(ctx context.Context, limit int) ([]domain.Entry, error) {
	return s.list(ctx, selectColumns+" WHERE status = ? AND attempts >= max_attempts ORDER BY last_attempted_at DESC LIMIT ?",
		domain.StatusFailed, limit)
}

// CountByStatus groups entries by status.
func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Status string `db:"status"`
		N      int    `db:"n"`
	}
	if err := sqlx.SelectContext(ctx, storage.Conn(ctx, s.db), &rows,
		"SELECT status, COUNT(*) AS n FROM outbox GROUP BY status"); err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.N
	}
	return counts, nil
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]domain.Entry, error) {
	var rows []entryRow
	if err := sqlx.SelectContext(ctx, storage.Conn(ctx, s.db), &rows, query, args...); err != nil {
		return nil, err
	}
	entries := make([]domain.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.toDomain())
	}
	return entries, nil
}
