package checkin

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"clubhouse/internal/adapters/storage"
	domain "clubhouse/internal/domain/checkin"
	"clubhouse/internal/domain/failure"
)

const selectColumns = "SELECT id, activity_id, athlete_id, status, method, checked_in_at FROM check_in"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.DB
}

// NewSQLiteStore creates a new check-in store.
func NewSQLiteStore(db storage.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type checkInRow struct {
	ID          string `db:"id"`
	ActivityID  string `db:"activity_id"`
	AthleteID   string `db:"athlete_id"`
	Status      string `db:"status"`
	Method      string `db:"method"`
	CheckedInAt string `db:"checked_in_at"`
}

func (r checkInRow) toDomain() domain.CheckIn {
	return domain.CheckIn{
		ID:          r.ID,
		ActivityID:  r.ActivityID,
		AthleteID:   r.AthleteID,
		Status:      r.Status,
		Method:      r.Method,
		CheckedInAt: storage.ParseTime(r.CheckedInAt),
	}
}

// Create inserts a check-in.
// POST: a second check-in for the pair fails with storage.ErrUniqueViolation
func (s *SQLiteStore) Create(ctx context.Context, c domain.CheckIn) error {
	_, err := storage.Conn(ctx, s.db).ExecContext(ctx,
		"INSERT INTO check_in (id, activity_id, athlete_id, status, method, checked_in_at) VALUES (?, ?, ?, ?, ?, ?)",
		c.ID, c.ActivityID, c.AthleteID, c.Status, c.Method, storage.FormatTime(c.CheckedInAt))
	return storage.MapUnique(err)
}

// Get returns the check-in for the pair.
// POST: not-found error when the athlete has not checked in
func (s *SQLiteStore) Get(ctx context.Context, activityID, athleteID string) (domain.CheckIn, error) {
	var row checkInRow
	err := sqlx.GetContext(ctx, storage.Conn(ctx, s.db), &row,
		selectColumns+" WHERE activity_id = ? AND athlete_id = ?", activityID, athleteID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CheckIn{}, failure.NotFound("check-in")
	}
	if err != nil {
		return domain.CheckIn{}, err
	}
	return row.toDomain(), nil
}

// ListByActivity returns an activity's check-ins in arrival order.
func (s *SQLiteStore) ListByActivity(ctx context.Context, activityID string) ([]domain.CheckIn, error) {
	var rows []checkInRow
	if err := sqlx.SelectContext(ctx, storage.Conn(ctx, s.db), &rows,
		selectColumns+" WHERE activity_id = ? ORDER BY checked_in_at", activityID); err != nil {
		return nil, err
	}
	out := make([]domain.CheckIn, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}
