package activity

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"clubhouse/internal/adapters/storage"
	domain "clubhouse/internal/domain/activity"
	"clubhouse/internal/domain/failure"
)

const selectColumns = `SELECT id, club_id, kind, title, date, start_time, end_time, token, capacity,
	requires_approval, created_by, created_at FROM activity`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.DB
}

// NewSQLiteStore creates a new activity store.
func NewSQLiteStore(db storage.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type activityRow struct {
	ID               string `db:"id"`
	ClubID           string `db:"club_id"`
	Kind             string `db:"kind"`
	Title            string `db:"title"`
	Date             string `db:"date"`
	StartTime        string `db:"start_time"`
	EndTime          string `db:"end_time"`
	Token            string `db:"token"`
	Capacity         int    `db:"capacity"`
	RequiresApproval bool   `db:"requires_approval"`
	CreatedBy        string `db:"created_by"`
	CreatedAt        string `db:"created_at"`
}

func (r activityRow) toDomain() domain.Activity {
	return domain.Activity{
		ID:               r.ID,
		ClubID:           r.ClubID,
		Kind:             r.Kind,
		Title:            r.Title,
		Date:             r.Date,
		StartTime:        r.StartTime,
		EndTime:          r.EndTime,
		Token:            r.Token,
		Capacity:         r.Capacity,
		RequiresApproval: r.RequiresApproval,
		CreatedBy:        r.CreatedBy,
		CreatedAt:        storage.ParseTime(r.CreatedAt),
	}
}

// Create inserts an activity.
// PRE: activity has been validated
func (s *SQLiteStore) Create(ctx context.Context, a domain.Activity) error {
	_, err := storage.Conn(ctx, s.db).ExecContext(ctx,
		`INSERT INTO activity (id, club_id, kind, title, date, start_time, end_time, token, capacity,
		 requires_approval, created_by, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ClubID, a.Kind, a.Title, a.Date, a.StartTime, a.EndTime, a.Token, a.Capacity,
		a.RequiresApproval, a.CreatedBy, storage.FormatTime(a.CreatedAt))
	return storage.MapUnique(err)
}

// GetByID retrieves an activity.
// POST: Returns the activity or a not-found error
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Activity, error) {
	var row activityRow
	err := sqlx.GetContext(ctx, storage.Conn(ctx, s.db), &row, selectColumns+" WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Activity{}, failure.NotFound("activity")
	}
	if err != nil {
		return domain.Activity{}, err
	}
	return row.toDomain(), nil
}

// ListByClub returns a club's activities on or after fromDate, in schedule order.
// An empty fromDate lists everything.
func (s *SQLiteStore) ListByClub(ctx context.Context, clubID, fromDate string) ([]domain.Activity, error) {
	var rows []activityRow
	if err := sqlx.SelectContext(ctx, storage.Conn(ctx, s.db), &rows,
		selectColumns+" WHERE club_id = ? AND date >= ? ORDER BY date, start_time", clubID, fromDate); err != nil {
		return nil, err
	}
	out := make([]domain.Activity, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// SetToken replaces the activity's verification token.
// POST: not-found error when the activity does not exist
func (s *SQLiteStore) SetToken(ctx context.Context, id, token string) error {
	res, err := storage.Conn(ctx, s.db).ExecContext(ctx, "UPDATE activity SET token = ? WHERE id = ?", token, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return failure.NotFound("activity")
	}
	return nil
}
