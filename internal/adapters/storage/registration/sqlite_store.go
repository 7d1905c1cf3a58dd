package registration

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"clubhouse/internal/adapters/storage"
	"clubhouse/internal/domain/failure"
	domain "clubhouse/internal/domain/registration"
)

const selectColumns = "SELECT id, activity_id, athlete_id, status, reviewer_id, rejection_reason, created_at, updated_at FROM activity_registration"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.DB
}

// NewSQLiteStore creates a new registration store.
func NewSQLiteStore(db storage.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type registrationRow struct {
	ID              string `db:"id"`
	ActivityID      string `db:"activity_id"`
	AthleteID       string `db:"athlete_id"`
	Status          string `db:"status"`
	ReviewerID      string `db:"reviewer_id"`
	RejectionReason string `db:"rejection_reason"`
	CreatedAt       string `db:"created_at"`
	UpdatedAt       string `db:"updated_at"`
}

func (r registrationRow) toDomain() domain.Registration {
	return domain.Registration{
		ID:              r.ID,
		ActivityID:      r.ActivityID,
		AthleteID:       r.AthleteID,
		Status:          r.Status,
		ReviewerID:      r.ReviewerID,
		RejectionReason: r.RejectionReason,
		CreatedAt:       storage.ParseTime(r.CreatedAt),
		UpdatedAt:       storage.ParseTime(r.UpdatedAt),
	}
}

// Create inserts a registration.
// POST: a second non-cancelled registration for the pair fails with storage.ErrUniqueViolation
func (s *SQLiteStore) Create(ctx context.Context, r domain.Registration) error {
	_, err := storage.Conn(ctx, s.db).ExecContext(ctx,
		`INSERT INTO activity_registration (id, activity_id, athlete_id, status, reviewer_id, rejection_reason, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ActivityID, r.AthleteID, r.Status, r.ReviewerID, r.RejectionReason,
		storage.FormatTime(r.CreatedAt), storage.FormatTime(r.UpdatedAt))
	return storage.MapUnique(err)
}

// GetByID retrieves a registration.
// POST: Returns the registration or a not-found error
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Registration, error) {
	return s.get(ctx, selectColumns+" WHERE id = ?", id)
}

// GetActive returns the non-cancelled registration for the pair.
func (s *SQLiteStore) GetActive(ctx context.Context, activityID, athleteID string) (domain.Registration, error) {
	return s.get(ctx, selectColumns+" WHERE activity_id = ? AND athlete_id = ? AND status <> 'cancelled'", activityID, athleteID)
}

func (s *SQLiteStore) get(ctx context.Context, query string, args ...any) (domain.Registration, error) {
	var row registrationRow
	err := sqlx.GetContext(ctx, storage.Conn(ctx, s.db), &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Registration{}, failure.NotFound("registration")
	}
	if err != nil {
		return domain.Registration{}, err
	}
	return row.toDomain(), nil
}

// CountApproved returns the number of approved registrations of an activity.
func (s *SQLiteStore) CountApproved(ctx context.Context, activityID string) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, storage.Conn(ctx, s.db), &n,
		"SELECT COUNT(*) FROM activity_registration WHERE activity_id = ? AND status = 'approved'", activityID)
	return n, err
}

// ListByActivity returns an activity's registrations in request order.
func (s *SQLiteStore) ListByActivity(ctx context.Context, activityID string) ([]domain.Registration, error) {
	var rows []registrationRow
	if err := sqlx.SelectContext(ctx, storage.Conn(ctx, s.db), &rows,
		selectColumns+" WHERE activity_id = ? ORDER BY created_at", activityID); err != nil {
		return nil, err
	}
	out := make([]domain.Registration, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// Transition moves a registration from one status to another.
// POST: true iff the row was in from and is now in to
func (s *SQLiteStore) Transition(ctx context.Context, id, from, to, reviewerID, reason string, at time.Time) (bool, error) {
	res, err := storage.Conn(ctx, s.db).ExecContext(ctx,
		`UPDATE activity_registration SET status = ?, reviewer_id = ?, rejection_reason = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		to, reviewerID, reason, storage.FormatTime(at), id, from)
	if err != nil {
		return false, storage.MapUnique(err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// Delete hard-deletes a registration regardless of status.
// POST: not-found error when nothing was deleted
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := storage.Conn(ctx, s.db).ExecContext(ctx, "DELETE FROM activity_registration WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return failure.NotFound("registration")
	}
	return nil
}
