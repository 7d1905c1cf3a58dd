package athlete

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"clubhouse/internal/adapters/storage"
	domain "clubhouse/internal/domain/athlete"
	"clubhouse/internal/domain/failure"
)

const selectColumns = "SELECT id, user_id, club_id, first_name, last_name, gender, date_of_birth, phone_number, created_at FROM athlete"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.DB
}

// NewSQLiteStore creates a new athlete store.
func NewSQLiteStore(db storage.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type athleteRow struct {
	ID          string `db:"id"`
	UserID      string `db:"user_id"`
	ClubID      string `db:"club_id"`
	FirstName   string `db:"first_name"`
	LastName    string `db:"last_name"`
	Gender      string `db:"gender"`
	DateOfBirth string `db:"date_of_birth"`
	PhoneNumber string `db:"phone_number"`
	CreatedAt   string `db:"created_at"`
}

func (r athleteRow) toDomain() domain.Athlete {
	return domain.Athlete{
		ID:          r.ID,
		UserID:      r.UserID,
		ClubID:      r.ClubID,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Gender:      r.Gender,
		DateOfBirth: r.DateOfBirth,
		PhoneNumber: r.PhoneNumber,
		CreatedAt:   storage.ParseTime(r.CreatedAt),
	}
}

// Create inserts an athlete.
// PRE: athlete has been validated
// POST: a second athlete for the same (user, club) fails with storage.ErrUniqueViolation
func (s *SQLiteStore) Create(ctx context.Context, a domain.Athlete) error {
	_, err := storage.Conn(ctx, s.db).ExecContext(ctx,
		`INSERT INTO athlete (id, user_id, club_id, first_name, last_name, gender, date_of_birth, phone_number, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.ClubID, a.FirstName, a.LastName, a.Gender, a.DateOfBirth, a.PhoneNumber,
		storage.FormatTime(a.CreatedAt))
	return storage.MapUnique(err)
}

// GetByID retrieves an athlete.
// POST: Returns the athlete or a not-found error
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Athlete, error) {
	return s.get(ctx, selectColumns+" WHERE id = ?", id)
}

// GetByUserAndClub retrieves the athlete a user holds in a club.
// POST: Returns the athlete or a not-found error
func (s *SQLiteStore) GetByUserAndClub(ctx context.Context, userID, clubID string) (domain.Athlete, error) {
	return s.get(ctx, selectColumns+" WHERE user_id = ? AND club_id = ?", userID, clubID)
}

func (s *SQLiteStore) get(ctx context.Context, query string, args ...any) (domain.Athlete, error) {
	var row athleteRow
	err := sqlx.GetContext(ctx, storage.Conn(ctx, s.db), &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Athlete{}, failure.NotFound("athlete")
	}
	if err != nil {
		return domain.Athlete{}, err
	}
	return row.toDomain(), nil
}

// ListByClub returns a club's athletes by last name.
func (s *SQLiteStore) ListByClub(ctx context.Context, clubID string) ([]domain.Athlete, error) {
	return s.list(ctx, selectColumns+" WHERE club_id = ? ORDER BY last_name, first_name", clubID)
}

// ListByUser returns every athlete profile a user holds.
func (s *SQLiteStore) ListByUser(ctx context.Context, userID string) ([]domain.Athlete, error) {
	return s.list(ctx, selectColumns+" WHERE user_id = ? ORDER BY created_at", userID)
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]domain.Athlete, error) {
	var rows []athleteRow
	if err := sqlx.SelectContext(ctx, storage.Conn(ctx, s.db), &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]domain.Athlete, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}
