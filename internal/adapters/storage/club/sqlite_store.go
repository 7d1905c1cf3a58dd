package club

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"clubhouse/internal/adapters/storage"
	domain "clubhouse/internal/domain/club"
	"clubhouse/internal/domain/failure"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.DB
}

// NewSQLiteStore creates a new club store.
func NewSQLiteStore(db storage.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type clubRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	SportType string `db:"sport_type"`
	CreatedAt string `db:"created_at"`
}

func (r clubRow) toDomain() domain.Club {
	return domain.Club{ID: r.ID, Name: r.Name, SportType: r.SportType, CreatedAt: storage.ParseTime(r.CreatedAt)}
}

type coachRow struct {
	ID        string `db:"id"`
	AccountID string `db:"account_id"`
	ClubID    string `db:"club_id"`
	CreatedAt string `db:"created_at"`
}

func (r coachRow) toDomain() domain.Coach {
	return domain.Coach{ID: r.ID, AccountID: r.AccountID, ClubID: r.ClubID, CreatedAt: storage.ParseTime(r.CreatedAt)}
}

// Create inserts a club.
// PRE: club has been validated
func (s *SQLiteStore) Create(ctx context.Context, c domain.Club) error {
	_, err := storage.Conn(ctx, s.db).ExecContext(ctx,
		"INSERT INTO club (id, name, sport_type, created_at) VALUES (?, ?, ?, ?)",
		c.ID, c.Name, c.SportType, storage.FormatTime(c.CreatedAt))
	return storage.MapUnique(err)
}

// GetByID retrieves a club.
// POST: Returns the club or a not-found error
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Club, error) {
	var row clubRow
	err := sqlx.GetContext(ctx, storage.Conn(ctx, s.db), &row,
		"SELECT id, name, sport_type, created_at FROM club WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Club{}, failure.NotFound("club")
	}
	if err != nil {
		return domain.Club{}, err
	}
	return row.toDomain(), nil
}

// List returns all clubs ordered by name.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Club, error) {
	var rows []clubRow
	if err := sqlx.SelectContext(ctx, storage.Conn(ctx, s.db), &rows,
		"SELECT id, name, sport_type, created_at FROM club ORDER BY name"); err != nil {
		return nil, err
	}
	out := make([]domain.Club, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// AddCoach assigns an account to a club.
// POST: an account already coaching any club fails with storage.ErrUniqueViolation
func (s *SQLiteStore) AddCoach(ctx context.Context, c domain.Coach) error {
	_, err := storage.Conn(ctx, s.db).ExecContext(ctx,
		"INSERT INTO coach (id, account_id, club_id, created_at) VALUES (?, ?, ?, ?)",
		c.ID, c.AccountID, c.ClubID, storage.FormatTime(c.CreatedAt))
	return storage.MapUnique(err)
}

// GetCoachByAccount returns the coach assignment of an account.
// POST: Returns the assignment or a not-found error
func (s *SQLiteStore) GetCoachByAccount(ctx context.Context, accountID string) (domain.Coach, error) {
	var row coachRow
	err := sqlx.GetContext(ctx, storage.Conn(ctx, s.db), &row,
		"SELECT id, account_id, club_id, created_at FROM coach WHERE account_id = ?", accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Coach{}, failure.NotFound("coach")
	}
	if err != nil {
		return domain.Coach{}, err
	}
	return row.toDomain(), nil
}

// ListCoaches returns the coaches of a club.
func (s *SQLiteStore) ListCoaches(ctx context.Context, clubID string) ([]domain.Coach, error) {
	var rows []coachRow
	if err := sqlx.SelectContext(ctx, storage.Conn(ctx, s.db), &rows,
		"SELECT id, account_id, club_id, created_at FROM coach WHERE club_id = ? ORDER BY created_at", clubID); err != nil {
		return nil, err
	}
	out := make([]domain.Coach, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// CountCoaches returns how many coaches a club has.
func (s *SQLiteStore) CountCoaches(ctx context.Context, clubID string) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, storage.Conn(ctx, s.db), &n, "SELECT COUNT(*) FROM coach WHERE club_id = ?", clubID)
	return n, err
}
