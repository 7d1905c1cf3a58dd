package account

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"clubhouse/internal/adapters/storage"
	domain "clubhouse/internal/domain/account"
	"clubhouse/internal/domain/failure"
)

const selectColumns = "SELECT id, email, display_name, password_hash, role, membership_status, failed_logins, locked_until, created_at FROM account"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.DB
}

// NewSQLiteStore creates a new account store.
func NewSQLiteStore(db storage.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type accountRow struct {
	ID               string `db:"id"`
	Email            string `db:"email"`
	DisplayName      string `db:"display_name"`
	PasswordHash     string `db:"password_hash"`
	Role             string `db:"role"`
	MembershipStatus string `db:"membership_status"`
	FailedLogins     int    `db:"failed_logins"`
	LockedUntil      string `db:"locked_until"`
	CreatedAt        string `db:"created_at"`
}

func (r accountRow) toDomain() domain.Account {
	return domain.Account{
		ID:               r.ID,
		Email:            r.Email,
		DisplayName:      r.DisplayName,
		PasswordHash:     r.PasswordHash,
		Role:             r.Role,
		MembershipStatus: r.MembershipStatus,
		FailedLogins:     r.FailedLogins,
		LockedUntil:      storage.ParseTime(r.LockedUntil),
		CreatedAt:        storage.ParseTime(r.CreatedAt),
	}
}

// GetByID retrieves an Account by its ID.
// PRE: id is non-empty
// POST: Returns the entity or a not-found error
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	return s.get(ctx, selectColumns+" WHERE id = ?", id)
}

// GetByEmail retrieves an Account by email, case-insensitively.
// PRE: email is non-empty
// POST: Returns the entity or a not-found error
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	return s.get(ctx, selectColumns+" WHERE email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (s *SQLiteStore) get(ctx context.Context, query string, args ...any) (domain.Account, error) {
	var row accountRow
	err := sqlx.GetContext(ctx, storage.Conn(ctx, s.db), &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, failure.NotFound("account")
	}
	if err != nil {
		return domain.Account{}, err
	}
	return row.toDomain(), nil
}

// Create inserts a new Account.
// PRE: entity has been validated
// POST: a duplicate email fails with storage.ErrUniqueViolation
func (s *SQLiteStore) Create(ctx context.Context, a domain.Account) error {
	_, err := storage.Conn(ctx, s.db).ExecContext(ctx,
		`INSERT INTO account (id, email, display_name, password_hash, role, membership_status, failed_logins, locked_until, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, strings.ToLower(strings.TrimSpace(a.Email)), a.DisplayName, a.PasswordHash, a.Role,
		a.MembershipStatus, a.FailedLogins, storage.FormatTime(a.LockedUntil), storage.FormatTime(a.CreatedAt))
	return storage.MapUnique(err)
}

// Save updates the mutable fields of an existing Account.
// PRE: entity exists
// POST: profile, credential and lock-out fields are persisted
func (s *SQLiteStore) Save(ctx context.Context, a domain.Account) error {
	res, err := storage.Conn(ctx, s.db).ExecContext(ctx,
		`UPDATE account SET display_name = ?, password_hash = ?, role = ?, membership_status = ?,
		 failed_logins = ?, locked_until = ? WHERE id = ?`,
		a.DisplayName, a.PasswordHash, a.Role, a.MembershipStatus,
		a.FailedLogins, storage.FormatTime(a.LockedUntil), a.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetMembershipStatus rewrites the account's membership status.
// PRE: status is a valid membership status
// POST: not-found error when the account does not exist
func (s *SQLiteStore) SetMembershipStatus(ctx context.Context, id, status string) error {
	res, err := storage.Conn(ctx, s.db).ExecContext(ctx,
		"UPDATE account SET membership_status = ? WHERE id = ?", status, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// List retrieves Accounts based on the filter.
// PRE: filter.Sort is empty or an allow-listed column
// POST: Returns matching entities, newest first unless sorted otherwise
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Account, error) {
	where, args := filter.where()
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query := selectColumns + where + " ORDER BY " + filter.orderBy() + " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	var rows []accountRow
	if err := sqlx.SelectContext(ctx, storage.Conn(ctx, s.db), &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]domain.Account, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// CountMatching returns how many accounts match filter, ignoring Limit and Offset.
func (s *SQLiteStore) CountMatching(ctx context.Context, filter ListFilter) (int, error) {
	where, args := filter.where()
	var n int
	err := sqlx.GetContext(ctx, storage.Conn(ctx, s.db), &n, "SELECT COUNT(*) FROM account"+where, args...)
	return n, err
}

// Count returns the total number of accounts.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, storage.Conn(ctx, s.db), &n, "SELECT COUNT(*) FROM account")
	return n, err
}

func (f ListFilter) where() (string, []any) {
	var clauses []string
	var args []any
	if f.Role != "" {
		clauses = append(clauses, "role = ?")
		args = append(args, f.Role)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		clauses = append(clauses, "(email LIKE ? OR LOWER(display_name) LIKE ?)")
		args = append(args, like, like)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (f ListFilter) orderBy() string {
	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}
	switch f.Sort {
	case "email":
		return "email " + dir + ", id"
	case "created_at":
		return "created_at " + dir + ", id"
	}
	return "created_at DESC, id"
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return failure.NotFound("account")
	}
	return nil
}
