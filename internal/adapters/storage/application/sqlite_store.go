package application

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"clubhouse/internal/adapters/storage"
	domain "clubhouse/internal/domain/application"
	"clubhouse/internal/domain/failure"
)

const selectColumns = `SELECT id, user_id, club_id, status, personal_info, documents, reviewer_id, rejection_reason,
	info_request_note, COALESCE(profile_id, '') AS profile_id, created_at, updated_at, reviewed_at
	FROM membership_application`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.DB
}

// NewSQLiteStore creates a new application store.
func NewSQLiteStore(db storage.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type applicationRow struct {
	ID              string `db:"id"`
	UserID          string `db:"user_id"`
	ClubID          string `db:"club_id"`
	Status          string `db:"status"`
	PersonalInfo    string `db:"personal_info"`
	Documents       string `db:"documents"`
	ReviewerID      string `db:"reviewer_id"`
	RejectionReason string `db:"rejection_reason"`
	InfoRequestNote string `db:"info_request_note"`
	ProfileID       string `db:"profile_id"`
	CreatedAt       string `db:"created_at"`
	UpdatedAt       string `db:"updated_at"`
	ReviewedAt      string `db:"reviewed_at"`
}

func (r applicationRow) toDomain() (domain.Application, error) {
	a := domain.Application{
		ID:              r.ID,
		UserID:          r.UserID,
		ClubID:          r.ClubID,
		Status:          r.Status,
		ReviewerID:      r.ReviewerID,
		RejectionReason: r.RejectionReason,
		InfoRequestNote: r.InfoRequestNote,
		ProfileID:       r.ProfileID,
		CreatedAt:       storage.ParseTime(r.CreatedAt),
		UpdatedAt:       storage.ParseTime(r.UpdatedAt),
		ReviewedAt:      storage.ParseTime(r.ReviewedAt),
		PersonalInfo:    domain.PersonalInfo{},
	}
	if r.PersonalInfo != "" {
		if err := json.Unmarshal([]byte(r.PersonalInfo), &a.PersonalInfo); err != nil {
			return domain.Application{}, fmt.Errorf("decode personal_info of %s: %w", r.ID, err)
		}
	}
	if r.Documents != "" {
		if err := json.Unmarshal([]byte(r.Documents), &a.Documents); err != nil {
			return domain.Application{}, fmt.Errorf("decode documents of %s: %w", r.ID, err)
		}
	}
	return a, nil
}

func encodePayload(info domain.PersonalInfo, docs []domain.Document) (string, string, error) {
	if info == nil {
		info = domain.PersonalInfo{}
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	i, err := json.Marshal(info)
	if err != nil {
		return "", "", err
	}
	d, err := json.Marshal(docs)
	if err != nil {
		return "", "", err
	}
	return string(i), string(d), nil
}

// Create inserts an application.
// PRE: application has been validated
// POST: a second active application for the user fails with storage.ErrUniqueViolation
func (s *SQLiteStore) Create(ctx context.Context, a domain.Application) error {
	info, docs, err := encodePayload(a.PersonalInfo, a.Documents)
	if err != nil {
		return err
	}
	_, err = storage.Conn(ctx, s.db).ExecContext(ctx,
		`INSERT INTO membership_application (id, user_id, club_id, status, personal_info, documents,
		 reviewer_id, rejection_reason, info_request_note, profile_id, created_at, updated_at, reviewed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.ClubID, a.Status, info, docs, a.ReviewerID, a.RejectionReason, a.InfoRequestNote,
		storage.NullIfEmpty(a.ProfileID), storage.FormatTime(a.CreatedAt), storage.FormatTime(a.UpdatedAt),
		storage.FormatTime(a.ReviewedAt))
	return storage.MapUnique(err)
}

// GetByID retrieves an application.
// POST: Returns the application or a not-found error
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Application, error) {
	return s.get(ctx, selectColumns+" WHERE id = ?", id)
}

// GetActiveByUser returns the user's pending or info-requested application.
// POST: not-found error when the user has none
func (s *SQLiteStore) GetActiveByUser(ctx context.Context, userID string) (domain.Application, error) {
	return s.get(ctx, selectColumns+" WHERE user_id = ? AND status IN ('pending', 'info_requested')", userID)
}

// LatestByUser returns the user's most recently updated application.
func (s *SQLiteStore) LatestByUser(ctx context.Context, userID string) (domain.Application, error) {
	return s.get(ctx, selectColumns+" WHERE user_id = ? ORDER BY updated_at DESC, created_at DESC LIMIT 1", userID)
}

func (s *SQLiteStore) get(ctx context.Context, query string, args ...any) (domain.Application, error) {
	var row applicationRow
	err := sqlx.GetContext(ctx, storage.Conn(ctx, s.db), &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Application{}, failure.NotFound("application")
	}
	if err != nil {
		return domain.Application{}, err
	}
	return row.toDomain()
}

// List returns applications matching filter, newest first.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Application, error) {
	var where []string
	var args []any
	if filter.ClubID != "" {
		where = append(where, "club_id = ?")
		args = append(args, filter.ClubID)
	}
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	var rows []applicationRow
	if err := sqlx.SelectContext(ctx, storage.Conn(ctx, s.db), &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]domain.Application, 0, len(rows))
	for _, r := range rows {
		a, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Transition applies a conditional status update.
// PRE: change.From is non-empty
// POST: true iff exactly this call moved the row out of a From status
func (s *SQLiteStore) Transition(ctx context.Context, change StatusChange) (bool, error) {
	if len(change.From) == 0 {
		return false, errors.New("status change needs at least one source status")
	}
	query, args, err := sqlx.In(
		`UPDATE membership_application SET status = ?, reviewer_id = ?, rejection_reason = ?,
		 info_request_note = ?, reviewed_at = ?, updated_at = ?
		 WHERE id = ? AND status IN (?)`,
		change.To, change.ReviewerID, change.RejectionReason, change.InfoRequestNote,
		storage.FormatTime(change.At), storage.FormatTime(change.At), change.ID, change.From)
	if err != nil {
		return false, err
	}
	conn := storage.Conn(ctx, s.db)
	res, err := conn.ExecContext(ctx, conn.Rebind(query), args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// Resubmit replaces the payload of an info-requested application and returns it to pending.
// POST: true iff the application was info_requested
func (s *SQLiteStore) Resubmit(ctx context.Context, id string, info domain.PersonalInfo, docs []domain.Document, now time.Time) (bool, error) {
	i, d, err := encodePayload(info, docs)
	if err != nil {
		return false, err
	}
	res, err := storage.Conn(ctx, s.db).ExecContext(ctx,
		`UPDATE membership_application SET personal_info = ?, documents = ?, status = 'pending', updated_at = ?
		 WHERE id = ? AND status = 'info_requested'`,
		i, d, storage.FormatTime(now), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// LinkProfile stores the materialized athlete on the application.
func (s *SQLiteStore) LinkProfile(ctx context.Context, id, profileID string, now time.Time) error {
	res, err := storage.Conn(ctx, s.db).ExecContext(ctx,
		"UPDATE membership_application SET profile_id = ?, updated_at = ? WHERE id = ?",
		profileID, storage.FormatTime(now), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return failure.NotFound("application")
	}
	return nil
}

// Delete hard-deletes an application.
// POST: not-found error when nothing was deleted
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := storage.Conn(ctx, s.db).ExecContext(ctx, "DELETE FROM membership_application WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return failure.NotFound("application")
	}
	return nil
}
