// Package storagetest opens migrated throwaway databases and seeds fixtures for store tests.
package storagetest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"clubhouse/internal/adapters/storage"
)

// Epoch is the fixed creation time of seeded rows.
var Epoch = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

// OpenDB opens a migrated database file under t.TempDir.
func OpenDB(t testing.TB) *sqlx.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "clubhouse.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// SeedAccount inserts an account with role.
func SeedAccount(t testing.TB, db *sqlx.DB, id, role string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO account (id, email, role, created_at) VALUES (?, ?, ?, ?)`,
		id, id+"@clubhouse.test", role, storage.FormatTime(Epoch))
	require.NoError(t, err)
}

// SeedClub inserts a club.
func SeedClub(t testing.TB, db *sqlx.DB, id string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO club (id, name, sport_type, created_at) VALUES (?, ?, 'athletics', ?)`,
		id, "Club "+id, storage.FormatTime(Epoch))
	require.NoError(t, err)
}

// SeedCoach inserts a coach account assigned to clubID.
func SeedCoach(t testing.TB, db *sqlx.DB, accountID, clubID string) {
	t.Helper()
	SeedAccount(t, db, accountID, "coach")
	_, err := db.Exec(`INSERT INTO coach (id, account_id, club_id, created_at) VALUES (?, ?, ?, ?)`,
		"coach-"+accountID, accountID, clubID, storage.FormatTime(Epoch))
	require.NoError(t, err)
}

// SeedAthlete inserts an athlete profile for an existing account.
func SeedAthlete(t testing.TB, db *sqlx.DB, id, userID, clubID string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO athlete (id, user_id, club_id, first_name, last_name, created_at) VALUES (?, ?, ?, 'Test', ?, ?)`,
		id, userID, clubID, id, storage.FormatTime(Epoch))
	require.NoError(t, err)
}

// SeedActivity inserts an activity on 2026-03-01 at 09:00.
func SeedActivity(t testing.TB, db *sqlx.DB, id, clubID, token string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO activity (id, club_id, title, date, start_time, end_time, token, created_at)
		VALUES (?, ?, ?, '2026-03-01', '09:00', '10:00', ?, ?)`,
		id, clubID, "Activity "+id, token, storage.FormatTime(Epoch))
	require.NoError(t, err)
}
