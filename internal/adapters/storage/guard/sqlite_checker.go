package guard

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"clubhouse/internal/adapters/storage"
	"clubhouse/internal/application/guard"
)

// SQLiteChecker answers guard queries with the same predicates as the unique indexes.
type SQLiteChecker struct {
	db storage.DB
}

// NewSQLiteChecker creates a checker over db.
func NewSQLiteChecker(db storage.DB) *SQLiteChecker {
	return &SQLiteChecker{db: db}
}

var _ guard.Checker = (*SQLiteChecker)(nil)

// Exists reports whether an active record of kind exists for key.
// PRE: the key fields used by kind are non-empty
// POST: reads through the transaction bound to ctx
func (c *SQLiteChecker) Exists(ctx context.Context, kind guard.Kind, key guard.Key) (bool, error) {
	var query string
	var args []any
	switch kind {
	case guard.KindActiveApplication:
		query = "SELECT EXISTS (SELECT 1 FROM membership_application WHERE user_id = ? AND status IN ('pending', 'info_requested'))"
		args = []any{key.UserID}
	case guard.KindActiveRegistration:
		query = "SELECT EXISTS (SELECT 1 FROM activity_registration WHERE activity_id = ? AND athlete_id = ? AND status <> 'cancelled')"
		args = []any{key.ActivityID, key.AthleteID}
	case guard.KindCheckIn:
		query = "SELECT EXISTS (SELECT 1 FROM check_in WHERE activity_id = ? AND athlete_id = ?)"
		args = []any{key.ActivityID, key.AthleteID}
	default:
		return false, fmt.Errorf("unknown guard kind %q", kind)
	}
	var exists bool
	if err := sqlx.GetContext(ctx, storage.Conn(ctx, c.db), &exists, query, args...); err != nil {
		return false, err
	}
	return exists, nil
}
