package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// DefaultSlowQuery is the default threshold for slow query warnings.
const DefaultSlowQuery = 50 * time.Millisecond

// QueryObserver receives the duration of every statement.
type QueryObserver interface {
	ObserveQuery(op string, d time.Duration)
}

// TimedDB wraps a *sqlx.DB to log slow queries and report timings to an observer.
// Satisfies the DB interface so it can be passed to any store constructor.
type TimedDB struct {
	db        *sqlx.DB
	observer  QueryObserver
	threshold time.Duration
}

// Compile-time check that *TimedDB satisfies DB.
var _ DB = (*TimedDB)(nil)

// NewTimedDB wraps db with timing instrumentation.
// PRE: db is a valid database connection; observer may be nil
// POST: Returns a TimedDB that logs statements slower than threshold
func NewTimedDB(db *sqlx.DB, observer QueryObserver, threshold time.Duration) *TimedDB {
	if threshold <= 0 {
		threshold = DefaultSlowQuery
	}
	return &TimedDB{db: db, observer: observer, threshold: threshold}
}

// RawDB returns the underlying *sqlx.DB.
func (t *TimedDB) RawDB() *sqlx.DB {
	return t.db
}

func (t *TimedDB) logQuery(op string, start time.Time) {
	d := time.Since(start)
	durationMs := float64(d.Microseconds()) / 1000.0
	if d >= t.threshold {
		slog.Warn("slow_query", "op", op, "duration_ms", durationMs)
	} else {
		slog.Debug("query", "op", op, "duration_ms", durationMs)
	}
	if t.observer != nil {
		t.observer.ObserveQuery(op, d)
	}
}

// DriverName returns the driver name of the wrapped db.
func (t *TimedDB) DriverName() string {
	return t.db.DriverName()
}

// Rebind converts placeholders for the wrapped driver.
func (t *TimedDB) Rebind(query string) string {
	return t.db.Rebind(query)
}

// BindNamed binds a named query against arg.
func (t *TimedDB) BindNamed(query string, arg any) (string, []any, error) {
	return t.db.BindNamed(query, arg)
}

// ExecContext wraps sqlx.DB.ExecContext with timing.
func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	result, err := t.db.ExecContext(ctx, query, args...)
	t.logQuery("exec", start)
	return result, err
}

// QueryContext wraps sqlx.DB.QueryContext with timing.
func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := t.db.QueryContext(ctx, query, args...)
	t.logQuery("query", start)
	return rows, err
}

// QueryxContext wraps sqlx.DB.QueryxContext with timing.
func (t *TimedDB) QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error) {
	start := time.Now()
	rows, err := t.db.QueryxContext(ctx, query, args...)
	t.logQuery("query", start)
	return rows, err
}

// QueryRowxContext wraps sqlx.DB.QueryRowxContext with timing.
func (t *TimedDB) QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row {
	start := time.Now()
	row := t.db.QueryRowxContext(ctx, query, args...)
	t.logQuery("query_row", start)
	return row
}

// BeginTxx wraps sqlx.DB.BeginTxx with timing.
func (t *TimedDB) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	start := time.Now()
	tx, err := t.db.BeginTxx(ctx, opts)
	t.logQuery("begin", start)
	return tx, err
}

// PingContext verifies the database connection.
func (t *TimedDB) PingContext(ctx context.Context) error {
	return t.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (t *TimedDB) Close() error {
	return t.db.Close()
}
