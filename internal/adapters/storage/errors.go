package storage

import (
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrUniqueViolation reports that an insert or update hit a unique index.
var ErrUniqueViolation = errors.New("unique constraint violation")

// IsUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY constraint.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUniqueViolation) {
		return true
	}
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(se.Error(), "UNIQUE constraint failed")
	}
	return false
}

// MapUnique wraps unique violations in ErrUniqueViolation and returns other errors unchanged.
func MapUnique(err error) error {
	if IsUniqueViolation(err) && !errors.Is(err, ErrUniqueViolation) {
		return errors.Join(ErrUniqueViolation, err)
	}
	return err
}
