package club

import (
	"errors"
	"strings"
	"time"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength = 100
)

// Domain errors
var (
	ErrEmptyName      = errors.New("club name cannot be empty")
	ErrEmptySportType = errors.New("club sport type cannot be empty")
	ErrEmptyAccountID = errors.New("coach must be tied to an account")
	ErrEmptyClubID    = errors.New("coach must belong to a club")
)

// Club is the tenant that scopes coaches, athletes and activities.
type Club struct {
	ID        string
	Name      string
	SportType string
	CreatedAt time.Time
}

// Validate checks if the Club has valid data.
// PRE: Club struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (c *Club) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > MaxNameLength {
		return errors.New("club name cannot exceed 100 characters")
	}
	if strings.TrimSpace(c.SportType) == "" {
		return ErrEmptySportType
	}
	return nil
}

// Coach assigns an account to exactly one club.
type Coach struct {
	ID        string
	AccountID string
	ClubID    string
	CreatedAt time.Time
}

// Validate checks if the Coach has valid data.
// INVARIANT: a coach has exactly one owning club
func (c *Coach) Validate() error {
	if c.AccountID == "" {
		return ErrEmptyAccountID
	}
	if c.ClubID == "" {
		return ErrEmptyClubID
	}
	return nil
}

// AcceptsApplications reports whether a club with coachCount coaches may take applications.
func AcceptsApplications(coachCount int) bool {
	return coachCount >= 1
}
