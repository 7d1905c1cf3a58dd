package account

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Max length constants for user-editable fields.
const (
	MaxEmailLength       = 254
	MaxDisplayNameLength = 100
)

// Role constants
const (
	RoleAdmin   = "admin"
	RoleCoach   = "coach"
	RoleAthlete = "athlete"
)

// Membership status constants. The status is a projection of the user's
// latest membership application and is rewritten on every transition.
const (
	MembershipNone     = "none"
	MembershipPending  = "pending"
	MembershipActive   = "active"
	MembershipRejected = "rejected"
)

// Lock-out policy
const (
	MaxFailedLogins = 5
	LockoutDuration = 15 * time.Minute
	bcryptCost      = 12
	minPasswordLen  = 12
)

// ValidRoles contains all valid role values.
var ValidRoles = []string{RoleAdmin, RoleCoach, RoleAthlete}

// Domain errors
var (
	ErrInvalidEmail      = errors.New("email must contain '@'")
	ErrEmptyEmail        = errors.New("email cannot be empty")
	ErrInvalidRole       = errors.New("role must be one of: admin, coach, athlete")
	ErrInvalidMembership = errors.New("membership status must be one of: none, pending, active, rejected")
	ErrEmptyPassword     = errors.New("password cannot be empty")
	ErrPasswordTooShort  = errors.New("password must be at least 12 characters")
	ErrWrongPassword     = errors.New("incorrect password")
)

// Account is an authenticated user of the system.
type Account struct {
	ID               string
	Email            string
	DisplayName      string
	PasswordHash     string
	Role             string
	MembershipStatus string
	CreatedAt        time.Time
	FailedLogins     int
	LockedUntil      time.Time
}

// Validate checks if the Account has valid data.
// PRE: Account struct is populated
// POST: Returns nil if valid, error otherwise
func (a *Account) Validate() error {
	if strings.TrimSpace(a.Email) == "" {
		return ErrEmptyEmail
	}
	if len(a.Email) > MaxEmailLength {
		return errors.New("email cannot exceed 254 characters")
	}
	if !strings.Contains(a.Email, "@") {
		return ErrInvalidEmail
	}
	if len(a.DisplayName) > MaxDisplayNameLength {
		return errors.New("display name cannot exceed 100 characters")
	}
	if !IsValidRole(a.Role) {
		return ErrInvalidRole
	}
	if a.MembershipStatus == "" {
		a.MembershipStatus = MembershipNone
	}
	if !isValidMembership(a.MembershipStatus) {
		return ErrInvalidMembership
	}
	return nil
}

// SetPassword hashes and stores a password using bcrypt.
// PRE: plaintext is non-empty and >= 12 characters
// POST: PasswordHash is set to bcrypt hash
func (a *Account) SetPassword(plaintext string) error {
	if plaintext == "" {
		return ErrEmptyPassword
	}
	if len(plaintext) < minPasswordLen {
		return ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return err
	}
	a.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies a plaintext password against the stored hash.
// PRE: PasswordHash is set
// INVARIANT: Account fields are not mutated
func (a *Account) CheckPassword(plaintext string) error {
	if a.PasswordHash == "" {
		return ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(plaintext)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// IsLocked returns true if the account is locked out at now.
// INVARIANT: Account fields are not mutated
func (a *Account) IsLocked(now time.Time) bool {
	if a.LockedUntil.IsZero() {
		return false
	}
	return now.Before(a.LockedUntil)
}

// RecordFailedLogin increments the failed login counter and locks the account after too many failures.
// PRE: Account exists
// POST: FailedLogins incremented; LockedUntil set once MaxFailedLogins is reached
func (a *Account) RecordFailedLogin(now time.Time) {
	a.FailedLogins++
	if a.FailedLogins >= MaxFailedLogins {
		a.LockedUntil = now.Add(LockoutDuration)
	}
}

// ResetFailedLogins clears the failed login counter and lock.
func (a *Account) ResetFailedLogins() {
	a.FailedLogins = 0
	a.LockedUntil = time.Time{}
}

// IsAdmin returns true if the account has admin role.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsCoach returns true if the account has coach role.
func (a *Account) IsCoach() bool {
	return a.Role == RoleCoach
}

// IsValidRole reports whether role is one of ValidRoles.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

func isValidMembership(status string) bool {
	switch status {
	case MembershipNone, MembershipPending, MembershipActive, MembershipRejected:
		return true
	}
	return false
}
