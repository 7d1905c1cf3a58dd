package athlete

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

// Required personal-info keys for materialization, in the order they are checked.
const (
	FieldFullName    = "full_name"
	FieldGender      = "gender"
	FieldDateOfBirth = "date_of_birth"
	FieldPhoneNumber = "phone_number"
)

// RequiredFields lists the personal-info keys an approved application must carry.
var RequiredFields = []string{FieldFullName, FieldGender, FieldDateOfBirth, FieldPhoneNumber}

// Domain errors
var (
	ErrEmptyUserID = errors.New("athlete must be tied to a user")
	ErrEmptyClubID = errors.New("athlete must belong to a club")
)

// Athlete is a club member profile. It exists once per (user, club) and is
// only ever created by approving a membership application.
type Athlete struct {
	ID          string
	UserID      string
	ClubID      string
	FirstName   string
	LastName    string
	Gender      string
	DateOfBirth string
	PhoneNumber string
	CreatedAt   time.Time
}

// Validate checks if the Athlete has valid data.
// PRE: Athlete struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (a *Athlete) Validate() error {
	if a.UserID == "" {
		return ErrEmptyUserID
	}
	if a.ClubID == "" {
		return ErrEmptyClubID
	}
	return nil
}

// FullName joins first and last name.
func (a *Athlete) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// SplitFullName splits a full name at the first whitespace run.
// The first token is the first name and the remainder the last name; a
// single-token name is returned entirely as the last name.
func SplitFullName(fullName string) (first, last string) {
	name := strings.TrimSpace(fullName)
	idx := strings.IndexFunc(name, unicode.IsSpace)
	if idx < 0 {
		return "", name
	}
	return name[:idx], strings.TrimLeftFunc(name[idx:], unicode.IsSpace)
}
