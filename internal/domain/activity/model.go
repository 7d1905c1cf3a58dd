package activity

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"clubhouse/internal/domain/failure"
)

// Kind constants. Activities and training sessions share one record shape.
const (
	KindActivity = "activity"
	KindSession  = "session"
)

// Layouts for the stored schedule fields.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// MaxTitleLength bounds the activity title.
const MaxTitleLength = 200

// tokenBytes is the entropy of a generated verification token.
const tokenBytes = 4

// Activity is a scheduled club event athletes can register for and check in to.
type Activity struct {
	ID               string
	ClubID           string
	Kind             string
	Title            string
	Date             string // YYYY-MM-DD
	StartTime        string // HH:MM
	EndTime          string // HH:MM
	Token            string // empty when check-in needs no token
	Capacity         int    // 0 means unlimited
	RequiresApproval bool
	CreatedBy        string
	CreatedAt        time.Time
}

// Validate checks if the Activity has valid data.
// PRE: Activity struct is populated
// POST: Returns nil if valid, error otherwise
func (a *Activity) Validate() error {
	if a.ClubID == "" {
		return failure.MissingField("club_id")
	}
	if a.Kind == "" {
		a.Kind = KindActivity
	}
	if a.Kind != KindActivity && a.Kind != KindSession {
		return failure.Validation("kind must be activity or session")
	}
	if strings.TrimSpace(a.Title) == "" {
		return failure.MissingField("title")
	}
	if len(a.Title) > MaxTitleLength {
		return failure.Validation("title cannot exceed 200 characters")
	}
	if _, err := time.Parse(DateLayout, a.Date); err != nil {
		return &failure.Error{Kind: failure.ErrValidation, Message: "date must be YYYY-MM-DD", Field: "date"}
	}
	start, err := time.Parse(TimeLayout, a.StartTime)
	if err != nil {
		return &failure.Error{Kind: failure.ErrValidation, Message: "start_time must be HH:MM", Field: "start_time"}
	}
	if a.EndTime != "" {
		end, err := time.Parse(TimeLayout, a.EndTime)
		if err != nil {
			return &failure.Error{Kind: failure.ErrValidation, Message: "end_time must be HH:MM", Field: "end_time"}
		}
		if !end.After(start) {
			return failure.Validation("end_time must be after start_time")
		}
	}
	if a.Capacity < 0 {
		return failure.Validation("capacity cannot be negative")
	}
	return nil
}

// EffectiveStart combines the scheduled date and start time on the club clock.
// PRE: Date and StartTime are well formed
// POST: the instant the activity starts in loc
func (a *Activity) EffectiveStart(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, a.Date+" "+a.StartTime, loc)
	if err != nil {
		return time.Time{}, failure.Validation("activity schedule is malformed")
	}
	return t, nil
}

// RequiresToken reports whether check-in must present a token.
func (a *Activity) RequiresToken() bool {
	return a.Token != ""
}

// VerifyToken checks a presented token by exact match.
// POST: nil when the activity has no token
func (a *Activity) VerifyToken(presented string) error {
	if !a.RequiresToken() {
		return nil
	}
	if presented != a.Token {
		return failure.New(failure.ErrInvalidToken, "verification token does not match")
	}
	return nil
}

// HasCapacityFor reports whether another approved registration fits.
func (a *Activity) HasCapacityFor(approved int) bool {
	return a.Capacity == 0 || approved < a.Capacity
}

// GenerateToken returns a fresh random verification token.
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}
