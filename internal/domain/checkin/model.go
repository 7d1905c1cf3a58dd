package checkin

import (
	"time"
)

// Status constants
const (
	StatusOnTime = "on_time"
	StatusLate   = "late"
)

// Method constants
const (
	MethodToken = "token" // athlete presented the activity token
	MethodCoach = "coach" // staff recorded the check-in
)

// CheckIn records an athlete's attendance at an activity. It is immutable.
type CheckIn struct {
	ID          string
	ActivityID  string
	AthleteID   string
	Status      string
	Method      string
	CheckedInAt time.Time
}

// Classify returns late iff now is strictly after effectiveStart.
// INVARIANT: pure function of its arguments; equal instants are on time
func Classify(effectiveStart, now time.Time) string {
	if now.After(effectiveStart) {
		return StatusLate
	}
	return StatusOnTime
}

// IsLate reports whether the check-in was classified late.
func (c *CheckIn) IsLate() bool {
	return c.Status == StatusLate
}
