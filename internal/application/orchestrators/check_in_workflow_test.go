package orchestrators

import (
	"context"
	"errors"
	"testing"
	"time"

	"clubhouse/internal/adapters/storage/storagetest"
	"clubhouse/internal/application/dispatch"
	"clubhouse/internal/domain/audit"
	"clubhouse/internal/domain/checkin"
	"clubhouse/internal/domain/failure"
)

const activityToken = "A1B2C3D4"

// checkInSetup seeds two clubs, a tokened activity in club-a starting
// 2026-03-01 09:00 UTC, athlete ath-1 (user-1) in club-a and ath-2 (user-2) in club-b.
func checkInSetup(t *testing.T) (*fixture, string) {
	t.Helper()
	f := newFixture(t)
	coach := f.seedClub("club-a")
	f.seedClub("club-b")
	f.seedMember("user-1", "ath-1", "club-a")
	f.seedMember("user-2", "ath-2", "club-b")
	storagetest.SeedActivity(t, f.db, "act-1", "club-a", activityToken)
	return f, coach
}

func (f *fixture) checkIn(actorID, athleteID, token string) (CheckInResult, error) {
	return ExecuteCheckIn(context.Background(), CheckInInput{
		ActorID: actorID, ActivityID: "act-1", AthleteID: athleteID, Token: token,
	}, f.checkInDeps())
}

// TestExecuteCheckIn_Classification checks the on-time boundary at the start instant.
func TestExecuteCheckIn_Classification(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"one minute early", time.Date(2026, 3, 1, 8, 59, 0, 0, time.UTC), checkin.StatusOnTime},
		{"exactly at start", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), checkin.StatusOnTime},
		{"one second late", time.Date(2026, 3, 1, 9, 0, 1, 0, time.UTC), checkin.StatusLate},
		{"one minute late", time.Date(2026, 3, 1, 9, 1, 0, 0, time.UTC), checkin.StatusLate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := checkInSetup(t)
			f.setClock(tt.at)
			result, err := f.checkIn("user-1", "ath-1", activityToken)
			if err != nil {
				t.Fatalf("check in: %v", err)
			}
			if result.CheckIn.Status != tt.want {
				t.Errorf("status = %q, want %q", result.CheckIn.Status, tt.want)
			}
			if result.CheckIn.Method != checkin.MethodToken {
				t.Errorf("method = %q, want token", result.CheckIn.Method)
			}
		})
	}
}

// TestExecuteCheckIn_RepeatReturnsOriginal verifies one check-in per athlete and activity.
func TestExecuteCheckIn_RepeatReturnsOriginal(t *testing.T) {
	f, _ := checkInSetup(t)
	f.setClock(time.Date(2026, 3, 1, 8, 59, 0, 0, time.UTC))
	first, err := f.checkIn("user-1", "ath-1", activityToken)
	if err != nil {
		t.Fatalf("first check in: %v", err)
	}

	f.setClock(time.Date(2026, 3, 1, 9, 20, 0, 0, time.UTC))
	again, err := f.checkIn("user-1", "ath-1", activityToken)
	requireKind(t, err, failure.ErrAlreadyCheckedIn)
	if !again.AlreadyCheckedIn {
		t.Error("AlreadyCheckedIn not set")
	}
	if again.CheckIn.ID != first.CheckIn.ID || again.CheckIn.Status != checkin.StatusOnTime {
		t.Errorf("repeat returned %+v, want original %+v", again.CheckIn, first.CheckIn)
	}
	if n := f.countRows("check_in"); n != 1 {
		t.Errorf("check_in rows = %d, want 1", n)
	}
	if n := f.notifier.count(dispatch.CheckInRecorded); n != 1 {
		t.Errorf("notified %d times, want 1", n)
	}
}

// failingCheckInReads fails every Get with err.
type failingCheckInReads struct {
	CheckInStore
	err error
}

func (s failingCheckInReads) Get(context.Context, string, string) (checkin.CheckIn, error) {
	return checkin.CheckIn{}, s.err
}

func TestExecuteCheckIn_RepeatSurfacesReadError(t *testing.T) {
	f, _ := checkInSetup(t)
	if _, err := f.checkIn("user-1", "ath-1", activityToken); err != nil {
		t.Fatalf("first check in: %v", err)
	}

	errRead := errors.New("disk unavailable")
	deps := f.checkInDeps()
	deps.CheckInStore = failingCheckInReads{CheckInStore: f.checkins, err: errRead}
	result, err := ExecuteCheckIn(context.Background(), CheckInInput{
		ActorID: "user-1", ActivityID: "act-1", AthleteID: "ath-1", Token: activityToken,
	}, deps)
	if !errors.Is(err, errRead) {
		t.Fatalf("err = %v, want wrapped read error", err)
	}
	if errors.Is(err, failure.ErrAlreadyCheckedIn) {
		t.Errorf("read error reported as already checked in: %v", err)
	}
	if result.AlreadyCheckedIn || result.CheckIn.ID != "" {
		t.Errorf("result = %+v, want empty", result)
	}
}

// TestExecuteCheckIn_Rejections covers scope, ownership and token failures.
func TestExecuteCheckIn_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		actor   string
		athlete string
		token   string
		want    error
	}{
		{"cross-club athlete with wrong token", "user-2", "ath-2", "WRONG", failure.ErrScopeMismatch},
		{"cross-club athlete with right token", "user-2", "ath-2", activityToken, failure.ErrScopeMismatch},
		{"wrong token", "user-1", "ath-1", "WRONG", failure.ErrInvalidToken},
		{"missing token", "user-1", "ath-1", "", failure.ErrInvalidToken},
		{"lowercase token", "user-1", "ath-1", "a1b2c3d4", failure.ErrInvalidToken},
		{"someone else's athlete", "user-2", "ath-1", activityToken, failure.ErrAuthorization},
		{"unknown athlete", "user-1", "ath-missing", activityToken, failure.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := checkInSetup(t)
			result, err := f.checkIn(tt.actor, tt.athlete, tt.token)
			requireKind(t, err, tt.want)
			if result.AlreadyCheckedIn {
				t.Error("AlreadyCheckedIn set on rejection")
			}
			if n := f.countRows("check_in"); n != 0 {
				t.Errorf("check_in rows = %d, want 0", n)
			}
		})
	}
}

// TestExecuteCheckIn_CoachRecordsForAthlete verifies staff check-ins are marked as such.
func TestExecuteCheckIn_CoachRecordsForAthlete(t *testing.T) {
	f, coach := checkInSetup(t)
	f.setClock(time.Date(2026, 3, 1, 9, 5, 0, 0, time.UTC))

	_, err := f.checkIn(coach, "ath-1", "")
	requireKind(t, err, failure.ErrInvalidToken)

	result, err := f.checkIn(coach, "ath-1", activityToken)
	if err != nil {
		t.Fatalf("coach check in: %v", err)
	}
	if result.CheckIn.Method != checkin.MethodCoach || result.CheckIn.Status != checkin.StatusLate {
		t.Errorf("check-in = %+v", result.CheckIn)
	}
	if !hasAction(f.auditActions(result.CheckIn.ID), audit.ActionCheckedIn) {
		t.Error("check-in was not audited")
	}
}

// TestExecuteCheckIn_NotifiesRecorded verifies the broadcast payload.
func TestExecuteCheckIn_NotifiesRecorded(t *testing.T) {
	f, _ := checkInSetup(t)
	at := time.Date(2026, 3, 1, 8, 45, 0, 0, time.UTC)
	f.setClock(at)
	if _, err := f.checkIn("user-1", "ath-1", activityToken); err != nil {
		t.Fatalf("check in: %v", err)
	}
	last := f.notifier.last()
	if last.kind != dispatch.CheckInRecorded {
		t.Fatalf("notified %q", last.kind)
	}
	want := dispatch.Payload{
		dispatch.KeyActivityID: "act-1",
		dispatch.KeyAthleteID:  "ath-1",
		dispatch.KeyStatus:     checkin.StatusOnTime,
		dispatch.KeyTimestamp:  "2026-03-01T08:45:00Z",
	}
	for k, v := range want {
		if last.payload[k] != v {
			t.Errorf("payload[%s] = %q, want %q", k, last.payload[k], v)
		}
	}
}

// TestExecuteCheckIn_ClubClock classifies against the configured location.
func TestExecuteCheckIn_ClubClock(t *testing.T) {
	f, _ := checkInSetup(t)
	bangkok := time.FixedZone("ICT", 7*60*60)
	// 08:30 in Bangkok is 01:30 UTC; the activity starts 09:00 Bangkok time.
	f.setClock(time.Date(2026, 3, 1, 1, 30, 0, 0, time.UTC))
	deps := f.checkInDeps()
	deps.Location = bangkok

	result, err := ExecuteCheckIn(context.Background(), CheckInInput{
		ActorID: "user-1", ActivityID: "act-1", AthleteID: "ath-1", Token: activityToken,
	}, deps)
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if result.CheckIn.Status != checkin.StatusOnTime {
		t.Errorf("status = %q, want on_time", result.CheckIn.Status)
	}
}
