package orchestrators

import (
	"context"
	"errors"
	"sync"
	"testing"

	"clubhouse/internal/domain/application"
	"clubhouse/internal/domain/failure"
)

const racers = 8

// race runs fn from racers goroutines released together and returns every error.
func race(fn func() error) []error {
	errs := make([]error, racers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = fn()
		}(i)
	}
	close(start)
	wg.Wait()
	return errs
}

func TestExecuteReviewApplication_ConcurrentApprovals(t *testing.T) {
	f := newFixture(t)
	coach := f.seedClub("club-a")
	f.seedUser("user-1")
	app := f.submit("user-1", "club-a")

	errs := race(func() error {
		_, err := ExecuteReviewApplication(context.Background(), ReviewApplicationInput{
			ActorID: coach, ApplicationID: app.ID, Action: application.ActionApprove,
		}, f.reviewDeps())
		return err
	})

	var ok, processed int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, failure.ErrAlreadyProcessed):
			processed++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || processed != racers-1 {
		t.Errorf("ok = %d, already_processed = %d, want 1 and %d", ok, processed, racers-1)
	}
	if n := f.countRows("athlete"); n != 1 {
		t.Errorf("athletes = %d, want 1", n)
	}
	got, err := f.applications.GetByID(context.Background(), app.ID)
	if err != nil {
		t.Fatalf("load application: %v", err)
	}
	if got.Status != application.StatusApproved {
		t.Errorf("status = %q, want approved", got.Status)
	}
}

func TestExecuteCheckIn_ConcurrentRepeats(t *testing.T) {
	f, _ := checkInSetup(t)

	errs := race(func() error {
		_, err := f.checkIn("user-1", "ath-1", activityToken)
		return err
	})

	var ok, repeats int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, failure.ErrAlreadyCheckedIn):
			repeats++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || repeats != racers-1 {
		t.Errorf("ok = %d, already_checked_in = %d, want 1 and %d", ok, repeats, racers-1)
	}
	rows, err := f.checkins.ListByActivity(context.Background(), "act-1")
	if err != nil {
		t.Fatalf("list check-ins: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("check-in rows = %d, want 1", len(rows))
	}
}
