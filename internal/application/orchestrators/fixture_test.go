package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"clubhouse/internal/adapters/storage"
	accountStore "clubhouse/internal/adapters/storage/account"
	activityStore "clubhouse/internal/adapters/storage/activity"
	appStore "clubhouse/internal/adapters/storage/application"
	athleteStore "clubhouse/internal/adapters/storage/athlete"
	auditStore "clubhouse/internal/adapters/storage/audit"
	checkinStore "clubhouse/internal/adapters/storage/checkin"
	clubStore "clubhouse/internal/adapters/storage/club"
	guardStore "clubhouse/internal/adapters/storage/guard"
	registrationStore "clubhouse/internal/adapters/storage/registration"
	"clubhouse/internal/adapters/storage/storagetest"
	"clubhouse/internal/application/dispatch"
	"clubhouse/internal/domain/application"
	"clubhouse/internal/domain/audit"
)

// --- recording notifier ---

type notified struct {
	kind    string
	payload dispatch.Payload
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notified
	err    error // returned from every Notify call when set
}

// Notify records the event and returns the configured error.
func (n *recordingNotifier) Notify(_ context.Context, kind string, payload dispatch.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notified{kind: kind, payload: payload})
	return n.err
}

func (n *recordingNotifier) last() notified {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.events) == 0 {
		return notified{}
	}
	return n.events[len(n.events)-1]
}

func (n *recordingNotifier) count(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.kind == kind {
			c++
		}
	}
	return c
}

// --- fixture over a migrated SQLite database ---

type fixture struct {
	t             *testing.T
	db            *sqlx.DB
	tx            *storage.Transactor
	accounts      *accountStore.SQLiteStore
	clubs         *clubStore.SQLiteStore
	athletes      *athleteStore.SQLiteStore
	applications  *appStore.SQLiteStore
	activities    *activityStore.SQLiteStore
	registrations *registrationStore.SQLiteStore
	checkins      *checkinStore.SQLiteStore
	audits        *auditStore.SQLiteStore
	guard         *guardStore.SQLiteChecker
	notifier      *recordingNotifier

	mu    sync.Mutex
	clock time.Time
	seq   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storagetest.OpenDB(t)
	return &fixture{
		t:             t,
		db:            db,
		tx:            storage.NewTransactor(db),
		accounts:      accountStore.NewSQLiteStore(db),
		clubs:         clubStore.NewSQLiteStore(db),
		athletes:      athleteStore.NewSQLiteStore(db),
		applications:  appStore.NewSQLiteStore(db),
		activities:    activityStore.NewSQLiteStore(db),
		registrations: registrationStore.NewSQLiteStore(db),
		checkins:      checkinStore.NewSQLiteStore(db),
		audits:        auditStore.NewSQLiteStore(db),
		guard:         guardStore.NewSQLiteChecker(db),
		notifier:      &recordingNotifier{},
		clock:         time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC),
	}
}

func (f *fixture) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clock
}

func (f *fixture) setClock(t time.Time) {
	f.mu.Lock()
	f.clock = t
	f.mu.Unlock()
}

// advance moves the clock forward so each write gets a distinct timestamp.
func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	f.clock = f.clock.Add(d)
	f.mu.Unlock()
}

func (f *fixture) id() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return fmt.Sprintf("id-%03d", f.seq)
}

func (f *fixture) scopes() ResolveScopeDeps {
	return ResolveScopeDeps{AccountStore: f.accounts, CoachStore: f.clubs}
}

// seedClub creates a club with one coach account "coach-<club>".
func (f *fixture) seedClub(clubID string) string {
	f.t.Helper()
	storagetest.SeedClub(f.t, f.db, clubID)
	coachID := "coach-" + clubID
	storagetest.SeedCoach(f.t, f.db, coachID, clubID)
	return coachID
}

func (f *fixture) seedUser(id string) {
	f.t.Helper()
	storagetest.SeedAccount(f.t, f.db, id, "athlete")
}

func (f *fixture) seedAdmin(id string) {
	f.t.Helper()
	storagetest.SeedAccount(f.t, f.db, id, "admin")
}

func (f *fixture) submitDeps() SubmitApplicationDeps {
	return SubmitApplicationDeps{
		Scopes:           f.scopes(),
		Tx:               f.tx,
		ClubStore:        f.clubs,
		AthleteStore:     f.athletes,
		ApplicationStore: f.applications,
		AccountStore:     f.accounts,
		Guard:            f.guard,
		AuditStore:       f.audits,
		Notifier:         f.notifier,
		Now:              f.now,
		GenerateID:       f.id,
	}
}

func (f *fixture) reviewDeps() ReviewApplicationDeps {
	return ReviewApplicationDeps{
		Scopes:           f.scopes(),
		Tx:               f.tx,
		ApplicationStore: f.applications,
		AthleteStore:     f.athletes,
		AccountStore:     f.accounts,
		AuditStore:       f.audits,
		Notifier:         f.notifier,
		Now:              f.now,
		GenerateID:       f.id,
	}
}

func (f *fixture) updateDeps() UpdateApplicationDeps {
	return UpdateApplicationDeps{
		Scopes:           f.scopes(),
		Tx:               f.tx,
		ApplicationStore: f.applications,
		AthleteStore:     f.athletes,
		AccountStore:     f.accounts,
		AuditStore:       f.audits,
		Notifier:         f.notifier,
		Now:              f.now,
		GenerateID:       f.id,
	}
}

func (f *fixture) deleteDeps() DeleteApplicationDeps {
	return DeleteApplicationDeps{
		Scopes:           f.scopes(),
		Tx:               f.tx,
		ApplicationStore: f.applications,
		AthleteStore:     f.athletes,
		AccountStore:     f.accounts,
		AuditStore:       f.audits,
		Notifier:         f.notifier,
		Now:              f.now,
		GenerateID:       f.id,
	}
}

func (f *fixture) registerDeps() RegisterForActivityDeps {
	return RegisterForActivityDeps{
		Scopes:            f.scopes(),
		Tx:                f.tx,
		ActivityStore:     f.activities,
		AthleteStore:      f.athletes,
		RegistrationStore: f.registrations,
		Guard:             f.guard,
		AuditStore:        f.audits,
		Notifier:          f.notifier,
		Now:               f.now,
		GenerateID:        f.id,
	}
}

func (f *fixture) transitionDeps() RegistrationTransitionDeps {
	return RegistrationTransitionDeps{
		Scopes:            f.scopes(),
		Tx:                f.tx,
		ActivityStore:     f.activities,
		AthleteStore:      f.athletes,
		RegistrationStore: f.registrations,
		AuditStore:        f.audits,
		Notifier:          f.notifier,
		Now:               f.now,
		GenerateID:        f.id,
	}
}

func (f *fixture) removeDeps() RemoveAthleteDeps {
	return RemoveAthleteDeps{
		Scopes:            f.scopes(),
		Tx:                f.tx,
		ActivityStore:     f.activities,
		RegistrationStore: f.registrations,
		AuditStore:        f.audits,
		Notifier:          f.notifier,
		Now:               f.now,
		GenerateID:        f.id,
	}
}

func (f *fixture) checkInDeps() CheckInDeps {
	return CheckInDeps{
		Scopes:        f.scopes(),
		Tx:            f.tx,
		ActivityStore: f.activities,
		AthleteStore:  f.athletes,
		CheckInStore:  f.checkins,
		Guard:         f.guard,
		AuditStore:    f.audits,
		Notifier:      f.notifier,
		Location:      time.UTC,
		Now:           f.now,
		GenerateID:    f.id,
	}
}

func (f *fixture) clubDeps() ManageClubsDeps {
	return ManageClubsDeps{
		Scopes:       f.scopes(),
		Tx:           f.tx,
		ClubStore:    f.clubs,
		AccountStore: f.accounts,
		AuditStore:   f.audits,
		Now:          f.now,
		GenerateID:   f.id,
	}
}

func completeInfo() application.PersonalInfo {
	return application.PersonalInfo{
		"full_name":     "Ana Maria Lopez",
		"gender":        "female",
		"date_of_birth": "2008-04-12",
		"phone_number":  "+66 81 234 5678",
	}
}

// submit files a complete application and fails the test on error.
func (f *fixture) submit(userID, clubID string) application.Application {
	f.t.Helper()
	app, err := ExecuteSubmitApplication(context.Background(), SubmitApplicationInput{
		ActorID:      userID,
		ClubID:       clubID,
		PersonalInfo: completeInfo(),
	}, f.submitDeps())
	if err != nil {
		f.t.Fatalf("submit application: %v", err)
	}
	f.advance(time.Minute)
	return app
}

func (f *fixture) membershipStatus(userID string) string {
	f.t.Helper()
	acct, err := f.accounts.GetByID(context.Background(), userID)
	if err != nil {
		f.t.Fatalf("load account: %v", err)
	}
	return acct.MembershipStatus
}

func (f *fixture) auditActions(resourceID string) []audit.Action {
	f.t.Helper()
	events, err := f.audits.List(context.Background(), auditFilterFor(resourceID), 100)
	if err != nil {
		f.t.Fatalf("list audit events: %v", err)
	}
	out := make([]audit.Action, 0, len(events))
	for _, e := range events {
		out = append(out, e.Action)
	}
	return out
}

func (f *fixture) countRows(table string) int {
	f.t.Helper()
	var n int
	if err := f.db.Get(&n, "SELECT COUNT(*) FROM "+table); err != nil {
		f.t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func auditFilterFor(resourceID string) auditStore.Filter {
	return auditStore.Filter{ResourceID: resourceID}
}

func hasAction(actions []audit.Action, want audit.Action) bool {
	for _, a := range actions {
		if a == want {
			return true
		}
	}
	return false
}

func requireKind(t *testing.T, err, kind error) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}
