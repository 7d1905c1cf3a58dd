package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/time/rate"

	"clubhouse/internal/adapters/http/middleware"
	"clubhouse/internal/adapters/storage"
	accountStore "clubhouse/internal/adapters/storage/account"
	activityStore "clubhouse/internal/adapters/storage/activity"
	applicationStore "clubhouse/internal/adapters/storage/application"
	athleteStore "clubhouse/internal/adapters/storage/athlete"
	auditStore "clubhouse/internal/adapters/storage/audit"
	checkinStore "clubhouse/internal/adapters/storage/checkin"
	clubStore "clubhouse/internal/adapters/storage/club"
	guardStore "clubhouse/internal/adapters/storage/guard"
	outboxStore "clubhouse/internal/adapters/storage/outbox"
	registrationStore "clubhouse/internal/adapters/storage/registration"
	"clubhouse/internal/adapters/storage/storagetest"
	"clubhouse/internal/application/dispatch"
	"clubhouse/internal/domain/failure"
)

// testNow is half an hour before the seeded activities start.
var testNow = time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)

type testEnv struct {
	t   *testing.T
	db  *sqlx.DB
	srv *Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := storagetest.OpenDB(t)
	rev := dispatch.NewRevalidator()
	srv := NewServer(Config{
		CSRFKey:   bytes.Repeat([]byte("k"), 32),
		RateLimit: middleware.RateLimiterConfig{Rate: rate.Inf, Burst: 1},
	}, Deps{
		Stores: Stores{
			AccountStore:      accountStore.NewSQLiteStore(db),
			ClubStore:         clubStore.NewSQLiteStore(db),
			AthleteStore:      athleteStore.NewSQLiteStore(db),
			ApplicationStore:  applicationStore.NewSQLiteStore(db),
			ActivityStore:     activityStore.NewSQLiteStore(db),
			RegistrationStore: registrationStore.NewSQLiteStore(db),
			CheckInStore:      checkinStore.NewSQLiteStore(db),
			AuditStore:        auditStore.NewSQLiteStore(db),
			OutboxStore:       outboxStore.NewSQLiteStore(db),
		},
		Tx:          storage.NewTransactor(db),
		Guard:       guardStore.NewSQLiteChecker(db),
		Notifier:    dispatch.New([]dispatch.Sink{rev}),
		Revalidator: rev,
		Now:         func() time.Time { return testNow },
	})
	t.Cleanup(srv.Close)
	return &testEnv{t: t, db: db, srv: srv}
}

// sessionFor starts a session for a seeded account.
func (e *testEnv) sessionFor(accountID, role string) string {
	e.t.Helper()
	token, err := e.srv.Sessions().Create(accountID, accountID+"@clubhouse.test", role)
	if err != nil {
		e.t.Fatalf("create session: %v", err)
	}
	return token
}

// do sends a JSON request. An empty session token sends no cookie.
func (e *testEnv) do(method, path, session string, body any, headers ...string) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			e.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: session})
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body %s", rec.Code, want, rec.Body.String())
	}
}

func requireErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	requireStatus(t, rec, status)
	if body := decodeBody[middleware.ErrorBody](t, rec); body.Error != code {
		t.Fatalf("error = %q, want %q", body.Error, code)
	}
}

func completeApplication(clubID string) map[string]any {
	return map[string]any{
		"club_id": clubID,
		"personal_info": map[string]string{
			"full_name":     "Ana Maria Lopez",
			"gender":        "female",
			"date_of_birth": "2008-04-12",
			"phone_number":  "+66 81 234 5678",
		},
	}
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(http.MethodGet, "/healthz", "", nil)
	requireStatus(t, rec, http.StatusOK)
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
}

func TestRouting_JSONFallbacks(t *testing.T) {
	e := newTestEnv(t)
	requireErrorCode(t, e.do(http.MethodGet, "/nope", "", nil), http.StatusNotFound, "not_found")
	requireErrorCode(t, e.do(http.MethodDelete, "/healthz", "", nil), http.StatusMethodNotAllowed, "method_not_allowed")
}

func TestAPI_SessionAndRoleGates(t *testing.T) {
	e := newTestEnv(t)
	storagetest.SeedClub(t, e.db, "club-a")
	storagetest.SeedCoach(t, e.db, "coach-1", "club-a")

	requireErrorCode(t, e.do(http.MethodGet, "/api/applications", "", nil), http.StatusUnauthorized, "unauthenticated")
	requireErrorCode(t, e.do(http.MethodGet, "/api/applications", "forged", nil), http.StatusUnauthorized, "unauthenticated")

	coach := e.sessionFor("coach-1", "coach")
	requireErrorCode(t, e.do(http.MethodPost, "/api/admin/clubs", coach, map[string]string{"name": "X"}), http.StatusForbidden, "authorization")
}

func TestSignupLoginLogout(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodPost, "/signup", "", map[string]string{
		"email":    "Runner@Example.com",
		"password": "correct horse battery",
	})
	requireStatus(t, rec, http.StatusCreated)
	created := decodeBody[accountResponse](t, rec)
	if created.Email != "runner@example.com" || created.Role != "athlete" {
		t.Fatalf("created = %+v", created)
	}

	requireErrorCode(t, e.do(http.MethodPost, "/signup", "", map[string]string{
		"email":    "other@example.com",
		"password": "correct horse battery",
		"role":     "admin",
	}), http.StatusForbidden, "authorization")

	requireErrorCode(t, e.do(http.MethodPost, "/login", "", map[string]string{
		"email":    "runner@example.com",
		"password": "wrong password!!",
	}), http.StatusUnauthorized, "invalid_credentials")

	rec = e.do(http.MethodPost, "/login", "", map[string]string{
		"email":    "runner@example.com",
		"password": "correct horse battery",
	})
	requireStatus(t, rec, http.StatusOK)
	var session string
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			session = c.Value
		}
	}
	if session == "" {
		t.Fatal("login set no session cookie")
	}

	requireStatus(t, e.do(http.MethodGet, "/api/applications", session, nil), http.StatusOK)
	requireStatus(t, e.do(http.MethodPost, "/logout", session, nil), http.StatusNoContent)
	requireStatus(t, e.do(http.MethodGet, "/api/applications", session, nil), http.StatusUnauthorized)
}

func TestApplicationFlow_SubmitReviewAndETag(t *testing.T) {
	e := newTestEnv(t)
	storagetest.SeedClub(t, e.db, "club-a")
	storagetest.SeedCoach(t, e.db, "coach-1", "club-a")
	storagetest.SeedAccount(t, e.db, "user-1", "athlete")
	athlete := e.sessionFor("user-1", "athlete")
	coach := e.sessionFor("coach-1", "coach")

	rec := e.do(http.MethodPost, "/api/applications", athlete, completeApplication("club-a"))
	requireStatus(t, rec, http.StatusCreated)
	app := decodeBody[applicationView](t, rec)
	if app.Status != "pending" {
		t.Fatalf("status = %q, want pending", app.Status)
	}

	requireErrorCode(t, e.do(http.MethodPost, "/api/applications", athlete, completeApplication("club-a")),
		http.StatusConflict, "conflict")

	listPath := "/api/applications?club_id=club-a"
	rec = e.do(http.MethodGet, listPath, coach, nil)
	requireStatus(t, rec, http.StatusOK)
	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("list carried no ETag")
	}
	requireStatus(t, e.do(http.MethodGet, listPath, coach, nil, "If-None-Match", etag), http.StatusNotModified)

	rec = e.do(http.MethodPost, "/api/applications/"+app.ID+"/review", coach, map[string]string{"action": "approve"})
	requireStatus(t, rec, http.StatusOK)
	reviewed := decodeBody[reviewResponse](t, rec)
	if reviewed.Application.Status != "approved" || reviewed.Athlete == nil {
		t.Fatalf("review = %+v", reviewed)
	}
	if reviewed.Athlete.ClubID != "club-a" || reviewed.Athlete.UserID != "user-1" {
		t.Errorf("athlete = %+v", reviewed.Athlete)
	}

	requireErrorCode(t, e.do(http.MethodPost, "/api/applications/"+app.ID+"/review", coach, map[string]string{"action": "approve"}),
		http.StatusConflict, "already_processed")

	rec = e.do(http.MethodGet, listPath, coach, nil, "If-None-Match", etag)
	requireStatus(t, rec, http.StatusOK)
	if rec.Header().Get("ETag") == etag {
		t.Error("ETag did not change after approval")
	}
}

func TestApplicationReview_OtherClubCoachIsRejected(t *testing.T) {
	e := newTestEnv(t)
	storagetest.SeedClub(t, e.db, "club-a")
	storagetest.SeedClub(t, e.db, "club-b")
	storagetest.SeedCoach(t, e.db, "coach-a", "club-a")
	storagetest.SeedCoach(t, e.db, "coach-b", "club-b")
	storagetest.SeedAccount(t, e.db, "user-1", "athlete")

	rec := e.do(http.MethodPost, "/api/applications", e.sessionFor("user-1", "athlete"), completeApplication("club-a"))
	requireStatus(t, rec, http.StatusCreated)
	app := decodeBody[applicationView](t, rec)

	rec = e.do(http.MethodPost, "/api/applications/"+app.ID+"/review", e.sessionFor("coach-b", "coach"),
		map[string]string{"action": "approve"})
	requireErrorCode(t, rec, http.StatusForbidden, "authorization")

	rec = e.do(http.MethodGet, "/api/applications/"+app.ID, e.sessionFor("coach-a", "coach"), nil)
	requireStatus(t, rec, http.StatusOK)
	if got := decodeBody[applicationView](t, rec); got.Status != "pending" {
		t.Errorf("status after rejected review = %q, want pending", got.Status)
	}
}

func TestCheckIn_Outcomes(t *testing.T) {
	e := newTestEnv(t)
	storagetest.SeedClub(t, e.db, "club-a")
	storagetest.SeedClub(t, e.db, "club-b")
	storagetest.SeedCoach(t, e.db, "coach-1", "club-a")
	storagetest.SeedAccount(t, e.db, "user-1", "athlete")
	storagetest.SeedAccount(t, e.db, "user-2", "athlete")
	storagetest.SeedAthlete(t, e.db, "ath-1", "user-1", "club-a")
	storagetest.SeedAthlete(t, e.db, "ath-2", "user-2", "club-b")
	storagetest.SeedActivity(t, e.db, "act-1", "club-a", "SPRINT")
	athlete := e.sessionFor("user-1", "athlete")
	coach := e.sessionFor("coach-1", "coach")
	path := "/api/activities/act-1/checkins"

	requireErrorCode(t, e.do(http.MethodPost, path, athlete, map[string]string{"token": "WRONG"}),
		http.StatusUnprocessableEntity, "invalid_token")

	requireErrorCode(t, e.do(http.MethodPost, path, e.sessionFor("user-2", "athlete"), map[string]string{"token": "SPRINT"}),
		http.StatusForbidden, "scope_mismatch")

	rec := e.do(http.MethodPost, path, athlete, map[string]string{"token": "SPRINT"})
	requireStatus(t, rec, http.StatusCreated)
	first := decodeBody[checkInResponse](t, rec)
	if first.AlreadyCheckedIn || first.CheckIn.Status != "on_time" || first.CheckIn.AthleteID != "ath-1" {
		t.Fatalf("first = %+v", first)
	}

	list := e.do(http.MethodGet, path, coach, nil)
	requireStatus(t, list, http.StatusOK)
	etag := list.Header().Get("ETag")

	rec = e.do(http.MethodPost, path, athlete, map[string]string{"athlete_id": "ath-1", "token": "SPRINT"})
	requireStatus(t, rec, http.StatusOK)
	repeat := decodeBody[checkInResponse](t, rec)
	if !repeat.AlreadyCheckedIn || repeat.CheckIn.ID != first.CheckIn.ID {
		t.Fatalf("repeat = %+v, want original %s", repeat, first.CheckIn.ID)
	}

	rec = e.do(http.MethodGet, path, coach, nil, "If-None-Match", etag)
	requireStatus(t, rec, http.StatusNotModified)

	rec = e.do(http.MethodGet, path, coach, nil)
	summary := decodeBody[checkInListResponse](t, rec)
	if len(summary.CheckIns) != 1 || summary.OnTime != 1 || summary.Late != 0 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestCheckIn_RequiresAthleteWhenAmbiguous(t *testing.T) {
	e := newTestEnv(t)
	storagetest.SeedClub(t, e.db, "club-a")
	storagetest.SeedCoach(t, e.db, "coach-1", "club-a")
	storagetest.SeedActivity(t, e.db, "act-1", "club-a", "SPRINT")

	rec := e.do(http.MethodPost, "/api/activities/act-1/checkins", e.sessionFor("coach-1", "coach"), map[string]string{"token": "SPRINT"})
	requireErrorCode(t, rec, http.StatusBadRequest, "validation")
	if body := decodeBody[middleware.ErrorBody](t, rec); body.Field != "athlete_id" {
		t.Errorf("field = %q, want athlete_id", body.Field)
	}
}

func TestRegistration_RegisterAndReview(t *testing.T) {
	e := newTestEnv(t)
	storagetest.SeedClub(t, e.db, "club-a")
	storagetest.SeedCoach(t, e.db, "coach-1", "club-a")
	storagetest.SeedAccount(t, e.db, "user-1", "athlete")
	storagetest.SeedAthlete(t, e.db, "ath-1", "user-1", "club-a")
	coach := e.sessionFor("coach-1", "coach")
	athlete := e.sessionFor("user-1", "athlete")

	rec := e.do(http.MethodPost, "/api/activities", coach, map[string]any{
		"club_id":           "club-a",
		"title":             "Hill repeats",
		"date":              "2026-03-02",
		"start_time":        "07:00",
		"end_time":          "08:00",
		"capacity":          5,
		"requires_approval": true,
	})
	requireStatus(t, rec, http.StatusCreated)
	act := decodeBody[activityView](t, rec)

	rec = e.do(http.MethodPost, "/api/activities/"+act.ID+"/registrations", athlete, nil)
	requireStatus(t, rec, http.StatusCreated)
	reg := decodeBody[registrationView](t, rec)
	if reg.Status != "pending" {
		t.Fatalf("status = %q, want pending", reg.Status)
	}

	requireErrorCode(t, e.do(http.MethodPost, "/api/activities/"+act.ID+"/registrations", athlete, nil),
		http.StatusConflict, "conflict")

	requireErrorCode(t, e.do(http.MethodPost, "/api/registrations/"+reg.ID+"/reject", coach, nil),
		http.StatusBadRequest, "validation")

	rec = e.do(http.MethodPost, "/api/registrations/"+reg.ID+"/approve", coach, nil)
	requireStatus(t, rec, http.StatusOK)
	if got := decodeBody[registrationView](t, rec); got.Status != "approved" {
		t.Errorf("status = %q, want approved", got.Status)
	}

	rec = e.do(http.MethodGet, "/api/activities/"+act.ID+"/registrations", coach, nil)
	requireStatus(t, rec, http.StatusOK)
	if list := decodeBody[registrationListResponse](t, rec); list.Approved != 1 || list.Capacity != 5 {
		t.Errorf("list = %+v", list)
	}

	requireErrorCode(t, e.do(http.MethodGet, "/api/activities/"+act.ID+"/registrations", athlete, nil),
		http.StatusForbidden, "authorization")
}

func TestAdmin_CreateClubAndAssignCoach(t *testing.T) {
	e := newTestEnv(t)
	storagetest.SeedAccount(t, e.db, "admin-1", "admin")
	storagetest.SeedAccount(t, e.db, "coach-1", "coach")
	admin := e.sessionFor("admin-1", "admin")

	rec := e.do(http.MethodPost, "/api/admin/clubs", admin, map[string]string{"name": "Harbour Harriers", "sport_type": "athletics"})
	requireStatus(t, rec, http.StatusCreated)
	club := decodeBody[clubView](t, rec)

	requireStatus(t, e.do(http.MethodPost, "/api/admin/clubs/"+club.ID+"/coaches", admin, map[string]string{"account_id": "coach-1"}),
		http.StatusCreated)

	rec = e.do(http.MethodGet, "/api/admin/audit?resource_id="+club.ID, admin, nil)
	requireStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), club.ID) {
		t.Errorf("audit trail misses club %s: %s", club.ID, rec.Body.String())
	}
	requireErrorCode(t, e.do(http.MethodGet, "/api/admin/audit?since=yesterday", admin, nil), http.StatusBadRequest, "validation")

	requireErrorCode(t, e.do(http.MethodGet, "/api/admin/outbox?status=sent", admin, nil), http.StatusBadRequest, "validation")
	requireStatus(t, e.do(http.MethodGet, "/api/admin/outbox", admin, nil), http.StatusOK)
}

func TestStrictDecode_RejectsMalformedBodies(t *testing.T) {
	e := newTestEnv(t)
	storagetest.SeedAccount(t, e.db, "admin-1", "admin")
	admin := e.sessionFor("admin-1", "admin")

	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"unknown field", `{"name":"X","colour":"red"}`},
		{"trailing data", `{"name":"X"} {"name":"Y"}`},
		{"wrong type", `{"name":7}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireErrorCode(t, e.do(http.MethodPost, "/api/admin/clubs", admin, tt.body), http.StatusBadRequest, "validation")
		})
	}
}

func TestWriteError_MapsKinds(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{failure.Validation("bad"), http.StatusBadRequest, "validation"},
		{failure.Unauthorized("no"), http.StatusForbidden, "authorization"},
		{failure.New(failure.ErrScopeMismatch, "club"), http.StatusForbidden, "scope_mismatch"},
		{failure.NotFound("application"), http.StatusNotFound, "not_found"},
		{failure.Conflict("dup"), http.StatusConflict, "conflict"},
		{failure.AlreadyProcessed("application"), http.StatusConflict, "already_processed"},
		{failure.New(failure.ErrInvalidToken, "token"), http.StatusUnprocessableEntity, "invalid_token"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeError(rec, tt.err)
		if rec.Code != tt.status {
			t.Errorf("%v: status = %d, want %d", tt.err, rec.Code, tt.status)
		}
		body := decodeBody[middleware.ErrorBody](t, rec)
		if body.Error != tt.code {
			t.Errorf("%v: code = %q, want %q", tt.err, body.Error, tt.code)
		}
		if tt.code == "internal" && strings.Contains(body.Message, "disk") {
			t.Errorf("internal error leaked: %q", body.Message)
		}
	}
}

func TestEtagMatches(t *testing.T) {
	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{`"abc"`, true},
		{`"x", "abc"`, true},
		{"*", true},
		{`"abd"`, false},
	}
	for _, tt := range tests {
		if got := etagMatches(tt.header, `"abc"`); got != tt.want {
			t.Errorf("etagMatches(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", 50, false},
		{"10", 10, false},
		{"5000", 100, false},
		{"0", 0, true},
		{"ten", 0, true},
	}
	for _, tt := range tests {
		got, err := parseLimit(tt.raw, 50, 100)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseLimit(%q) = %d, %v", tt.raw, got, err)
		}
	}
}

func TestAccount_SelfServiceAndAdminListing(t *testing.T) {
	e := newTestEnv(t)
	storagetest.SeedAccount(t, e.db, "admin-1", "admin")
	storagetest.SeedAccount(t, e.db, "coach-1", "coach")

	rec := e.do(http.MethodPost, "/signup", "", map[string]string{
		"email":        "runner@example.com",
		"password":     "correct horse battery",
		"display_name": "Rita Runner",
	})
	requireStatus(t, rec, http.StatusCreated)
	created := decodeBody[accountResponse](t, rec)
	runner := e.sessionFor(created.AccountID, "athlete")

	rec = e.do(http.MethodGet, "/api/account", runner, nil)
	requireStatus(t, rec, http.StatusOK)
	if me := decodeBody[accountView](t, rec); me.DisplayName != "Rita Runner" || me.MembershipStatus != "none" {
		t.Errorf("account = %+v", me)
	}

	rec = e.do(http.MethodPost, "/api/account/password", runner, map[string]string{
		"current_password": "wrong password!!",
		"new_password":     "staple battery horse",
	})
	requireErrorCode(t, rec, http.StatusBadRequest, "validation")
	requireStatus(t, e.do(http.MethodPost, "/api/account/password", runner, map[string]string{
		"current_password": "correct horse battery",
		"new_password":     "staple battery horse",
	}), http.StatusNoContent)
	requireStatus(t, e.do(http.MethodPost, "/login", "", map[string]string{
		"email":    "runner@example.com",
		"password": "staple battery horse",
	}), http.StatusOK)

	admin := e.sessionFor("admin-1", "admin")
	rec = e.do(http.MethodGet, "/api/admin/accounts?role=athlete&per_page=10", admin, nil)
	requireStatus(t, rec, http.StatusOK)
	list := decodeBody[accountListResponse](t, rec)
	if list.Total != 1 || len(list.Accounts) != 1 || list.Accounts[0].Email != "runner@example.com" {
		t.Errorf("athletes = %+v", list)
	}
	if list.PerPage != 10 || list.TotalPages != 1 {
		t.Errorf("page info = %+v", list.PageInfo)
	}

	rec = e.do(http.MethodGet, "/api/admin/accounts?sort=email", admin, nil)
	requireStatus(t, rec, http.StatusOK)
	if all := decodeBody[accountListResponse](t, rec); all.Total != 3 || all.Accounts[0].ID != "admin-1" {
		t.Errorf("all = %+v", all)
	}

	requireErrorCode(t, e.do(http.MethodGet, "/api/admin/accounts?role=owner", admin, nil), http.StatusBadRequest, "validation")
	requireErrorCode(t, e.do(http.MethodGet, "/api/admin/accounts", runner, nil), http.StatusForbidden, "authorization")
}
