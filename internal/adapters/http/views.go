package web

import (
	"net/http"
	"strings"
	"time"

	"clubhouse/internal/adapters/http/middleware"
	"clubhouse/internal/domain/activity"
	"clubhouse/internal/domain/application"
	"clubhouse/internal/domain/athlete"
	"clubhouse/internal/domain/checkin"
	"clubhouse/internal/domain/club"
	"clubhouse/internal/domain/outbox"
	"clubhouse/internal/domain/registration"
)

type applicationView struct {
	ID              string                   `json:"id"`
	UserID          string                   `json:"user_id"`
	ClubID          string                   `json:"club_id"`
	Status          string                   `json:"status"`
	PersonalInfo    application.PersonalInfo `json:"personal_info"`
	Documents       []application.Document   `json:"documents"`
	ReviewerID      string                   `json:"reviewer_id,omitempty"`
	RejectionReason string                   `json:"rejection_reason,omitempty"`
	InfoRequestNote string                   `json:"info_request_note,omitempty"`
	ProfileID       string                   `json:"profile_id,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
	ReviewedAt      *time.Time               `json:"reviewed_at,omitempty"`
}

func newApplicationView(a application.Application) applicationView {
	docs := a.Documents
	if docs == nil {
		docs = []application.Document{}
	}
	return applicationView{
		ID:              a.ID,
		UserID:          a.UserID,
		ClubID:          a.ClubID,
		Status:          a.Status,
		PersonalInfo:    a.PersonalInfo,
		Documents:       docs,
		ReviewerID:      a.ReviewerID,
		RejectionReason: a.RejectionReason,
		InfoRequestNote: a.InfoRequestNote,
		ProfileID:       a.ProfileID,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
		ReviewedAt:      optionalTime(a.ReviewedAt),
	}
}

func newApplicationViews(apps []application.Application) []applicationView {
	out := make([]applicationView, 0, len(apps))
	for _, a := range apps {
		out = append(out, newApplicationView(a))
	}
	return out
}

type athleteView struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ClubID    string    `json:"club_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}

func newAthleteView(a athlete.Athlete) athleteView {
	return athleteView{
		ID:        a.ID,
		UserID:    a.UserID,
		ClubID:    a.ClubID,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		CreatedAt: a.CreatedAt,
	}
}

type activityView struct {
	ID               string    `json:"id"`
	ClubID           string    `json:"club_id"`
	Kind             string    `json:"kind"`
	Title            string    `json:"title"`
	Date             string    `json:"date"`
	StartTime        string    `json:"start_time"`
	EndTime          string    `json:"end_time"`
	Token            string    `json:"token,omitempty"`
	Capacity         int       `json:"capacity"`
	RequiresApproval bool      `json:"requires_approval"`
	CreatedBy        string    `json:"created_by,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func newActivityView(a activity.Activity) activityView {
	return activityView{
		ID:               a.ID,
		ClubID:           a.ClubID,
		Kind:             a.Kind,
		Title:            a.Title,
		Date:             a.Date,
		StartTime:        a.StartTime,
		EndTime:          a.EndTime,
		Token:            a.Token,
		Capacity:         a.Capacity,
		RequiresApproval: a.RequiresApproval,
		CreatedBy:        a.CreatedBy,
		CreatedAt:        a.CreatedAt,
	}
}

type registrationView struct {
	ID              string    `json:"id"`
	ActivityID      string    `json:"activity_id"`
	AthleteID       string    `json:"athlete_id"`
	Status          string    `json:"status"`
	ReviewerID      string    `json:"reviewer_id,omitempty"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func newRegistrationView(r registration.Registration) registrationView {
	return registrationView{
		ID:              r.ID,
		ActivityID:      r.ActivityID,
		AthleteID:       r.AthleteID,
		Status:          r.Status,
		ReviewerID:      r.ReviewerID,
		RejectionReason: r.RejectionReason,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

type checkInView struct {
	ID          string    `json:"id"`
	ActivityID  string    `json:"activity_id"`
	AthleteID   string    `json:"athlete_id"`
	Status      string    `json:"status"`
	Method      string    `json:"method"`
	CheckedInAt time.Time `json:"checked_in_at"`
}

func newCheckInView(c checkin.CheckIn) checkInView {
	return checkInView{
		ID:          c.ID,
		ActivityID:  c.ActivityID,
		AthleteID:   c.AthleteID,
		Status:      c.Status,
		Method:      c.Method,
		CheckedInAt: c.CheckedInAt,
	}
}

type clubView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SportType string    `json:"sport_type"`
	CreatedAt time.Time `json:"created_at"`
}

type coachView struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	ClubID    string    `json:"club_id"`
	CreatedAt time.Time `json:"created_at"`
}

func newClubView(c club.Club) clubView {
	return clubView{ID: c.ID, Name: c.Name, SportType: c.SportType, CreatedAt: c.CreatedAt}
}

func newCoachView(c club.Coach) coachView {
	return coachView{ID: c.ID, AccountID: c.AccountID, ClubID: c.ClubID, CreatedAt: c.CreatedAt}
}

type outboxView struct {
	ID              string     `json:"id"`
	ActionType      string     `json:"action_type"`
	Status          string     `json:"status"`
	Attempts        int        `json:"attempts"`
	MaxAttempts     int        `json:"max_attempts"`
	LastAttemptedAt *time.Time `json:"last_attempted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ExternalID      string     `json:"external_id,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
}

func newOutboxView(e outbox.Entry) outboxView {
	return outboxView{
		ID:              e.ID,
		ActionType:      e.ActionType,
		Status:          e.Status,
		Attempts:        e.Attempts,
		MaxAttempts:     e.MaxAttempts,
		LastAttemptedAt: optionalTime(e.LastAttemptedAt),
		CreatedAt:       e.CreatedAt,
		ExternalID:      e.ExternalID,
		ErrorMessage:    e.ErrorMessage,
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// writeCached answers with v unless the client already holds the current
// version of tags. An empty tag list disables caching for the response.
func (s *Server) writeCached(w http.ResponseWriter, r *http.Request, tags []string, v any) {
	if len(tags) == 0 || s.deps.Revalidator == nil {
		middleware.WriteJSON(w, http.StatusOK, v)
		return
	}
	// The same tags can back different views, so the actor and query are part of the key.
	sess, _ := middleware.GetSessionFromContext(r.Context())
	keys := append(append([]string{}, tags...), "actor:"+sess.AccountID, "query:"+r.URL.RawQuery)
	etag := s.deps.Revalidator.ETag(keys...)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, no-cache")
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, v)
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}
