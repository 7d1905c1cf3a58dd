package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clubhouse/internal/adapters/http/middleware"
	"clubhouse/internal/application/orchestrators"
	"clubhouse/internal/application/projections"
	"clubhouse/internal/domain/failure"
)

type createActivityRequest struct {
	ClubID           string `json:"club_id"`
	Kind             string `json:"kind"`
	Title            string `json:"title"`
	Date             string `json:"date"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	Token            string `json:"token"`
	GenerateToken    bool   `json:"generate_token"`
	Capacity         int    `json:"capacity"`
	RequiresApproval bool   `json:"requires_approval"`
}

type checkInRequest struct {
	AthleteID string `json:"athlete_id"` // optional when the caller has one athlete profile
	Token     string `json:"token"`
}

type checkInResponse struct {
	CheckIn          checkInView `json:"check_in"`
	AlreadyCheckedIn bool        `json:"already_checked_in"`
}

type checkInListResponse struct {
	ActivityID string        `json:"activity_id"`
	CheckIns   []checkInView `json:"check_ins"`
	OnTime     int           `json:"on_time"`
	Late       int           `json:"late"`
}

type registrationListResponse struct {
	ActivityID    string             `json:"activity_id"`
	Registrations []registrationView `json:"registrations"`
	Approved      int                `json:"approved"`
	Capacity      int                `json:"capacity"`
}

// handleCreateActivity schedules an activity for a club (POST /api/activities).
func (s *Server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	var req createActivityRequest
	if err := strictDecode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	act, err := orchestrators.ExecuteCreateActivity(r.Context(), orchestrators.CreateActivityInput{
		ActorID:          sess.AccountID,
		ClubID:           req.ClubID,
		Kind:             req.Kind,
		Title:            req.Title,
		Date:             req.Date,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		Token:            req.Token,
		GenerateToken:    req.GenerateToken,
		Capacity:         req.Capacity,
		RequiresApproval: req.RequiresApproval,
	}, orchestrators.CreateActivityDeps{
		Scopes:        s.scopes(),
		Tx:            s.deps.Tx,
		ActivityStore: s.deps.Stores.ActivityStore,
		AuditStore:    s.deps.Stores.AuditStore,
		Now:           s.deps.Now,
		GenerateID:    s.deps.GenerateID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, newActivityView(act))
}

// handleListActivities lists a club's activities (GET /api/activities?club_id=&from=).
func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	q := r.URL.Query()
	acts, err := projections.QueryGetActivities(r.Context(), projections.GetActivitiesQuery{
		ActorID:  sess.AccountID,
		ClubID:   q.Get("club_id"),
		FromDate: q.Get("from"),
	}, projections.GetActivitiesDeps{
		Scopes:        s.scopes(),
		ActivityStore: s.deps.Stores.ActivityStore,
		AthleteStore:  s.deps.Stores.AthleteStore,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]activityView, 0, len(acts))
	for _, a := range acts {
		out = append(out, newActivityView(a))
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

// handleRotateToken replaces an activity's check-in token (POST /api/activities/{id}/token).
func (s *Server) handleRotateToken(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	act, err := orchestrators.ExecuteRotateToken(r.Context(), orchestrators.RotateTokenInput{
		ActorID:    sess.AccountID,
		ActivityID: chi.URLParam(r, "id"),
	}, orchestrators.RotateTokenDeps{
		Scopes:        s.scopes(),
		Tx:            s.deps.Tx,
		ActivityStore: s.deps.Stores.ActivityStore,
		AuditStore:    s.deps.Stores.AuditStore,
		Now:           s.deps.Now,
		GenerateID:    s.deps.GenerateID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, newActivityView(act))
}

// handleRegister registers the caller's athlete profile for an activity (POST /api/activities/{id}/registrations).
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	reg, err := orchestrators.ExecuteRegisterForActivity(r.Context(), orchestrators.RegisterForActivityInput{
		ActorID:    sess.AccountID,
		ActivityID: chi.URLParam(r, "id"),
	}, orchestrators.RegisterForActivityDeps{
		Scopes:            s.scopes(),
		Tx:                s.deps.Tx,
		ActivityStore:     s.deps.Stores.ActivityStore,
		AthleteStore:      s.deps.Stores.AthleteStore,
		RegistrationStore: s.deps.Stores.RegistrationStore,
		Guard:             s.deps.Guard,
		AuditStore:        s.deps.Stores.AuditStore,
		Notifier:          s.deps.Notifier,
		Now:               s.deps.Now,
		GenerateID:        s.deps.GenerateID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, newRegistrationView(reg))
}

// handleListRegistrations lists an activity's registrations for staff (GET /api/activities/{id}/registrations).
func (s *Server) handleListRegistrations(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	result, err := projections.QueryGetRegistrations(r.Context(), projections.GetRegistrationsQuery{
		ActorID:    sess.AccountID,
		ActivityID: chi.URLParam(r, "id"),
	}, projections.GetRegistrationsDeps{
		Scopes:            s.scopes(),
		ActivityStore:     s.deps.Stores.ActivityStore,
		RegistrationStore: s.deps.Stores.RegistrationStore,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	resp := registrationListResponse{
		ActivityID:    result.Activity.ID,
		Registrations: make([]registrationView, 0, len(result.Registrations)),
		Approved:      result.Approved,
		Capacity:      result.Activity.Capacity,
	}
	for _, reg := range result.Registrations {
		resp.Registrations = append(resp.Registrations, newRegistrationView(reg))
	}
	s.writeCached(w, r, result.Tags, resp)
}

// handleCheckIn records an arrival (POST /api/activities/{id}/checkins).
// POST: 201 for a new check-in; 200 with already_checked_in for a repeat
func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	var req checkInRequest
	if err := strictDecode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.AthleteID == "" {
		id, err := s.soleAthleteOf(r.Context(), sess.AccountID)
		if err != nil {
			writeError(w, err)
			return
		}
		req.AthleteID = id
	}

	result, err := orchestrators.ExecuteCheckIn(r.Context(), orchestrators.CheckInInput{
		ActorID:    sess.AccountID,
		ActivityID: chi.URLParam(r, "id"),
		AthleteID:  req.AthleteID,
		Token:      req.Token,
	}, orchestrators.CheckInDeps{
		Scopes:        s.scopes(),
		Tx:            s.deps.Tx,
		ActivityStore: s.deps.Stores.ActivityStore,
		AthleteStore:  s.deps.Stores.AthleteStore,
		CheckInStore:  s.deps.Stores.CheckInStore,
		Guard:         s.deps.Guard,
		AuditStore:    s.deps.Stores.AuditStore,
		Notifier:      s.deps.Notifier,
		Location:      s.cfg.Location,
		Now:           s.deps.Now,
		GenerateID:    s.deps.GenerateID,
	})
	switch {
	case errors.Is(err, failure.ErrAlreadyCheckedIn):
		middleware.WriteJSON(w, http.StatusOK, checkInResponse{CheckIn: newCheckInView(result.CheckIn), AlreadyCheckedIn: true})
	case err != nil:
		writeError(w, err)
	default:
		middleware.WriteJSON(w, http.StatusCreated, checkInResponse{CheckIn: newCheckInView(result.CheckIn)})
	}
}

// handleListCheckIns lists an activity's check-ins (GET /api/activities/{id}/checkins).
func (s *Server) handleListCheckIns(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	result, err := projections.QueryGetCheckIns(r.Context(), projections.GetCheckInsQuery{
		ActorID:    sess.AccountID,
		ActivityID: chi.URLParam(r, "id"),
	}, projections.GetCheckInsDeps{
		Scopes:        s.scopes(),
		ActivityStore: s.deps.Stores.ActivityStore,
		CheckInStore:  s.deps.Stores.CheckInStore,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	resp := checkInListResponse{
		ActivityID: result.Activity.ID,
		CheckIns:   make([]checkInView, 0, len(result.CheckIns)),
		OnTime:     result.OnTime,
		Late:       result.Late,
	}
	for _, c := range result.CheckIns {
		resp.CheckIns = append(resp.CheckIns, newCheckInView(c))
	}
	s.writeCached(w, r, result.Tags, resp)
}

// soleAthleteOf returns the caller's athlete profile when there is exactly one.
func (s *Server) soleAthleteOf(ctx context.Context, userID string) (string, error) {
	athletes, err := s.deps.Stores.AthleteStore.ListByUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(athletes) != 1 {
		return "", failure.MissingField("athlete_id")
	}
	return athletes[0].ID, nil
}
